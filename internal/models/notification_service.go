package models

// NotificationService tells a creator about a settled payment.
type NotificationService interface {
	NotifySettlement(creator *Creator, content *Content, record *SettlementRecord)
}
