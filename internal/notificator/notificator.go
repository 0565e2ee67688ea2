package notificator

import (
	"fmt"
	"runtime/debug"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

// Notificator announces settled payments to creators over the channels they
// registered. Either notificator may be nil when unconfigured.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
	EmailNotificator    *EmailNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator, emailNotif *EmailNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif, EmailNotificator: emailNotif}
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// NotifySettlement tells the creator that a payment for their content landed.
func (n *Notificator) NotifySettlement(creator *models.Creator, content *models.Content, record *models.SettlementRecord) {
	if creator == nil || record == nil {
		return
	}

	message := fmt.Sprintf(
		"Payment received for %q: %s atomic units to your wallet (%s after the platform fee). Transaction: %s",
		content.Title, record.TotalAmount, record.CreatorAmount, record.TransactionID,
	)

	if n.TelegramNotificator != nil && creator.TelegramChatID != "" {
		chatID := creator.TelegramChatID
		n.safeCall(func() { n.TelegramNotificator.SendNotification(chatID, message) }, "telegramNotification")
	}
	if n.EmailNotificator != nil && creator.Email != "" {
		email := creator.Email
		n.safeCall(func() { n.EmailNotificator.SendNotification(email, message) }, "emailNotification")
	}
}
