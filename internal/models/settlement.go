package models

// SettlementRecord is the durable, exactly-once record that a specific
// on-chain transaction satisfied a specific challenge. The primary key on
// TransactionID is the invariant that prevents double-spend-of-access.
// Records are immutable after creation.
type SettlementRecord struct {
	// TransactionID is the chain transaction hash, globally unique.
	TransactionID string `json:"transaction_id" gorm:"column:transaction_id;primaryKey;size:128"`
	// ChallengeID is the challenge this transaction consumed.
	ChallengeID string `json:"challenge_id" gorm:"column:challenge_id;index;not null"`
	// ContentID is the content that was unlocked.
	ContentID string `json:"content_id" gorm:"column:content_id;index"`
	// CreatorID is the creator credited with the payment.
	CreatorID string `json:"creator_id" gorm:"column:creator_id;index"`
	// RecipientAddress is the wallet that received the transfer.
	RecipientAddress string `json:"recipient_address" gorm:"column:recipient_address"`
	// TotalAmount is the full paid amount in atomic units, base-10 string.
	TotalAmount string `json:"total_amount" gorm:"column:total_amount"`
	// CreatorAmount is the creator's share of TotalAmount.
	CreatorAmount string `json:"creator_amount" gorm:"column:creator_amount"`
	// PlatformFee is the platform's share of TotalAmount.
	// CreatorAmount + PlatformFee always equals TotalAmount.
	PlatformFee string `json:"platform_fee" gorm:"column:platform_fee"`
	// VerifiedAt is the Unix timestamp the settlement was recorded.
	VerifiedAt int64 `json:"verified_at" gorm:"column:verified_at;index"`
}

// TableName specifies the table name for GORM
func (SettlementRecord) TableName() string {
	return "settlement_records"
}

// SameRequest reports whether an existing record matches a re-presented
// request, i.e. the replay is an idempotent retry rather than an attempt to
// reuse the transaction for different content.
func (r *SettlementRecord) SameRequest(challengeID, contentID string) bool {
	return r.ChallengeID == challengeID && r.ContentID == contentID
}
