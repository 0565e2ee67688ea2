package models

// ChallengeStatus is the lifecycle state of a payment challenge.
// OPEN challenges may be consumed or expired; CONSUMED and EXPIRED are terminal.
type ChallengeStatus string

const (
	ChallengeOpen     ChallengeStatus = "OPEN"
	ChallengeConsumed ChallengeStatus = "CONSUMED"
	ChallengeExpired  ChallengeStatus = "EXPIRED"
)

// PaymentChallenge is a time-bounded, single-use record of the payment that
// will unlock a specific piece of content. Challenges are never deleted;
// they are retained for audit.
type PaymentChallenge struct {
	// ID is the unique, unguessable challenge token.
	ID string `json:"id" gorm:"column:id;primaryKey;size:64"`
	// ContentID is the content this challenge unlocks.
	ContentID string `json:"content_id" gorm:"column:content_id;index;not null"`
	// CreatorID is the creator who receives the payment.
	CreatorID string `json:"creator_id" gorm:"column:creator_id;index"`
	// RecipientAddress is the creator wallet that must receive the transfer.
	RecipientAddress string `json:"recipient_address" gorm:"column:recipient_address;not null"`
	// TokenContract is the token contract the transfer must originate from.
	TokenContract string `json:"token_contract" gorm:"column:token_contract;not null"`
	// ChainID is the network the payment must settle on.
	ChainID int64 `json:"chain_id" gorm:"column:chain_id"`
	// AmountAtomic is the required amount in the token's smallest unit,
	// as a base-10 string. Computed once at issuance, never recomputed.
	AmountAtomic string `json:"amount_atomic" gorm:"column:amount_atomic;not null"`
	// IssuedAt is the Unix timestamp the challenge was created.
	IssuedAt int64 `json:"issued_at" gorm:"column:issued_at"`
	// ExpiresAt is the Unix timestamp after which the challenge is dead.
	ExpiresAt int64 `json:"expires_at" gorm:"column:expires_at;index"`
	// Status is the lifecycle state.
	Status ChallengeStatus `json:"status" gorm:"column:status;index;not null"`
	// ConsumedBy is the transaction id that consumed the challenge, if any.
	ConsumedBy string `json:"consumed_by,omitempty" gorm:"column:consumed_by"`
}

// TableName specifies the table name for GORM
func (PaymentChallenge) TableName() string {
	return "payment_challenges"
}

// Expired reports whether the challenge deadline has passed at the given time.
func (c *PaymentChallenge) Expired(now int64) bool {
	return now > c.ExpiresAt
}
