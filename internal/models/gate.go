package models

import "context"

// PaymentRequired is the machine-readable payment instruction returned when a
// request carries no (or not-yet-sufficient) proof of payment.
type PaymentRequired struct {
	ChallengeID      string `json:"challenge_id"`
	RecipientAddress string `json:"recipient_address"`
	TokenContract    string `json:"token_contract"`
	ChainID          int64  `json:"chain_id"`
	AmountAtomic     string `json:"amount_atomic"`
	ExpiresAt        int64  `json:"expires_at"`
	Instructions     string `json:"instructions"`
}

// AccessGrant is returned when a proof of payment verifies and settles; it
// carries the gated content plus the settlement details.
type AccessGrant struct {
	Content       *Content `json:"content"`
	TransactionID string   `json:"transaction_id"`
	CreatorAmount string   `json:"creator_amount"`
	PlatformFee   string   `json:"platform_fee"`
	SettledAt     int64    `json:"settled_at"`
}

// PaymentGate is the protocol engine behind the content access endpoint.
//
// RequestAccess drives one round of the gate state machine: with an empty
// transactionID it issues a fresh challenge and returns it; with a proof it
// verifies and settles, returning the grant. Exactly one of the two results
// is non-nil on a nil error.
type PaymentGate interface {
	RequestAccess(ctx context.Context, content *Content, creator *Creator, challengeID, transactionID string) (*AccessGrant, *PaymentRequired, error)

	// Start launches the challenge-expiry sweep; Stop halts it.
	Start()
	Stop()
}
