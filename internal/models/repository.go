package models

// SettleOutcome is the result of the atomic settlement operation.
type SettleOutcome int

const (
	// SettleCreated means a new settlement record was inserted and the
	// challenge was consumed.
	SettleCreated SettleOutcome = iota
	// SettleReplayed means the transaction was already settled for the same
	// challenge and content; the existing record is returned.
	SettleReplayed
	// SettleTransactionReuse means the transaction was already settled for
	// different content or a different challenge. Fraud signal.
	SettleTransactionReuse
	// SettleChallengeConsumed means the challenge was already consumed by a
	// different transaction.
	SettleChallengeConsumed
	// SettleChallengeNotOpen means the challenge is expired or otherwise not
	// open for settlement.
	SettleChallengeNotOpen
)

// GateRepository persists challenges and settlement records.
//
// SettlePayment is the single serialization point of the protocol: it must
// atomically insert the settlement record keyed by transaction id and consume
// the challenge, or report why it could not. Implementations back this with a
// database transaction or a single mutex hold.
type GateRepository interface {
	CreateChallenge(challenge *PaymentChallenge) error
	GetChallenge(id string) (*PaymentChallenge, error)

	// TransitionChallenge compare-and-sets the challenge status. It returns
	// true only if the challenge was in the `from` status and is now in the
	// `to` status with ConsumedBy set to consumedBy.
	TransitionChallenge(id string, from, to ChallengeStatus, consumedBy string) (bool, error)

	SettlePayment(record *SettlementRecord) (*SettlementRecord, SettleOutcome, error)
	GetSettlement(transactionID string) (*SettlementRecord, error)

	// ExpireOpenChallenges transitions every OPEN challenge whose deadline is
	// before now to EXPIRED, returning how many were swept.
	ExpireOpenChallenges(now int64) (int64, error)
}

// CreatorRepository persists creators and their content catalog.
type CreatorRepository interface {
	CreateCreator(creator *Creator) error
	GetCreator(id string) (*Creator, error)
	GetCreatorByUsername(username string) (*Creator, error)
	CreatorExists(username, walletAddress string) (bool, error)

	CreateContent(content *Content) error
	GetContent(id string) (*Content, error)
	UpdateContentPrice(contentID, creatorID, priceUSD string, updatedAt int64) error
	SearchContent(filter ContentFilter) ([]*Content, error)

	CreatorAnalytics(creatorID string, since int64) (*CreatorAnalytics, error)
	PlatformStats() (*PlatformStats, error)
}

// Repository is the full persistence surface of the service.
type Repository interface {
	GateRepository
	CreatorRepository
}

// CreatorAnalytics summarizes a creator's catalog and recent revenue.
type CreatorAnalytics struct {
	TotalContent       int64  `json:"total_content"`
	ActiveContent      int64  `json:"active_content"`
	TotalSettlements   int64  `json:"total_settlements"`
	CreatorRevenue     string `json:"creator_revenue_atomic"`
	MonetizedContent   int64  `json:"monetized_content"`
	PeriodStartedAt    int64  `json:"period_started_at"`
}

// PlatformStats summarizes platform-wide totals.
type PlatformStats struct {
	TotalCreators    int64  `json:"total_creators"`
	TotalContent     int64  `json:"total_content"`
	TotalSettlements int64  `json:"total_settlements"`
	TotalVolume      string `json:"total_volume_atomic"`
	PlatformRevenue  string `json:"platform_revenue_atomic"`
}
