package gate

import (
	"fmt"
	"math/big"
	"time"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

// Ledger records accepted transactions exactly once. The repository's atomic
// settle operation is the sole serialization point: concurrent requests
// presenting the same transaction id race safely into it, and exactly one
// record is created.
type Ledger struct {
	logger *logger.Logger
	repo   models.GateRepository

	platformFeeBps int64

	now func() time.Time
}

// NewLedger creates a new Ledger instance.
func NewLedger(repo models.GateRepository, logger *logger.Logger, platformFeeBps int64) *Ledger {
	return &Ledger{
		logger:         logger,
		repo:           repo,
		platformFeeBps: platformFeeBps,
		now:            time.Now,
	}
}

// Settle records the verified payment. Re-presenting the same transaction for
// the same challenge returns the original record; presenting it for different
// content fails with TransactionReuse and is flagged for operator review.
func (l *Ledger) Settle(transactionID string, challenge *models.PaymentChallenge, amountAtomic *big.Int) (*models.SettlementRecord, error) {
	creatorAmount, platformFee, err := Split(amountAtomic, l.platformFeeBps)
	if err != nil {
		return nil, err
	}

	record := &models.SettlementRecord{
		TransactionID:    transactionID,
		ChallengeID:      challenge.ID,
		ContentID:        challenge.ContentID,
		CreatorID:        challenge.CreatorID,
		RecipientAddress: challenge.RecipientAddress,
		TotalAmount:      amountAtomic.String(),
		CreatorAmount:    creatorAmount.String(),
		PlatformFee:      platformFee.String(),
		VerifiedAt:       l.now().Unix(),
	}

	settled, outcome, err := l.repo.SettlePayment(record)
	if err != nil {
		return nil, fmt.Errorf("failed to settle payment: %w", err)
	}

	switch outcome {
	case models.SettleCreated:
		l.logger.Info("Payment settled ", "tx ", transactionID, " challenge ", challenge.ID, " creator_amount ", record.CreatorAmount, " platform_fee ", record.PlatformFee)
		return settled, nil
	case models.SettleReplayed:
		l.logger.Debug("Idempotent settlement replay ", "tx ", transactionID, " challenge ", challenge.ID)
		return settled, nil
	case models.SettleTransactionReuse:
		// Fraud signal, not a benign race: the same transaction was presented
		// for different content.
		l.logger.Warn("Transaction reuse attempt flagged for review ",
			"tx ", transactionID,
			" challenge ", challenge.ID,
			" prior_challenge ", settled.ChallengeID,
			" prior_content ", settled.ContentID)
		return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrTransactionReuse)
	case models.SettleChallengeConsumed:
		return nil, fmt.Errorf("challenge %s: %w", challenge.ID, models.ErrChallengeAlreadyConsumed)
	case models.SettleChallengeNotOpen:
		return nil, fmt.Errorf("challenge %s: %w", challenge.ID, models.ErrChallengeExpired)
	default:
		return nil, fmt.Errorf("unknown settle outcome %d for transaction %s", outcome, transactionID)
	}
}
