package gate

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

// Issuer creates and stores time-bounded payment challenges. The atomic
// amount is fixed at issuance so verification later compares the exact same
// integer, never a recomputed one.
type Issuer struct {
	logger *logger.Logger
	repo   models.GateRepository

	tokenContract string
	chainID       int64
	tokenDecimals int
	ttl           time.Duration

	now func() time.Time
}

// NewIssuer creates a new Issuer instance.
func NewIssuer(repo models.GateRepository, logger *logger.Logger, tokenContract string, chainID int64, tokenDecimals int, ttl time.Duration) *Issuer {
	return &Issuer{
		logger:        logger,
		repo:          repo,
		tokenContract: tokenContract,
		chainID:       chainID,
		tokenDecimals: tokenDecimals,
		ttl:           ttl,
		now:           time.Now,
	}
}

// Issue creates an OPEN challenge for the given content and stores it so the
// follow-up request carrying payment proof can retrieve it.
func (i *Issuer) Issue(content *models.Content, creator *models.Creator) (*models.PaymentChallenge, error) {
	amount, err := AtomicAmount(content.PriceUSD, i.tokenDecimals)
	if err != nil {
		return nil, err
	}

	issuedAt := i.now()
	challenge := &models.PaymentChallenge{
		ID:               uuid.NewString(),
		ContentID:        content.ID,
		CreatorID:        creator.ID,
		RecipientAddress: creator.WalletAddress,
		TokenContract:    i.tokenContract,
		ChainID:          i.chainID,
		AmountAtomic:     amount.String(),
		IssuedAt:         issuedAt.Unix(),
		ExpiresAt:        issuedAt.Add(i.ttl).Unix(),
		Status:           models.ChallengeOpen,
	}

	if err := i.repo.CreateChallenge(challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	i.logger.Debug("Challenge issued ", "challenge ", challenge.ID, " content ", content.ID, " amount ", challenge.AmountAtomic)
	return challenge, nil
}

// AtomicAmount converts a decimal price string to the token's smallest unit,
// rounding half-up. Fails for non-positive or unparseable prices, and for
// prices that round to zero atomic units.
func AtomicAmount(priceDecimal string, tokenDecimals int) (*big.Int, error) {
	price, err := decimal.NewFromString(priceDecimal)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", priceDecimal, models.ErrInvalidPrice)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("price %q: %w", priceDecimal, models.ErrInvalidPrice)
	}

	// Round(0) rounds half away from zero; for positive prices that is the
	// documented round-half-up rule.
	atomic := price.Shift(int32(tokenDecimals)).Round(0).BigInt()
	if atomic.Sign() <= 0 {
		// A zero-amount challenge would be satisfied by any transfer.
		return nil, fmt.Errorf("price %q rounds to zero atomic units: %w", priceDecimal, models.ErrInvalidPrice)
	}
	return atomic, nil
}
