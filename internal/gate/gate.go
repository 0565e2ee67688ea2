package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

const (
	// expirySweepInterval is how often OPEN challenges past their deadline
	// are swept to EXPIRED.
	expirySweepInterval = 1 * time.Minute
)

// Gate orchestrates challenge issuance, transaction verification, settlement
// and revenue splitting into the request/response protocol.
type Gate struct {
	logger *logger.Logger

	repo        models.GateRepository
	issuer      *Issuer
	verifier    *Verifier
	ledger      *Ledger
	notificator models.NotificationService

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewGate creates a new Gate instance. The notificator may be nil, in which
// case settlements are not announced.
func NewGate(repo models.GateRepository, issuer *Issuer, verifier *Verifier, ledger *Ledger, notificator models.NotificationService, logger *logger.Logger) *Gate {
	return &Gate{
		logger:      logger,
		repo:        repo,
		issuer:      issuer,
		verifier:    verifier,
		ledger:      ledger,
		notificator: notificator,
		done:        make(chan struct{}),
	}
}

// RequestAccess runs one round of the gate state machine for a piece of
// content. Without a transaction id a fresh challenge is issued. With one,
// the stored challenge is verified and settled; retryable failures leave the
// challenge OPEN so the same proof can be re-presented.
func (g *Gate) RequestAccess(ctx context.Context, content *models.Content, creator *models.Creator, challengeID, transactionID string) (*models.AccessGrant, *models.PaymentRequired, error) {
	if transactionID == "" {
		challenge, err := g.issuer.Issue(content, creator)
		if err != nil {
			return nil, nil, err
		}
		return nil, paymentRequired(challenge), nil
	}

	challenge, err := g.repo.GetChallenge(challengeID)
	if err != nil {
		if models.CodeOf(err) == models.CodeChallengeNotFound {
			return nil, nil, err
		}
		// A store failure is not a missing challenge; surface it untouched
		// so the caller does not issue (and pay) a second challenge.
		return nil, nil, fmt.Errorf("failed to load challenge %q: %w", challengeID, err)
	}
	if challenge.ContentID != content.ID {
		// A challenge for other content is as good as no challenge.
		return nil, nil, fmt.Errorf("challenge %q issued for different content: %w", challengeID, models.ErrChallengeNotFound)
	}

	switch challenge.Status {
	case models.ChallengeExpired:
		return nil, nil, fmt.Errorf("challenge %s: %w", challenge.ID, models.ErrChallengeExpired)
	case models.ChallengeConsumed:
		if challenge.ConsumedBy != transactionID {
			return nil, nil, fmt.Errorf("challenge %s: %w", challenge.ID, models.ErrChallengeAlreadyConsumed)
		}
		// Idempotent replay of an already settled request: serve the asset
		// again with the original settlement.
		record, err := g.repo.GetSettlement(transactionID)
		if err != nil {
			return nil, nil, fmt.Errorf("settlement for %s missing: %w", transactionID, err)
		}
		return grant(content, record), nil, nil
	}

	result, err := g.verifier.Verify(ctx, transactionID, challenge)
	if err != nil {
		if models.IsRetryable(err) {
			// State unchanged; hand the challenge back so the caller can
			// re-poll with the same proof.
			return nil, paymentRequired(challenge), err
		}
		return nil, nil, err
	}

	record, err := g.ledger.Settle(transactionID, challenge, result.AmountAtomic)
	if err != nil {
		return nil, nil, err
	}

	if g.notificator != nil {
		go g.notificator.NotifySettlement(creator, content, record)
	}

	return grant(content, record), nil, nil
}

// Start launches the periodic expiry sweep.
func (g *Gate) Start() {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				swept, err := g.repo.ExpireOpenChallenges(time.Now().Unix())
				if err != nil {
					g.logger.Error("Failed to expire challenges ", "error ", err)
					continue
				}
				if swept > 0 {
					g.logger.Debug("Expired open challenges ", "count ", swept)
				}
			case <-g.done:
				return
			}
		}
	}()
}

// Stop halts the expiry sweep.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.done) })
	g.wg.Wait()
}

func paymentRequired(challenge *models.PaymentChallenge) *models.PaymentRequired {
	return &models.PaymentRequired{
		ChallengeID:      challenge.ID,
		RecipientAddress: challenge.RecipientAddress,
		TokenContract:    challenge.TokenContract,
		ChainID:          challenge.ChainID,
		AmountAtomic:     challenge.AmountAtomic,
		ExpiresAt:        challenge.ExpiresAt,
		Instructions: fmt.Sprintf(
			"Transfer %s atomic units of token %s to %s on chain %d, then retry with the transaction hash in the X-Payment-Proof header and challenge id %s in the X-Payment-Challenge header before %s.",
			challenge.AmountAtomic, challenge.TokenContract, challenge.RecipientAddress,
			challenge.ChainID, challenge.ID, time.Unix(challenge.ExpiresAt, 0).UTC().Format(time.RFC3339)),
	}
}

func grant(content *models.Content, record *models.SettlementRecord) *models.AccessGrant {
	return &models.AccessGrant{
		Content:       content,
		TransactionID: record.TransactionID,
		CreatorAmount: record.CreatorAmount,
		PlatformFee:   record.PlatformFee,
		SettledAt:     record.VerifiedAt,
	}
}
