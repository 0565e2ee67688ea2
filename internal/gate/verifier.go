package gate

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/core-coin/go-core/v2/core/types"

	"github.com/creatorpay/creatorpay/internal/blockchain"
	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
	"github.com/creatorpay/creatorpay/pkg/validation"
)

const (
	// confirmationAttempts bounds how often the verifier re-polls a
	// transaction that is mined but lacks confirmations before surfacing
	// NotYetConfirmed to the caller.
	confirmationAttempts = 3
	// confirmationBackoff is the initial re-poll delay, doubled per attempt.
	confirmationBackoff = 2 * time.Second

	// rpcRetryAttempts bounds retries of transient RPC failures per call.
	rpcRetryAttempts = 3
	// rpcRetryBackoff is the initial transient-failure delay, doubled per attempt.
	rpcRetryBackoff = 1 * time.Second
)

// VerificationResult reports a passed verification.
type VerificationResult struct {
	Valid bool
	// AmountAtomic is the actually transferred amount (>= the challenge amount).
	AmountAtomic *big.Int
	// PayerAddress is the sender of the matched transfer.
	PayerAddress string
}

// Verifier validates an on-chain transaction against a payment challenge.
// The chain capability is injected so tests can substitute a double.
type Verifier struct {
	logger  *logger.Logger
	chain   models.BlockchainService
	decoder *blockchain.TransferDecoder
	repo    models.GateRepository

	requiredConfirmations uint64

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewVerifier creates a new Verifier instance.
func NewVerifier(chain models.BlockchainService, decoder *blockchain.TransferDecoder, repo models.GateRepository, logger *logger.Logger, requiredConfirmations uint64) *Verifier {
	return &Verifier{
		logger:                logger,
		chain:                 chain,
		decoder:               decoder,
		repo:                  repo,
		requiredConfirmations: requiredConfirmations,
		now:                   time.Now,
		sleep:                 sleepCtx,
	}
}

// Verify checks that the transaction pays the challenge: it exists, executed
// successfully, is confirmed, carries a transfer of the configured token to
// the challenge recipient for at least the challenge amount, and arrives
// before the challenge deadline. Each failure maps to a distinct error kind.
func (v *Verifier) Verify(ctx context.Context, transactionID string, challenge *models.PaymentChallenge) (*VerificationResult, error) {
	var pending bool
	err := v.withTransientRetry(ctx, func() error {
		var err error
		_, pending, err = v.chain.GetTransaction(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("transaction %s still pending: %w", transactionID, models.ErrNotYetConfirmed)
	}

	var receipt *types.Receipt
	err = v.withTransientRetry(ctx, func() error {
		var err error
		receipt, err = v.chain.GetTransactionReceipt(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrTransactionReverted)
	}

	if err := v.waitForConfirmations(ctx, transactionID, receipt); err != nil {
		return nil, err
	}

	transfers := v.decoder.DecodeTransfers(receipt)
	if len(transfers) == 0 {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrNoMatchingTransfer)
	}

	required, ok := new(big.Int).SetString(challenge.AmountAtomic, 10)
	if !ok {
		return nil, fmt.Errorf("challenge %s has malformed amount %q", challenge.ID, challenge.AmountAtomic)
	}

	var matched *blockchain.Transfer
	for _, transfer := range transfers {
		if validation.SameAddress(transfer.To, challenge.RecipientAddress) {
			matched = transfer
			break
		}
	}
	if matched == nil {
		return nil, fmt.Errorf("transaction %s pays %s, challenge expects %s: %w",
			transactionID, transfers[0].To, challenge.RecipientAddress, models.ErrWrongRecipient)
	}

	// Overpayment is accepted, underpayment is not.
	if matched.Amount.Cmp(required) < 0 {
		return nil, fmt.Errorf("transaction %s transfers %s, challenge requires %s: %w",
			transactionID, matched.Amount, required, models.ErrAmountMismatch)
	}

	// A valid payment that lands after the deadline is never honored. The
	// expiry transition races against settlement; first writer wins.
	if challenge.Expired(v.now().Unix()) {
		if _, err := v.repo.TransitionChallenge(challenge.ID, models.ChallengeOpen, models.ChallengeExpired, ""); err != nil {
			v.logger.Error("Failed to expire challenge ", "challenge ", challenge.ID, " error ", err)
		}
		return nil, fmt.Errorf("challenge %s: %w", challenge.ID, models.ErrChallengeExpired)
	}

	return &VerificationResult{
		Valid:        true,
		AmountAtomic: matched.Amount,
		PayerAddress: matched.From,
	}, nil
}

// waitForConfirmations re-polls the chain head until the receipt has the
// required confirmations or the poll attempts run out.
func (v *Verifier) waitForConfirmations(ctx context.Context, transactionID string, receipt *types.Receipt) error {
	if v.requiredConfirmations <= 1 {
		return nil
	}

	backoff := confirmationBackoff
	for attempt := 0; ; attempt++ {
		var head *big.Int
		err := v.withTransientRetry(ctx, func() error {
			var err error
			head, err = v.chain.HeadBlockNumber(ctx)
			return err
		})
		if err != nil {
			return err
		}

		confirmations := new(big.Int).Sub(head, receipt.BlockNumber)
		confirmations.Add(confirmations, big.NewInt(1))
		if confirmations.Sign() > 0 && confirmations.Cmp(new(big.Int).SetUint64(v.requiredConfirmations)) >= 0 {
			return nil
		}

		if attempt == confirmationAttempts-1 {
			return fmt.Errorf("transaction %s has %s of %d confirmations: %w",
				transactionID, confirmations, v.requiredConfirmations, models.ErrNotYetConfirmed)
		}

		v.logger.Debug("Waiting for confirmations ", "tx ", transactionID, " have ", confirmations.String(), " want ", v.requiredConfirmations)
		if err := v.sleep(ctx, backoff); err != nil {
			return fmt.Errorf("%s: %w", err, models.ErrNotYetConfirmed)
		}
		backoff *= 2
	}
}

// withTransientRetry retries fn on ChainRPCUnavailable with doubling backoff.
// Other errors, including TransactionNotFound, pass through untouched; the
// caller decides whether to re-present the proof.
func (v *Verifier) withTransientRetry(ctx context.Context, fn func() error) error {
	backoff := rpcRetryBackoff
	var err error
	for attempt := 0; attempt < rpcRetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if models.CodeOf(err) != models.CodeChainRPCUnavailable {
			return err
		}
		if attempt == rpcRetryAttempts-1 {
			break
		}
		v.logger.Warn("Chain RPC unavailable, retrying ", "error ", err, " retry_in ", backoff)
		if sleepErr := v.sleep(ctx, backoff); sleepErr != nil {
			return fmt.Errorf("%s: %w", sleepErr, models.ErrChainRPCUnavailable)
		}
		backoff *= 2
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
