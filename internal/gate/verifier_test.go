package gate

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay/creatorpay/internal/blockchain"
	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/internal/repository"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

// fakeChain is a test double for the chain RPC capability.
type fakeChain struct {
	pending    bool
	txErr      error
	receipt    *types.Receipt
	receiptErr error
	head       *big.Int
	headErr    error

	txFailures int // transient failures before GetTransaction succeeds
	txCalls    int
}

func (f *fakeChain) GetTransaction(ctx context.Context, txHash string) (*types.Transaction, bool, error) {
	f.txCalls++
	if f.txCalls <= f.txFailures {
		return nil, false, fmt.Errorf("dial tcp: connection refused: %w", models.ErrChainRPCUnavailable)
	}
	if f.txErr != nil {
		return nil, false, f.txErr
	}
	return nil, f.pending, nil
}

func (f *fakeChain) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return f.receipt, nil
}

func (f *fakeChain) HeadBlockNumber(ctx context.Context) (*big.Int, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return f.head, nil
}

type verifierFixture struct {
	tokenAddr     common.Address
	senderAddr    common.Address
	recipientAddr common.Address
	decoder       *blockchain.TransferDecoder
	repo          *repository.MemoryDB
	challenge     *models.PaymentChallenge
}

func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()

	f := &verifierFixture{
		tokenAddr:     common.BytesToAddress([]byte{0x01}),
		senderAddr:    common.BytesToAddress([]byte{0x02}),
		recipientAddr: common.BytesToAddress([]byte{0x03}),
		repo:          repository.NewMemoryDB(),
	}

	decoder, err := blockchain.NewTransferDecoder(f.tokenAddr.Hex())
	require.NoError(t, err)
	f.decoder = decoder

	f.challenge = &models.PaymentChallenge{
		ID:               "ch-1",
		ContentID:        "content-1",
		CreatorID:        "creator-1",
		RecipientAddress: f.recipientAddr.Hex(),
		TokenContract:    f.tokenAddr.Hex(),
		ChainID:          1,
		AmountAtomic:     "50000",
		IssuedAt:         time.Now().Unix(),
		ExpiresAt:        time.Now().Unix() + 300,
		Status:           models.ChallengeOpen,
	}
	require.NoError(t, f.repo.CreateChallenge(f.challenge))
	return f
}

// transferReceipt builds a successful receipt with one Transfer log of the
// configured token paying amount to the given recipient.
func (f *verifierFixture) transferReceipt(to common.Address, amount int64) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs: []*types.Log{
			{
				Address: f.tokenAddr,
				Topics: []common.Hash{
					f.decoder.TransferTopic(),
					common.BytesToHash(f.senderAddr.Bytes()),
					common.BytesToHash(to.Bytes()),
				},
				Data: common.BigToHash(big.NewInt(amount)).Bytes(),
			},
		},
	}
}

func (f *verifierFixture) newVerifier(chain models.BlockchainService, confirmations uint64) *Verifier {
	v := NewVerifier(chain, f.decoder, f.repo, logger.NewNopLogger(), confirmations)
	v.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return v
}

func TestVerifyValidPayment(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{
		receipt: f.transferReceipt(f.recipientAddr, 50000),
		head:    big.NewInt(100),
	}
	v := f.newVerifier(chain, 1)

	result, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "50000", result.AmountAtomic.String())
	assert.Equal(t, f.senderAddr.Hex(), result.PayerAddress)
}

func TestVerifyOverpaymentAccepted(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{receipt: f.transferReceipt(f.recipientAddr, 60000), head: big.NewInt(100)}
	v := f.newVerifier(chain, 1)

	result, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.NoError(t, err)
	assert.Equal(t, "60000", result.AmountAtomic.String())
}

func TestVerifyUnderpaymentRejected(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{receipt: f.transferReceipt(f.recipientAddr, 49999), head: big.NewInt(100)}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeAmountMismatch, models.CodeOf(err))
	assert.False(t, models.IsRetryable(err))
}

func TestVerifyWrongRecipientLeavesChallengeOpen(t *testing.T) {
	f := newVerifierFixture(t)
	other := common.BytesToAddress([]byte{0x99})
	chain := &fakeChain{receipt: f.transferReceipt(other, 50000), head: big.NewInt(100)}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeWrongRecipient, models.CodeOf(err))

	stored, err := f.repo.GetChallenge("ch-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeOpen, stored.Status)
}

func TestVerifyRecipientCaseInsensitive(t *testing.T) {
	f := newVerifierFixture(t)
	f.challenge.RecipientAddress = "0x" + common.Bytes2Hex(f.recipientAddr.Bytes())
	chain := &fakeChain{receipt: f.transferReceipt(f.recipientAddr, 50000), head: big.NewInt(100)}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	assert.NoError(t, err)
}

func TestVerifyNoMatchingTransfer(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)},
		head:    big.NewInt(100),
	}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeNoMatchingTransfer, models.CodeOf(err))
}

func TestVerifyRevertedTransaction(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{
		receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(100)},
		head:    big.NewInt(100),
	}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeTransactionReverted, models.CodeOf(err))
	assert.False(t, models.IsRetryable(err))
}

func TestVerifyTransactionNotFoundIsRetryable(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{txErr: fmt.Errorf("transaction 0xabc: %w", models.ErrTransactionNotFound)}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeTransactionNotFound, models.CodeOf(err))
	assert.True(t, models.IsRetryable(err))
}

func TestVerifyPendingTransaction(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{pending: true}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotYetConfirmed, models.CodeOf(err))
	assert.True(t, models.IsRetryable(err))
}

func TestVerifyInsufficientConfirmations(t *testing.T) {
	f := newVerifierFixture(t)
	// Head equals inclusion block: one confirmation, three required.
	chain := &fakeChain{receipt: f.transferReceipt(f.recipientAddr, 50000), head: big.NewInt(100)}
	v := f.newVerifier(chain, 3)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotYetConfirmed, models.CodeOf(err))
	assert.True(t, models.IsRetryable(err))
}

func TestVerifyEnoughConfirmations(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{receipt: f.transferReceipt(f.recipientAddr, 50000), head: big.NewInt(102)}
	v := f.newVerifier(chain, 3)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	assert.NoError(t, err)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{receipt: f.transferReceipt(f.recipientAddr, 50000), head: big.NewInt(100)}
	v := f.newVerifier(chain, 1)
	// One second past the deadline, payment otherwise fully valid.
	v.now = func() time.Time { return time.Unix(f.challenge.ExpiresAt+1, 0) }

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeChallengeExpired, models.CodeOf(err))

	stored, err := f.repo.GetChallenge("ch-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeExpired, stored.Status)
}

func TestVerifyRetriesTransientRPCFailures(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{
		txFailures: 2,
		receipt:    f.transferReceipt(f.recipientAddr, 50000),
		head:       big.NewInt(100),
	}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	assert.NoError(t, err)
	assert.Equal(t, 3, chain.txCalls)
}

func TestVerifyExhaustedRetriesSurfaceRetryable(t *testing.T) {
	f := newVerifierFixture(t)
	chain := &fakeChain{txFailures: 10}
	v := f.newVerifier(chain, 1)

	_, err := v.Verify(context.Background(), "0xabc", f.challenge)
	require.Error(t, err)
	assert.Equal(t, models.CodeChainRPCUnavailable, models.CodeOf(err))
	assert.True(t, models.IsRetryable(err))
	assert.Equal(t, rpcRetryAttempts, chain.txCalls)
}
