package models

import (
	"context"
	"math/big"

	"github.com/core-coin/go-core/v2/core/types"
)

// BlockchainService is the chain-query capability the verifier depends on.
// It is injected so tests can substitute a double for the RPC client.
type BlockchainService interface {
	// GetTransaction fetches a transaction by hash. The bool reports whether
	// the transaction is still pending (not yet included in a block).
	GetTransaction(ctx context.Context, txHash string) (*types.Transaction, bool, error)
	// GetTransactionReceipt fetches the receipt of a mined transaction.
	GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
	// HeadBlockNumber returns the current chain head block number.
	HeadBlockNumber(ctx context.Context) (*big.Int, error)
}
