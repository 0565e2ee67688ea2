package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	core "github.com/core-coin/go-core/v2"
	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/core-coin/go-core/v2/xcbclient"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

const (
	// RPCCallTimeout bounds every single call to the chain RPC endpoint.
	RPCCallTimeout = 10 * time.Second
)

// Gocore adapts the go-core RPC client to the models.BlockchainService
// capability consumed by the verifier.
type Gocore struct {
	logger *logger.Logger
	apiURL string
	client *xcbclient.Client
}

// NewGocore creates a new Gocore instance.
func NewGocore(apiURL string, logger *logger.Logger) *Gocore {
	return &Gocore{apiURL: apiURL, logger: logger}
}

func (g *Gocore) ConnectToRPC() error {
	client, err := xcbclient.Dial(g.apiURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	g.client = client
	return nil
}

func (g *Gocore) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}

// GetTransaction fetches a transaction by hash. A missing transaction maps to
// the retryable TransactionNotFound error (it may not have propagated yet);
// any other RPC failure maps to ChainRPCUnavailable.
func (g *Gocore) GetTransaction(ctx context.Context, txHash string) (*types.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, RPCCallTimeout)
	defer cancel()

	tx, pending, err := g.client.TransactionByHash(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, core.NotFound) {
			return nil, false, fmt.Errorf("transaction %s: %w", txHash, models.ErrTransactionNotFound)
		}
		return nil, false, fmt.Errorf("failed to get transaction %s: %s: %w", txHash, err, models.ErrChainRPCUnavailable)
	}
	return tx, pending, nil
}

// GetTransactionReceipt fetches the receipt of a mined transaction.
func (g *Gocore) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, RPCCallTimeout)
	defer cancel()

	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, core.NotFound) {
			return nil, fmt.Errorf("receipt for %s: %w", txHash, models.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction receipt %s: %s: %w", txHash, err, models.ErrChainRPCUnavailable)
	}
	return receipt, nil
}

// HeadBlockNumber returns the current chain head block number, used to count
// confirmations since a transaction's inclusion block.
func (g *Gocore) HeadBlockNumber(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, RPCCallTimeout)
	defer cancel()

	header, err := g.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain head: %s: %w", err, models.ErrChainRPCUnavailable)
	}
	return header.Number, nil
}
