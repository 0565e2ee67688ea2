package blockchain

import (
	"math/big"
	"testing"

	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferLog(token common.Address, topic common.Hash, from, to common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			topic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.BigToHash(amount).Bytes(),
	}
}

func TestDecodeTransfers(t *testing.T) {
	token := common.BytesToAddress([]byte{0x01})
	otherToken := common.BytesToAddress([]byte{0xff})
	sender := common.BytesToAddress([]byte{0x02})
	recipient := common.BytesToAddress([]byte{0x03})

	decoder, err := NewTransferDecoder(token.Hex())
	require.NoError(t, err)

	receipt := &types.Receipt{
		Logs: []*types.Log{
			// Transfer of another token, must be ignored.
			transferLog(otherToken, decoder.TransferTopic(), sender, recipient, big.NewInt(999)),
			// Non-transfer event of the configured token, wrong topic count.
			{Address: token, Topics: []common.Hash{decoder.TransferTopic()}},
			// The matching transfer.
			transferLog(token, decoder.TransferTopic(), sender, recipient, big.NewInt(50000)),
		},
	}

	transfers := decoder.DecodeTransfers(receipt)
	require.Len(t, transfers, 1)
	assert.Equal(t, sender.Hex(), transfers[0].From)
	assert.Equal(t, recipient.Hex(), transfers[0].To)
	assert.Equal(t, "50000", transfers[0].Amount.String())
}

func TestDecodeTransfersEmptyReceipt(t *testing.T) {
	token := common.BytesToAddress([]byte{0x01})
	decoder, err := NewTransferDecoder(token.Hex())
	require.NoError(t, err)

	assert.Empty(t, decoder.DecodeTransfers(&types.Receipt{}))
}

func TestDecodeTransfersMultipleMatches(t *testing.T) {
	token := common.BytesToAddress([]byte{0x01})
	sender := common.BytesToAddress([]byte{0x02})
	a := common.BytesToAddress([]byte{0x03})
	b := common.BytesToAddress([]byte{0x04})

	decoder, err := NewTransferDecoder(token.Hex())
	require.NoError(t, err)

	receipt := &types.Receipt{
		Logs: []*types.Log{
			transferLog(token, decoder.TransferTopic(), sender, a, big.NewInt(100)),
			transferLog(token, decoder.TransferTopic(), sender, b, big.NewInt(200)),
		},
	}

	transfers := decoder.DecodeTransfers(receipt)
	require.Len(t, transfers, 2)
	assert.Equal(t, a.Hex(), transfers[0].To)
	assert.Equal(t, b.Hex(), transfers[1].To)
}

func TestNewTransferDecoderRejectsBadAddress(t *testing.T) {
	_, err := NewTransferDecoder("not-an-address")
	assert.Error(t, err)
}
