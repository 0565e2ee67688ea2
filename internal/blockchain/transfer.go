package blockchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/core-coin/go-core/v2/accounts/abi"
	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
)

// CBC20ABI is the ABI of a CBC20 token contract, used to identify and decode
// Transfer events in transaction receipts.
const CBC20ABI = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"owner","type":"address"},{"indexed":true,"internalType":"address","name":"spender","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Approval","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"sender","type":"address"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

// Transfer is a decoded token transfer from a receipt log.
type Transfer struct {
	From   string
	To     string
	Amount *big.Int
}

// TransferDecoder extracts canonical Transfer events of a single configured
// token contract from transaction receipts. The event layout is fixed:
// topics[0] is the event signature, topics[1] the sender, topics[2] the
// recipient, and the 32-byte data payload is the amount.
type TransferDecoder struct {
	tokenAddress  common.Address
	transferTopic common.Hash
}

// NewTransferDecoder builds a decoder for the given token contract address.
func NewTransferDecoder(tokenContract string) (*TransferDecoder, error) {
	tokenAddress, err := common.HexToAddress(tokenContract)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token contract address: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(CBC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse CBC20 ABI: %w", err)
	}

	event, ok := parsedABI.Events["Transfer"]
	if !ok {
		return nil, fmt.Errorf("CBC20 ABI has no Transfer event")
	}

	return &TransferDecoder{
		tokenAddress:  tokenAddress,
		transferTopic: event.ID,
	}, nil
}

// TransferTopic returns the Transfer event signature topic of the CBC20 ABI.
func (d *TransferDecoder) TransferTopic() common.Hash {
	return d.transferTopic
}

// DecodeTransfers returns every Transfer event of the configured token found
// in the receipt logs. A nil slice means the receipt carries no transfer of
// this token at all.
func (d *TransferDecoder) DecodeTransfers(receipt *types.Receipt) []*Transfer {
	var transfers []*Transfer
	for _, log := range receipt.Logs {
		if log == nil || log.Address != d.tokenAddress {
			continue
		}
		// Indexed from + indexed to: signature topic plus two address topics.
		if len(log.Topics) != 3 || log.Topics[0] != d.transferTopic {
			continue
		}
		transfers = append(transfers, &Transfer{
			From:   common.BytesToAddress(log.Topics[1].Bytes()).Hex(),
			To:     common.BytesToAddress(log.Topics[2].Bytes()).Hex(),
			Amount: new(big.Int).SetBytes(log.Data),
		})
	}
	return transfers
}
