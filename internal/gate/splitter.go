package gate

import (
	"fmt"
	"math/big"

	"github.com/creatorpay/creatorpay/internal/models"
)

var bpsDenominator = big.NewInt(10000)

// Split divides a total atomic amount between creator and platform.
// The platform fee is floor(total * feeBps / 10000) and the creator receives
// the remainder, so the two shares always reconstruct the total exactly.
// Integer arithmetic only.
func Split(totalAtomic *big.Int, platformFeeBps int64) (creatorAmount, platformFee *big.Int, err error) {
	if platformFeeBps < 0 || platformFeeBps > 10000 {
		return nil, nil, fmt.Errorf("fee rate %d bps: %w", platformFeeBps, models.ErrInvalidFeeRate)
	}
	if totalAtomic == nil || totalAtomic.Sign() < 0 {
		return nil, nil, fmt.Errorf("total amount must be non-negative")
	}

	platformFee = new(big.Int).Mul(totalAtomic, big.NewInt(platformFeeBps))
	platformFee.Quo(platformFee, bpsDenominator)
	creatorAmount = new(big.Int).Sub(totalAtomic, platformFee)
	return creatorAmount, platformFee, nil
}
