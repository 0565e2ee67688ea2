package gate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay/creatorpay/internal/models"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		total         string
		feeBps        int64
		wantCreator   string
		wantPlatform  string
	}{
		{name: "five cent payment at default fee", total: "50000", feeBps: 2000, wantCreator: "40000", wantPlatform: "10000"},
		{name: "zero total", total: "0", feeBps: 2000, wantCreator: "0", wantPlatform: "0"},
		{name: "zero fee", total: "50000", feeBps: 0, wantCreator: "50000", wantPlatform: "0"},
		{name: "full fee", total: "50000", feeBps: 10000, wantCreator: "0", wantPlatform: "50000"},
		{name: "fee floors", total: "3", feeBps: 2000, wantCreator: "3", wantPlatform: "0"},
		{name: "odd amount", total: "12345", feeBps: 1500, wantCreator: "10494", wantPlatform: "1851"},
		{name: "eighteen decimal scale", total: "1000000000000000000", feeBps: 2000, wantCreator: "800000000000000000", wantPlatform: "200000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, ok := new(big.Int).SetString(tt.total, 10)
			require.True(t, ok)

			creator, platform, err := Split(total, tt.feeBps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreator, creator.String())
			assert.Equal(t, tt.wantPlatform, platform.String())

			// The two shares must always reconstruct the total exactly.
			sum := new(big.Int).Add(creator, platform)
			assert.Zero(t, sum.Cmp(total))
		})
	}
}

func TestSplitInvalidFeeRate(t *testing.T) {
	for _, feeBps := range []int64{-1, 10001, 99999} {
		_, _, err := Split(big.NewInt(100), feeBps)
		require.Error(t, err)
		assert.Equal(t, models.CodeInvalidFeeRate, models.CodeOf(err))
	}
}

func TestSplitNegativeTotal(t *testing.T) {
	_, _, err := Split(big.NewInt(-1), 2000)
	assert.Error(t, err)
}
