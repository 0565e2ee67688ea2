package creator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/internal/repository"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

const (
	testWallet      = "0xCB970000000000000000000000000000000000000AAA"
	testOtherWallet = "cb970000000000000000000000000000000000000bbb"
)

func newService(t *testing.T) (*Service, *repository.MemoryDB) {
	t.Helper()
	repo := repository.NewMemoryDB()
	return NewService(repo, logger.NewNopLogger()), repo
}

func onboard(t *testing.T, s *Service, username, wallet string) *models.Creator {
	t.Helper()
	creator, err := s.Onboard(&models.Creator{Username: username, WalletAddress: wallet})
	require.NoError(t, err)
	return creator
}

func TestOnboardNormalizesWallet(t *testing.T) {
	s, _ := newService(t)

	creator := onboard(t, s, "alice", testWallet)
	assert.NotEmpty(t, creator.ID)
	assert.Equal(t, "cb970000000000000000000000000000000000000aaa", creator.WalletAddress)
	assert.True(t, creator.Active)

	stored, err := s.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, creator.ID, stored.ID)
}

func TestOnboardValidation(t *testing.T) {
	s, _ := newService(t)

	_, err := s.Onboard(&models.Creator{WalletAddress: testWallet})
	assert.Error(t, err, "missing username")

	_, err = s.Onboard(&models.Creator{Username: "alice", WalletAddress: "cb97beef"})
	assert.Error(t, err, "short wallet")

	_, err = s.Onboard(&models.Creator{Username: "alice", WalletAddress: "zz970000000000000000000000000000000000000aaa"})
	assert.Error(t, err, "non-hex wallet")
}

func TestOnboardRejectsDuplicates(t *testing.T) {
	s, _ := newService(t)
	onboard(t, s, "alice", testWallet)

	_, err := s.Onboard(&models.Creator{Username: "alice", WalletAddress: testOtherWallet})
	assert.Error(t, err, "duplicate username")

	_, err = s.Onboard(&models.Creator{Username: "alice2", WalletAddress: testWallet})
	assert.Error(t, err, "duplicate wallet")
}

func TestOnboardRejectsWalletVariants(t *testing.T) {
	s, _ := newService(t)
	onboard(t, s, "alice", "cb970000000000000000000000000000000000000aaa")

	// Case and prefix variants of the registered wallet must be caught by
	// the uniqueness check itself.
	variants := []string{
		"CB970000000000000000000000000000000000000AAA",
		"0xcb970000000000000000000000000000000000000aaa",
		"0XCB970000000000000000000000000000000000000AAA",
	}
	for _, wallet := range variants {
		_, err := s.Onboard(&models.Creator{Username: "mallory", WalletAddress: wallet})
		require.Error(t, err, wallet)
		assert.EqualError(t, err, "creator with this username or wallet already exists", wallet)
	}
}

func TestUploadContent(t *testing.T) {
	s, _ := newService(t)
	creator := onboard(t, s, "alice", testWallet)

	content, err := s.Upload(&models.Content{
		CreatorID: creator.ID,
		Title:     "Deep dive",
		Body:      "the gated body",
		PriceUSD:  "0.05",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, content.ID)
	assert.True(t, content.Active)
	assert.Equal(t, content.CreatedAt, content.UpdatedAt)

	stored, err := s.GetContent(content.ID)
	require.NoError(t, err)
	assert.Equal(t, "the gated body", stored.Body)
}

func TestUploadValidation(t *testing.T) {
	s, _ := newService(t)
	creator := onboard(t, s, "alice", testWallet)

	_, err := s.Upload(&models.Content{CreatorID: creator.ID, PriceUSD: "0.05"})
	assert.Error(t, err, "missing title")

	_, err = s.Upload(&models.Content{CreatorID: "ghost", Title: "t", PriceUSD: "0.05"})
	assert.Error(t, err, "unknown creator")

	for _, price := range []string{"", "free", "0", "-1"} {
		_, err = s.Upload(&models.Content{CreatorID: creator.ID, Title: "t", PriceUSD: price})
		require.Error(t, err, "price %q", price)
		assert.Equal(t, models.CodeInvalidPrice, models.CodeOf(err))
	}
}

func TestSetPricing(t *testing.T) {
	s, _ := newService(t)
	creator := onboard(t, s, "alice", testWallet)
	content, err := s.Upload(&models.Content{CreatorID: creator.ID, Title: "t", PriceUSD: "0.05"})
	require.NoError(t, err)

	require.NoError(t, s.SetPricing(content.ID, creator.ID, "0.10"))

	updated, err := s.GetContent(content.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.10", updated.PriceUSD)

	err = s.SetPricing(content.ID, creator.ID, "-0.10")
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidPrice, models.CodeOf(err))

	// Another creator must not reprice someone else's content.
	assert.Error(t, s.SetPricing(content.ID, "someone-else", "0.10"))
}

func TestAnalyticsWindow(t *testing.T) {
	s, repo := newService(t)
	creator := onboard(t, s, "alice", testWallet)
	content, err := s.Upload(&models.Content{CreatorID: creator.ID, Title: "t", PriceUSD: "0.05"})
	require.NoError(t, err)

	now := time.Now()
	s.now = func() time.Time { return now }

	settle := func(txID string, verifiedAt int64) {
		require.NoError(t, repo.CreateChallenge(&models.PaymentChallenge{
			ID:        "ch-" + txID,
			ContentID: content.ID,
			CreatorID: creator.ID,
			Status:    models.ChallengeOpen,
			ExpiresAt: verifiedAt + 300,
		}))
		_, outcome, err := repo.SettlePayment(&models.SettlementRecord{
			TransactionID: txID,
			ChallengeID:   "ch-" + txID,
			ContentID:     content.ID,
			CreatorID:     creator.ID,
			TotalAmount:   "50000",
			CreatorAmount: "40000",
			PlatformFee:   "10000",
			VerifiedAt:    verifiedAt,
		})
		require.NoError(t, err)
		require.Equal(t, models.SettleCreated, outcome)
	}

	settle("0xrecent", now.Add(-24*time.Hour).Unix())
	settle("0xstale", now.Add(-45*24*time.Hour).Unix())

	analytics, err := s.Analytics(creator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalSettlements)
	assert.Equal(t, "40000", analytics.CreatorRevenue)
}
