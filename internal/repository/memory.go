package repository

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/creatorpay/creatorpay/internal/models"
)

// MemoryDB is an in-memory Repository for storage-less deployments and tests.
// A single mutex guards all maps, so the settle operation is one atomic step:
// the transaction-id key check and the challenge consumption happen under the
// same lock hold.
type MemoryDB struct {
	mu sync.Mutex

	creators    map[string]*models.Creator
	contents    map[string]*models.Content
	challenges  map[string]*models.PaymentChallenge
	settlements map[string]*models.SettlementRecord
}

// NewMemoryDB creates an empty in-memory repository.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		creators:    make(map[string]*models.Creator),
		contents:    make(map[string]*models.Content),
		challenges:  make(map[string]*models.PaymentChallenge),
		settlements: make(map[string]*models.SettlementRecord),
	}
}

func (db *MemoryDB) CreateChallenge(challenge *models.PaymentChallenge) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.challenges[challenge.ID]; ok {
		return fmt.Errorf("challenge %s already exists", challenge.ID)
	}
	clone := *challenge
	db.challenges[challenge.ID] = &clone
	return nil
}

func (db *MemoryDB) GetChallenge(id string) (*models.PaymentChallenge, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	challenge, ok := db.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge %s: %w", id, models.ErrChallengeNotFound)
	}
	clone := *challenge
	return &clone, nil
}

func (db *MemoryDB) TransitionChallenge(id string, from, to models.ChallengeStatus, consumedBy string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	challenge, ok := db.challenges[id]
	if !ok {
		return false, fmt.Errorf("challenge %s: record not found", id)
	}
	if challenge.Status != from {
		return false, nil
	}
	challenge.Status = to
	challenge.ConsumedBy = consumedBy
	return true, nil
}

func (db *MemoryDB) SettlePayment(record *models.SettlementRecord) (*models.SettlementRecord, models.SettleOutcome, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.settlements[record.TransactionID]; ok {
		clone := *existing
		if existing.SameRequest(record.ChallengeID, record.ContentID) {
			return &clone, models.SettleReplayed, nil
		}
		return &clone, models.SettleTransactionReuse, nil
	}

	challenge, ok := db.challenges[record.ChallengeID]
	if !ok {
		return nil, 0, fmt.Errorf("challenge %s: record not found", record.ChallengeID)
	}
	switch challenge.Status {
	case models.ChallengeConsumed:
		return nil, models.SettleChallengeConsumed, nil
	case models.ChallengeExpired:
		return nil, models.SettleChallengeNotOpen, nil
	}

	challenge.Status = models.ChallengeConsumed
	challenge.ConsumedBy = record.TransactionID
	clone := *record
	db.settlements[record.TransactionID] = &clone
	result := clone
	return &result, models.SettleCreated, nil
}

func (db *MemoryDB) GetSettlement(transactionID string) (*models.SettlementRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	record, ok := db.settlements[transactionID]
	if !ok {
		return nil, fmt.Errorf("settlement %s: record not found", transactionID)
	}
	clone := *record
	return &clone, nil
}

func (db *MemoryDB) ExpireOpenChallenges(now int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var swept int64
	for _, challenge := range db.challenges {
		if challenge.Status == models.ChallengeOpen && challenge.ExpiresAt < now {
			challenge.Status = models.ChallengeExpired
			swept++
		}
	}
	return swept, nil
}

func (db *MemoryDB) CreateCreator(creator *models.Creator) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.creators {
		if existing.Username == creator.Username || existing.WalletAddress == creator.WalletAddress {
			return fmt.Errorf("creator with username or wallet already exists")
		}
	}
	clone := *creator
	db.creators[creator.ID] = &clone
	return nil
}

func (db *MemoryDB) GetCreator(id string) (*models.Creator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	creator, ok := db.creators[id]
	if !ok {
		return nil, fmt.Errorf("creator %s: record not found", id)
	}
	clone := *creator
	return &clone, nil
}

func (db *MemoryDB) GetCreatorByUsername(username string) (*models.Creator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, creator := range db.creators {
		if creator.Username == username {
			clone := *creator
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("creator %s: record not found", username)
}

func (db *MemoryDB) CreatorExists(username, walletAddress string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, creator := range db.creators {
		if creator.Username == username || creator.WalletAddress == walletAddress {
			return true, nil
		}
	}
	return false, nil
}

func (db *MemoryDB) CreateContent(content *models.Content) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.contents[content.ID]; ok {
		return fmt.Errorf("content %s already exists", content.ID)
	}
	clone := *content
	db.contents[content.ID] = &clone
	return nil
}

func (db *MemoryDB) GetContent(id string) (*models.Content, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	content, ok := db.contents[id]
	if !ok {
		return nil, fmt.Errorf("content %s: record not found", id)
	}
	clone := *content
	return &clone, nil
}

func (db *MemoryDB) UpdateContentPrice(contentID, creatorID, priceUSD string, updatedAt int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	content, ok := db.contents[contentID]
	if !ok || content.CreatorID != creatorID {
		return fmt.Errorf("content %s: record not found", contentID)
	}
	content.PriceUSD = priceUSD
	content.UpdatedAt = updatedAt
	return nil
}

func (db *MemoryDB) SearchContent(filter models.ContentFilter) ([]*models.Content, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var maxPrice decimal.Decimal
	hasMaxPrice := false
	if filter.MaxPriceUSD != "" {
		parsed, err := decimal.NewFromString(filter.MaxPriceUSD)
		if err != nil {
			return nil, fmt.Errorf("invalid max price %q: %s", filter.MaxPriceUSD, err)
		}
		maxPrice = parsed
		hasMaxPrice = true
	}

	var results []*models.Content
	for _, content := range db.contents {
		if !content.Active {
			continue
		}
		if filter.CreatorID != "" && content.CreatorID != filter.CreatorID {
			continue
		}
		if filter.ContentType != "" && content.ContentType != filter.ContentType {
			continue
		}
		if filter.Query != "" {
			needle := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(content.Title), needle) &&
				!strings.Contains(strings.ToLower(content.Excerpt), needle) {
				continue
			}
		}
		if hasMaxPrice {
			price, err := decimal.NewFromString(content.PriceUSD)
			if err != nil || price.GreaterThan(maxPrice) {
				continue
			}
		}
		clone := *content
		results = append(results, &clone)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt > results[j].CreatedAt })

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (db *MemoryDB) CreatorAnalytics(creatorID string, since int64) (*models.CreatorAnalytics, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	analytics := &models.CreatorAnalytics{PeriodStartedAt: since}
	for _, content := range db.contents {
		if content.CreatorID != creatorID {
			continue
		}
		analytics.TotalContent++
		if content.Active {
			analytics.ActiveContent++
		}
	}

	revenue := new(big.Int)
	monetized := make(map[string]struct{})
	for _, record := range db.settlements {
		if record.CreatorID != creatorID || record.VerifiedAt < since {
			continue
		}
		analytics.TotalSettlements++
		monetized[record.ContentID] = struct{}{}
		if amount, ok := new(big.Int).SetString(record.CreatorAmount, 10); ok {
			revenue.Add(revenue, amount)
		}
	}
	analytics.MonetizedContent = int64(len(monetized))
	analytics.CreatorRevenue = revenue.String()
	return analytics, nil
}

func (db *MemoryDB) PlatformStats() (*models.PlatformStats, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stats := &models.PlatformStats{}
	for _, creator := range db.creators {
		if creator.Active {
			stats.TotalCreators++
		}
	}
	for _, content := range db.contents {
		if content.Active {
			stats.TotalContent++
		}
	}

	volume := new(big.Int)
	fees := new(big.Int)
	for _, record := range db.settlements {
		stats.TotalSettlements++
		if amount, ok := new(big.Int).SetString(record.TotalAmount, 10); ok {
			volume.Add(volume, amount)
		}
		if fee, ok := new(big.Int).SetString(record.PlatformFee, 10); ok {
			fees.Add(fees, fee)
		}
	}
	stats.TotalVolume = volume.String()
	stats.PlatformRevenue = fees.String()
	return stats, nil
}
