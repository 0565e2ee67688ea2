package creator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
	"github.com/creatorpay/creatorpay/pkg/validation"
)

const (
	// analyticsWindow is the revenue reporting period.
	analyticsWindow = 30 * 24 * time.Hour
)

// Service handles creator onboarding and the gated content catalog.
type Service struct {
	logger *logger.Logger
	repo   models.CreatorRepository

	now func() time.Time
}

// NewService creates a new creator Service instance.
func NewService(repo models.CreatorRepository, logger *logger.Logger) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// Onboard registers a new creator after validating the payout wallet and
// checking username/wallet uniqueness.
func (s *Service) Onboard(creator *models.Creator) (*models.Creator, error) {
	if creator.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if err := validation.ValidateAddress(creator.WalletAddress); err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}
	// Normalize before the uniqueness check so case or prefix variants of a
	// registered wallet are caught here.
	creator.WalletAddress = validation.NormalizeAddress(creator.WalletAddress)

	exists, err := s.repo.CreatorExists(creator.Username, creator.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to check creator existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("creator with this username or wallet already exists")
	}

	creator.ID = uuid.NewString()
	creator.CreatedAt = s.now().Unix()
	creator.Active = true

	if err := s.repo.CreateCreator(creator); err != nil {
		return nil, fmt.Errorf("failed to store creator: %w", err)
	}

	s.logger.Info("Creator onboarded ", "creator ", creator.ID, " username ", creator.Username)
	return creator, nil
}

// GetByUsername returns an active creator profile.
func (s *Service) GetByUsername(username string) (*models.Creator, error) {
	return s.repo.GetCreatorByUsername(username)
}

// Get returns a creator by id.
func (s *Service) Get(id string) (*models.Creator, error) {
	return s.repo.GetCreator(id)
}

// Upload stores new gated content for a creator. The price must be a
// positive decimal; the atomic amount is derived later at challenge issuance.
func (s *Service) Upload(content *models.Content) (*models.Content, error) {
	if content.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if _, err := s.repo.GetCreator(content.CreatorID); err != nil {
		return nil, fmt.Errorf("unknown creator %s: %w", content.CreatorID, err)
	}
	if err := validatePrice(content.PriceUSD); err != nil {
		return nil, err
	}

	content.ID = uuid.NewString()
	content.CreatedAt = s.now().Unix()
	content.UpdatedAt = content.CreatedAt
	content.Active = true

	if err := s.repo.CreateContent(content); err != nil {
		return nil, fmt.Errorf("failed to store content: %w", err)
	}

	s.logger.Info("Content uploaded ", "content ", content.ID, " creator ", content.CreatorID, " price ", content.PriceUSD)
	return content, nil
}

// GetContent returns a single content record.
func (s *Service) GetContent(id string) (*models.Content, error) {
	return s.repo.GetContent(id)
}

// SetPricing updates the price of content owned by the given creator.
// Challenges already issued keep their snapshot amount; they simply expire.
func (s *Service) SetPricing(contentID, creatorID, priceUSD string) error {
	if err := validatePrice(priceUSD); err != nil {
		return err
	}
	if err := s.repo.UpdateContentPrice(contentID, creatorID, priceUSD, s.now().Unix()); err != nil {
		return fmt.Errorf("failed to update pricing: %w", err)
	}
	s.logger.Info("Content price updated ", "content ", contentID, " price ", priceUSD)
	return nil
}

// Search filters the active content catalog.
func (s *Service) Search(filter models.ContentFilter) ([]*models.Content, error) {
	return s.repo.SearchContent(filter)
}

// Analytics summarizes a creator's catalog and last-30-days revenue.
func (s *Service) Analytics(creatorID string) (*models.CreatorAnalytics, error) {
	since := s.now().Add(-analyticsWindow).Unix()
	return s.repo.CreatorAnalytics(creatorID, since)
}

// Stats returns platform-wide totals.
func (s *Service) Stats() (*models.PlatformStats, error) {
	return s.repo.PlatformStats()
}

func validatePrice(priceUSD string) error {
	price, err := decimal.NewFromString(priceUSD)
	if err != nil {
		return fmt.Errorf("price %q: %w", priceUSD, models.ErrInvalidPrice)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("price %q: %w", priceUSD, models.ErrInvalidPrice)
	}
	return nil
}
