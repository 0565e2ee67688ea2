package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Use standard logger
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log queries slower than this
			LogLevel:                  gormLogger.Warn,        // Only log warnings or errors
			IgnoreRecordNotFoundError: true,                   // Suppress "record not found" errors
			Colorful:                  true,                   // Enable colorful logs
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.Creator{}, &models.Content{}, &models.PaymentChallenge{}, &models.SettlementRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) CreateChallenge(challenge *models.PaymentChallenge) error {
	if err := db.Conn.Create(challenge).Error; err != nil {
		return fmt.Errorf("failed to create challenge: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetChallenge(id string) (*models.PaymentChallenge, error) {
	var challenge models.PaymentChallenge
	if err := db.Conn.Where("id = ?", id).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", id, models.ErrChallengeNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %s", err)
	}
	return &challenge, nil
}

func (db *PostgresDB) TransitionChallenge(id string, from, to models.ChallengeStatus, consumedBy string) (bool, error) {
	res := db.Conn.Model(&models.PaymentChallenge{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "consumed_by": consumedBy})
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition challenge status: %s", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SettlePayment inserts the settlement record and consumes the challenge in
// one database transaction. The challenge row is locked FOR UPDATE so
// concurrent presentations of the same transaction id serialize here.
func (db *PostgresDB) SettlePayment(record *models.SettlementRecord) (*models.SettlementRecord, models.SettleOutcome, error) {
	var settled *models.SettlementRecord
	var outcome models.SettleOutcome

	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		var existing models.SettlementRecord
		err := tx.Where("transaction_id = ?", record.TransactionID).First(&existing).Error
		if err == nil {
			settled = &existing
			if existing.SameRequest(record.ChallengeID, record.ContentID) {
				outcome = models.SettleReplayed
			} else {
				outcome = models.SettleTransactionReuse
			}
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		var challenge models.PaymentChallenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", record.ChallengeID).First(&challenge).Error; err != nil {
			return err
		}

		switch challenge.Status {
		case models.ChallengeConsumed:
			if challenge.ConsumedBy == record.TransactionID {
				// Lost the race against an identical request; serve its record.
				var prior models.SettlementRecord
				if err := tx.Where("transaction_id = ?", record.TransactionID).First(&prior).Error; err != nil {
					return err
				}
				settled = &prior
				outcome = models.SettleReplayed
				return nil
			}
			outcome = models.SettleChallengeConsumed
			return nil
		case models.ChallengeExpired:
			outcome = models.SettleChallengeNotOpen
			return nil
		}

		res := tx.Model(&models.PaymentChallenge{}).
			Where("id = ? AND status = ?", record.ChallengeID, models.ChallengeOpen).
			Updates(map[string]interface{}{"status": models.ChallengeConsumed, "consumed_by": record.TransactionID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			outcome = models.SettleChallengeConsumed
			return nil
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}
		settled = record
		outcome = models.SettleCreated
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to settle payment: %s", err)
	}
	return settled, outcome, nil
}

func (db *PostgresDB) GetSettlement(transactionID string) (*models.SettlementRecord, error) {
	var record models.SettlementRecord
	if err := db.Conn.Where("transaction_id = ?", transactionID).First(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to get settlement: %s", err)
	}
	return &record, nil
}

func (db *PostgresDB) ExpireOpenChallenges(now int64) (int64, error) {
	res := db.Conn.Model(&models.PaymentChallenge{}).
		Where("status = ? AND expires_at < ?", models.ChallengeOpen, now).
		Update("status", models.ChallengeExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire challenges: %s", res.Error)
	}
	return res.RowsAffected, nil
}

func (db *PostgresDB) CreateCreator(creator *models.Creator) error {
	if err := db.Conn.Create(creator).Error; err != nil {
		return fmt.Errorf("failed to create creator: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetCreator(id string) (*models.Creator, error) {
	var creator models.Creator
	if err := db.Conn.Where("id = ?", id).First(&creator).Error; err != nil {
		return nil, fmt.Errorf("failed to get creator: %s", err)
	}
	return &creator, nil
}

func (db *PostgresDB) GetCreatorByUsername(username string) (*models.Creator, error) {
	var creator models.Creator
	if err := db.Conn.Where("username = ?", username).First(&creator).Error; err != nil {
		return nil, fmt.Errorf("failed to get creator by username: %s", err)
	}
	return &creator, nil
}

func (db *PostgresDB) CreatorExists(username, walletAddress string) (bool, error) {
	var creator models.Creator
	err := db.Conn.Where("username = ? OR wallet_address = ?", username, walletAddress).First(&creator).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check if creator exists: %s", err)
	}
	return true, nil
}

func (db *PostgresDB) CreateContent(content *models.Content) error {
	if err := db.Conn.Create(content).Error; err != nil {
		return fmt.Errorf("failed to create content: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetContent(id string) (*models.Content, error) {
	var content models.Content
	if err := db.Conn.Where("id = ?", id).First(&content).Error; err != nil {
		return nil, fmt.Errorf("failed to get content: %s", err)
	}
	return &content, nil
}

func (db *PostgresDB) UpdateContentPrice(contentID, creatorID, priceUSD string, updatedAt int64) error {
	res := db.Conn.Model(&models.Content{}).
		Where("id = ? AND creator_id = ?", contentID, creatorID).
		Updates(map[string]interface{}{"price_usd": priceUSD, "updated_at": updatedAt})
	if res.Error != nil {
		return fmt.Errorf("failed to update content price: %s", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (db *PostgresDB) SearchContent(filter models.ContentFilter) ([]*models.Content, error) {
	query := db.Conn.Model(&models.Content{}).Where("active = ?", true)
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ?", pattern, pattern)
	}
	if filter.CreatorID != "" {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.ContentType != "" {
		query = query.Where("content_type = ?", filter.ContentType)
	}
	if filter.MaxPriceUSD != "" {
		query = query.Where("price_usd::numeric <= ?::numeric", filter.MaxPriceUSD)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var contents []*models.Content
	if err := query.Order("created_at DESC").Limit(limit).Find(&contents).Error; err != nil {
		return nil, fmt.Errorf("failed to search content: %s", err)
	}
	return contents, nil
}

func (db *PostgresDB) CreatorAnalytics(creatorID string, since int64) (*models.CreatorAnalytics, error) {
	analytics := &models.CreatorAnalytics{PeriodStartedAt: since}

	if err := db.Conn.Model(&models.Content{}).Where("creator_id = ?", creatorID).
		Count(&analytics.TotalContent).Error; err != nil {
		return nil, fmt.Errorf("failed to count content: %s", err)
	}
	if err := db.Conn.Model(&models.Content{}).Where("creator_id = ? AND active = ?", creatorID, true).
		Count(&analytics.ActiveContent).Error; err != nil {
		return nil, fmt.Errorf("failed to count active content: %s", err)
	}

	row := db.Conn.Raw(`
		SELECT COUNT(*),
		       COALESCE(SUM(creator_amount::numeric), 0)::text,
		       COUNT(DISTINCT content_id)
		FROM settlement_records
		WHERE creator_id = ? AND verified_at >= ?`, creatorID, since).Row()
	if err := row.Scan(&analytics.TotalSettlements, &analytics.CreatorRevenue, &analytics.MonetizedContent); err != nil {
		return nil, fmt.Errorf("failed to aggregate settlements: %s", err)
	}

	return analytics, nil
}

func (db *PostgresDB) PlatformStats() (*models.PlatformStats, error) {
	stats := &models.PlatformStats{}

	if err := db.Conn.Model(&models.Creator{}).Where("active = ?", true).Count(&stats.TotalCreators).Error; err != nil {
		return nil, fmt.Errorf("failed to count creators: %s", err)
	}
	if err := db.Conn.Model(&models.Content{}).Where("active = ?", true).Count(&stats.TotalContent).Error; err != nil {
		return nil, fmt.Errorf("failed to count content: %s", err)
	}

	row := db.Conn.Raw(`
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount::numeric), 0)::text,
		       COALESCE(SUM(platform_fee::numeric), 0)::text
		FROM settlement_records`).Row()
	if err := row.Scan(&stats.TotalSettlements, &stats.TotalVolume, &stats.PlatformRevenue); err != nil {
		return nil, fmt.Errorf("failed to aggregate settlements: %s", err)
	}

	return stats, nil
}
