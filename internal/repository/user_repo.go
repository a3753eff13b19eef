package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codequest-api/internal/models"
)

// ErrNothingAwarded is returned when an award for the same source was already recorded.
var ErrNothingAwarded = errors.New("xp already awarded for source")

// UserRepository provides data access helpers for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	TopByXP(ctx context.Context, limit int) ([]models.User, error)
	CountAheadOf(ctx context.Context, totalXP int) (int64, error)
	UpsertBatch(ctx context.Context, items []models.User) (int64, error)
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// TopByXP returns users with experience ordered by total XP, oldest account first on ties.
func (r *userRepository) TopByXP(ctx context.Context, limit int) ([]models.User, error) {
	db := r.db.WithContext(ctx).
		Where("total_xp > ?", 0).
		Order("total_xp DESC, id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountAheadOf(ctx context.Context, totalXP int) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("total_xp > ?", totalXP).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) UpsertBatch(ctx context.Context, items []models.User) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "role", "updated_at"}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}

// XPAward describes a single ledger credit.
type XPAward struct {
	UserID   uint
	Amount   int
	Source   string
	SourceID uint
	Reason   string
}

// XPRepository maintains the experience ledger and the denormalised user totals.
type XPRepository interface {
	Award(ctx context.Context, award XPAward) (models.User, error)
	ListRecent(ctx context.Context, userID uint, limit int) ([]models.XPTransaction, error)
}

// NewXPRepository constructs the XP ledger repository.
func NewXPRepository(db *gorm.DB) XPRepository {
	return &xpRepository{db: db}
}

type xpRepository struct {
	db *gorm.DB
}

// Award records the ledger row and bumps the user's total in one transaction.
// A second award for the same user and source returns ErrNothingAwarded, also
// when two awards race on the ledger's unique index.
func (r *xpRepository) Award(ctx context.Context, award XPAward) (models.User, error) {
	var updated models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, award.UserID).Error; err != nil {
			return err
		}

		entry := models.XPTransaction{
			UserID:   award.UserID,
			Amount:   award.Amount,
			Source:   award.Source,
			SourceID: award.SourceID,
			Reason:   award.Reason,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				updated = user
				return ErrNothingAwarded
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			updated = user
			return ErrNothingAwarded
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			UpdateColumn("total_xp", gorm.Expr("total_xp + ?", award.Amount)).Error; err != nil {
			return err
		}

		if err := tx.First(&updated, user.ID).Error; err != nil {
			return err
		}

		level := models.LevelForXP(updated.TotalXP)
		if level == updated.Level {
			return nil
		}
		updated.Level = level
		return tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("level", level).Error
	})
	if err != nil {
		return updated, err
	}
	return updated, nil
}

func (r *xpRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]models.XPTransaction, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var items []models.XPTransaction
	if err := db.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
