package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codequest-api/internal/models"
)

// ChallengeQuery defines filters and pagination for challenges.
type ChallengeQuery struct {
	Difficulty string
	Category   string
	Search     string
	Offset     int
	Limit      int
}

// ChallengeRepository exposes persistence operations for challenges.
type ChallengeRepository interface {
	List(ctx context.Context, query ChallengeQuery) ([]models.Challenge, int64, error)
	GetBySlug(ctx context.Context, slug string) (models.Challenge, error)
	GetByID(ctx context.Context, id uint) (models.Challenge, error)
	Create(ctx context.Context, challenge *models.Challenge) error
	UpsertBatch(ctx context.Context, items []models.Challenge) (int64, error)
}

// NewChallengeRepository constructs a challenge repository.
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

type challengeRepository struct {
	db *gorm.DB
}

func (r *challengeRepository) List(ctx context.Context, query ChallengeQuery) ([]models.Challenge, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Challenge{})

	if query.Difficulty != "" {
		db = db.Where("LOWER(difficulty) = ?", strings.ToLower(query.Difficulty))
	}

	if query.Category != "" {
		db = db.Where("LOWER(category) = ?", strings.ToLower(query.Category))
	}

	if query.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(query.Search))
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var challenges []models.Challenge
	if err := db.Order("id ASC").Find(&challenges).Error; err != nil {
		return nil, 0, err
	}

	return challenges, total, nil
}

func (r *challengeRepository) GetBySlug(ctx context.Context, slug string) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&challenge).Error; err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id uint) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, id).Error; err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *challengeRepository) UpsertBatch(ctx context.Context, items []models.Challenge) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "difficulty", "category", "xp_reward",
			"starter_code", "test_cases", "solution", "updated_at",
		}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}

// ChallengeAttemptRepository persists graded challenge submissions.
type ChallengeAttemptRepository interface {
	Create(ctx context.Context, attempt *models.ChallengeAttempt) error
	ListByUserAndChallenge(ctx context.Context, userID, challengeID uint, limit int) ([]models.ChallengeAttempt, error)
	HasCompleted(ctx context.Context, userID, challengeID uint) (bool, error)
	CountCompletedChallenges(ctx context.Context, userID uint) (int64, error)
}

// NewChallengeAttemptRepository constructs a challenge attempt repository.
func NewChallengeAttemptRepository(db *gorm.DB) ChallengeAttemptRepository {
	return &challengeAttemptRepository{db: db}
}

type challengeAttemptRepository struct {
	db *gorm.DB
}

func (r *challengeAttemptRepository) Create(ctx context.Context, attempt *models.ChallengeAttempt) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (r *challengeAttemptRepository) ListByUserAndChallenge(ctx context.Context, userID, challengeID uint, limit int) ([]models.ChallengeAttempt, error) {
	db := r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var attempts []models.ChallengeAttempt
	if err := db.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *challengeAttemptRepository) HasCompleted(ctx context.Context, userID, challengeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChallengeAttempt{}).
		Where("user_id = ? AND challenge_id = ? AND is_completed = ?", userID, challengeID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *challengeAttemptRepository) CountCompletedChallenges(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChallengeAttempt{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Distinct("challenge_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
