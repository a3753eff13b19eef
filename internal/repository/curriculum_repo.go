package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codequest-api/internal/models"
)

// ModuleRepository exposes read and seed operations for modules.
type ModuleRepository interface {
	ListWithLessons(ctx context.Context) ([]models.Module, error)
	GetBySlug(ctx context.Context, slug string) (models.Module, error)
	UpsertBatch(ctx context.Context, items []models.Module) (int64, error)
}

// NewModuleRepository constructs a module repository.
func NewModuleRepository(db *gorm.DB) ModuleRepository {
	return &moduleRepository{db: db}
}

type moduleRepository struct {
	db *gorm.DB
}

func (r *moduleRepository) ListWithLessons(ctx context.Context) ([]models.Module, error) {
	var modules []models.Module
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Order("position ASC, id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *moduleRepository) GetBySlug(ctx context.Context, slug string) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&module).Error; err != nil {
		return models.Module{}, err
	}
	return module, nil
}

func (r *moduleRepository) UpsertBatch(ctx context.Context, items []models.Module) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Omit("Lessons").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "position", "updated_at"}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}

// LessonRepository exposes read and seed operations for lessons.
type LessonRepository interface {
	GetBySlug(ctx context.Context, slug string) (models.Lesson, error)
	UpsertBatch(ctx context.Context, items []models.Lesson) (int64, error)
}

// NewLessonRepository constructs a lesson repository.
func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

type lessonRepository struct {
	db *gorm.DB
}

func (r *lessonRepository) GetBySlug(ctx context.Context, slug string) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&lesson).Error; err != nil {
		return models.Lesson{}, err
	}
	return lesson, nil
}

func (r *lessonRepository) UpsertBatch(ctx context.Context, items []models.Lesson) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"module_id", "title", "content", "position", "xp_reward", "test_cases", "solution", "updated_at",
		}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}

// LessonProgressRepository tracks per-user lesson attempts.
type LessonProgressRepository interface {
	Get(ctx context.Context, userID, lessonID uint) (models.LessonProgress, error)
	Save(ctx context.Context, progress *models.LessonProgress) error
	ListByUser(ctx context.Context, userID uint) ([]models.LessonProgress, error)
	CountCompleted(ctx context.Context, userID uint) (int64, error)
}

// NewLessonProgressRepository constructs a lesson progress repository.
func NewLessonProgressRepository(db *gorm.DB) LessonProgressRepository {
	return &lessonProgressRepository{db: db}
}

type lessonProgressRepository struct {
	db *gorm.DB
}

func (r *lessonProgressRepository) Get(ctx context.Context, userID, lessonID uint) (models.LessonProgress, error) {
	var progress models.LessonProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&progress).Error; err != nil {
		return models.LessonProgress{}, err
	}
	return progress, nil
}

// Save updates a known row. A new row is inserted as an upsert on
// (user_id, lesson_id) that merges with a row written concurrently.
func (r *lessonProgressRepository) Save(ctx context.Context, progress *models.LessonProgress) error {
	if progress.ID != 0 {
		return r.db.WithContext(ctx).Save(progress).Error
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":     gorm.Expr("lesson_progresses.attempts + excluded.attempts"),
			"best_score":   gorm.Expr("CASE WHEN excluded.best_score > lesson_progresses.best_score THEN excluded.best_score ELSE lesson_progresses.best_score END"),
			"completed":    gorm.Expr("lesson_progresses.completed OR excluded.completed"),
			"xp_earned":    gorm.Expr("CASE WHEN excluded.xp_earned > lesson_progresses.xp_earned THEN excluded.xp_earned ELSE lesson_progresses.xp_earned END"),
			"completed_at": gorm.Expr("COALESCE(lesson_progresses.completed_at, excluded.completed_at)"),
			"updated_at":   gorm.Expr("excluded.updated_at"),
		}),
	}).Create(progress).Error
}

func (r *lessonProgressRepository) ListByUser(ctx context.Context, userID uint) ([]models.LessonProgress, error) {
	var items []models.LessonProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *lessonProgressRepository) CountCompleted(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
