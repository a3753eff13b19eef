package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/repository"
)

// Summary counts the rows written by a seed run.
type Summary struct {
	Users      int64 `json:"users"`
	Modules    int64 `json:"modules"`
	Lessons    int64 `json:"lessons"`
	Challenges int64 `json:"challenges"`
}

// Seed upserts the catalog by slug (username for users) in one transaction.
func Seed(ctx context.Context, db *gorm.DB, catalog Catalog) (Summary, error) {
	var summary Summary

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := repository.NewUserRepository(tx).UpsertBatch(ctx, catalog.Users)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		summary.Users = affected

		moduleRepo := repository.NewModuleRepository(tx)
		affected, err = moduleRepo.UpsertBatch(ctx, stripLessons(catalog.Modules))
		if err != nil {
			return fmt.Errorf("seed modules: %w", err)
		}
		summary.Modules = affected

		lessons := make([]models.Lesson, 0, catalog.LessonCount())
		for _, module := range catalog.Modules {
			if len(module.Lessons) == 0 {
				continue
			}
			stored, err := moduleRepo.GetBySlug(ctx, module.Slug)
			if err != nil {
				return fmt.Errorf("resolve module %q: %w", module.Slug, err)
			}
			for _, lesson := range module.Lessons {
				lesson.ModuleID = stored.ID
				lessons = append(lessons, lesson)
			}
		}

		affected, err = repository.NewLessonRepository(tx).UpsertBatch(ctx, lessons)
		if err != nil {
			return fmt.Errorf("seed lessons: %w", err)
		}
		summary.Lessons = affected

		affected, err = repository.NewChallengeRepository(tx).UpsertBatch(ctx, catalog.Challenges)
		if err != nil {
			return fmt.Errorf("seed challenges: %w", err)
		}
		summary.Challenges = affected

		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	return summary, nil
}

func stripLessons(modules []models.Module) []models.Module {
	stripped := make([]models.Module, len(modules))
	for i, module := range modules {
		module.Lessons = nil
		stripped[i] = module
	}
	return stripped
}
