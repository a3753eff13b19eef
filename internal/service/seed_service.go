package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/catalog"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads YAML catalogs into the database.
type SeedService interface {
	SeedCatalog(ctx context.Context, token string, document []byte) (catalog.Summary, error)
}

type seedService struct {
	db      *gorm.DB
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(db *gorm.DB, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		db:      db,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedCatalog(ctx context.Context, token string, document []byte) (catalog.Summary, error) {
	if !s.enabled {
		return catalog.Summary{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return catalog.Summary{}, ErrSeedUnauthorized
	}

	parsed, err := catalog.Parse(document)
	if err != nil {
		return catalog.Summary{}, err
	}

	summary, err := catalog.Seed(ctx, s.db, parsed)
	if err != nil {
		return catalog.Summary{}, err
	}

	s.logger.Info().
		Int64("users", summary.Users).
		Int64("modules", summary.Modules).
		Int64("lessons", summary.Lessons).
		Int64("challenges", summary.Challenges).
		Msg("catalog seeded")
	return summary, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
