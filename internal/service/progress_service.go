package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/observability"
	"github.com/noah-isme/codequest-api/internal/repository"
)

const recentXPLimit = 10

// XPOutcome reports the effect of an award on the user's totals.
type XPOutcome struct {
	Awarded int
	TotalXP int
	Level   int
}

// ProgressService manages the XP ledger and user progression.
type ProgressService interface {
	Award(ctx context.Context, userID uint, amount int, source string, sourceID uint, reason string) (XPOutcome, error)
	Profile(ctx context.Context, userID uint) (dto.ProfileResponse, error)
}

type progressService struct {
	users       repository.UserRepository
	xp          repository.XPRepository
	attempts    repository.ChallengeAttemptRepository
	lessons     repository.LessonProgressRepository
	leaderboard LeaderboardService
	logger      zerolog.Logger
}

// NewProgressService constructs the progression service.
func NewProgressService(
	users repository.UserRepository,
	xp repository.XPRepository,
	attempts repository.ChallengeAttemptRepository,
	lessons repository.LessonProgressRepository,
	leaderboard LeaderboardService,
	logger zerolog.Logger,
) ProgressService {
	return &progressService{
		users:       users,
		xp:          xp,
		attempts:    attempts,
		lessons:     lessons,
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "progress_service").Logger(),
	}
}

// Award credits amount XP once per user and source. Repeated awards for the
// same source and non-positive amounts leave the totals unchanged.
func (s *progressService) Award(ctx context.Context, userID uint, amount int, source string, sourceID uint, reason string) (XPOutcome, error) {
	if amount <= 0 {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return XPOutcome{}, ErrUserNotFound
			}
			return XPOutcome{}, err
		}
		return XPOutcome{TotalXP: user.TotalXP, Level: user.Level}, nil
	}

	user, err := s.xp.Award(ctx, repository.XPAward{
		UserID:   userID,
		Amount:   amount,
		Source:   source,
		SourceID: sourceID,
		Reason:   reason,
	})
	switch {
	case errors.Is(err, repository.ErrNothingAwarded):
		return XPOutcome{TotalXP: user.TotalXP, Level: user.Level}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return XPOutcome{}, ErrUserNotFound
	case err != nil:
		return XPOutcome{}, fmt.Errorf("award xp: %w", err)
	}

	observability.XPAwarded().WithLabelValues(source).Add(float64(amount))
	s.leaderboard.Record(ctx, user.ID, user.TotalXP)

	logger := observability.Logger(ctx, s.logger)
	logger.Info().
		Uint("user_id", user.ID).
		Int("amount", amount).
		Str("source", source).
		Uint("source_id", sourceID).
		Int("total_xp", user.TotalXP).
		Msg("xp awarded")

	return XPOutcome{Awarded: amount, TotalXP: user.TotalXP, Level: user.Level}, nil
}

func (s *progressService) Profile(ctx context.Context, userID uint) (dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrUserNotFound
		}
		return dto.ProfileResponse{}, err
	}

	challenges, err := s.attempts.CountCompletedChallenges(ctx, user.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	lessons, err := s.lessons.CountCompleted(ctx, user.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	recent, err := s.xp.ListRecent(ctx, user.ID, recentXPLimit)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	rank, err := s.leaderboard.Rank(ctx, user.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	return dto.ProfileResponse{
		ID:                  user.ID,
		Username:            user.Username,
		DisplayName:         user.Name(),
		Role:                user.Role,
		TotalXP:             user.TotalXP,
		Level:               user.Level,
		XPToNextLevel:       dto.XPToNextLevel(user.TotalXP),
		Rank:                rank.Rank,
		CompletedChallenges: challenges,
		CompletedLessons:    lessons,
		RecentXP:            dto.NewXPTransactionResponseSlice(recent),
	}, nil
}
