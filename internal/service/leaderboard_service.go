package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/cache"
	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/observability"
	"github.com/noah-isme/codequest-api/internal/repository"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	// DefaultLeaderboardCacheSize bounds how many users a cache rebuild loads.
	DefaultLeaderboardCacheSize = 1000
)

// Leaderboard data sources reported to clients.
const (
	LeaderboardSourceCache    = "cache"
	LeaderboardSourceDatabase = "database"
)

// ErrUserNotFound indicates the authenticated user has no account record.
var ErrUserNotFound = errors.New("user not found")

// LeaderboardService ranks users by total experience.
type LeaderboardService interface {
	Top(ctx context.Context, limit int) (dto.LeaderboardResponse, error)
	Rank(ctx context.Context, userID uint) (dto.RankResponse, error)
	Record(ctx context.Context, userID uint, totalXP int)
}

type leaderboardService struct {
	users     repository.UserRepository
	cache     cache.LeaderboardCache
	cacheSize int
	logger    zerolog.Logger
}

// NewLeaderboardService constructs the leaderboard service. The cache is
// optional; without it every read goes to the database. cacheSize caps the
// users loaded per cache rebuild and is raised to at least 100.
func NewLeaderboardService(users repository.UserRepository, leaderboardCache cache.LeaderboardCache, cacheSize int, logger zerolog.Logger) LeaderboardService {
	if cacheSize <= 0 {
		cacheSize = DefaultLeaderboardCacheSize
	}
	if cacheSize < maxLeaderboardLimit {
		cacheSize = maxLeaderboardLimit
	}
	return &leaderboardService{
		users:     users,
		cache:     leaderboardCache,
		cacheSize: cacheSize,
		logger:    logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

// NormalizeLeaderboardLimit clamps limit to 1..100, defaulting to 10.
func NormalizeLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}

func (s *leaderboardService) Top(ctx context.Context, limit int) (dto.LeaderboardResponse, error) {
	limit = NormalizeLeaderboardLimit(limit)

	if s.cache != nil {
		entries, err := s.cache.GetTop(ctx, limit)
		if err == nil {
			observability.LeaderboardCache().WithLabelValues("hit").Inc()
			return s.fromCache(ctx, entries)
		}
		observability.LeaderboardCache().WithLabelValues("miss").Inc()
		if !errors.Is(err, cache.ErrCacheCold) {
			s.logger.Warn().Err(err).Msg("leaderboard cache read failed")
		}
	}

	fetch := limit
	if s.cache != nil {
		fetch = s.cacheSize
	}
	users, err := s.users.TopByXP(ctx, fetch)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	s.rebuild(ctx, users, len(users) >= fetch)

	if len(users) > limit {
		users = users[:limit]
	}
	entries := make([]dto.LeaderboardEntryResponse, 0, len(users))
	rank := 0
	for i, user := range users {
		if i == 0 || user.TotalXP != users[i-1].TotalXP {
			rank = i + 1
		}
		entries = append(entries, newLeaderboardEntry(rank, user))
	}

	return dto.LeaderboardResponse{Entries: entries, Source: LeaderboardSourceDatabase}, nil
}

func (s *leaderboardService) fromCache(ctx context.Context, cached []cache.LeaderboardEntry) (dto.LeaderboardResponse, error) {
	ids := make([]uint, 0, len(cached))
	for _, entry := range cached {
		ids = append(ids, entry.UserID)
	}

	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	entries := make([]dto.LeaderboardEntryResponse, 0, len(cached))
	for _, entry := range cached {
		user, ok := byID[entry.UserID]
		if !ok {
			continue
		}
		user.TotalXP = entry.TotalXP
		entries = append(entries, newLeaderboardEntry(entry.Rank, user))
	}

	return dto.LeaderboardResponse{Entries: entries, Source: LeaderboardSourceCache}, nil
}

// rebuild replaces the cached set with users, ordered by XP. When truncated
// is set, users below the lowest loaded total are left to the database.
func (s *leaderboardService) rebuild(ctx context.Context, users []models.User, truncated bool) {
	if s.cache == nil {
		return
	}

	entries := make([]cache.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entries = append(entries, cache.LeaderboardEntry{UserID: user.ID, TotalXP: user.TotalXP, Rank: i + 1})
	}

	floor := 0
	if truncated && len(users) > 0 {
		floor = users[len(users)-1].TotalXP
	}
	if err := s.cache.Replace(ctx, entries, floor); err != nil {
		s.logger.Warn().Err(err).Int("entries", len(entries)).Msg("failed to rebuild leaderboard cache")
		return
	}
	s.logger.Debug().Int("entries", len(entries)).Int("floor", floor).Msg("leaderboard cache rebuilt")
}

func (s *leaderboardService) Rank(ctx context.Context, userID uint) (dto.RankResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RankResponse{}, ErrUserNotFound
		}
		return dto.RankResponse{}, err
	}

	response := dto.RankResponse{
		UserID:  user.ID,
		Rank:    -1,
		TotalXP: user.TotalXP,
		Level:   user.Level,
	}
	if user.TotalXP <= 0 {
		return response, nil
	}

	if s.cache != nil {
		rank, _, err := s.cache.GetRank(ctx, user.ID)
		switch {
		case err == nil && rank > 0:
			observability.LeaderboardCache().WithLabelValues("hit").Inc()
			response.Rank = rank
			return response, nil
		case err != nil && !errors.Is(err, cache.ErrCacheCold):
			s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("leaderboard cache rank lookup failed")
		}
		observability.LeaderboardCache().WithLabelValues("miss").Inc()
	}

	ahead, err := s.users.CountAheadOf(ctx, user.TotalXP)
	if err != nil {
		return dto.RankResponse{}, err
	}
	response.Rank = ahead + 1
	return response, nil
}

// Record pushes a new total into the cache. Failures are logged and the set
// catches up on its next rebuild.
func (s *leaderboardService) Record(ctx context.Context, userID uint, totalXP int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.UpdateScore(ctx, userID, totalXP); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to update leaderboard cache")
	}
}

func newLeaderboardEntry(rank int, user models.User) dto.LeaderboardEntryResponse {
	return dto.LeaderboardEntryResponse{
		Rank:        rank,
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.Name(),
		TotalXP:     user.TotalXP,
		Level:       models.LevelForXP(user.TotalXP),
	}
}
