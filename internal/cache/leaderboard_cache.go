package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheCold indicates the leaderboard set has not been populated yet.
var ErrCacheCold = errors.New("leaderboard cache is cold")

// LeaderboardCache handles Redis ZSET operations for the global XP leaderboard.
type LeaderboardCache interface {
	UpdateScore(ctx context.Context, userID uint, totalXP int) error
	GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, userID uint) (int64, int, error)
	Replace(ctx context.Context, entries []LeaderboardEntry, floor int) error
}

// LeaderboardEntry is one ranked member of the sorted set.
type LeaderboardEntry struct {
	UserID  uint `json:"userId"`
	TotalXP int  `json:"totalXp"`
	Rank    int  `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewLeaderboardCache creates a leaderboard cache stored under key. The set is
// rebuilt by the caller once ttl elapses.
func NewLeaderboardCache(client *redis.Client, key string, ttl time.Duration) LeaderboardCache {
	if key == "" {
		key = "codequest:leaderboard:xp"
	}
	return &leaderboardCache{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (c *leaderboardCache) readyKey() string {
	return c.key + ":ready"
}

func (c *leaderboardCache) warm(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, c.readyKey()).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// floor returns the minimum score tracked by a warm set.
func (c *leaderboardCache) floor(ctx context.Context) (int, bool, error) {
	value, err := c.client.Get(ctx, c.readyKey()).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	floor, err := strconv.Atoi(value)
	if err != nil {
		return 0, true, nil
	}
	return floor, true, nil
}

// UpdateScore writes the user's total only while the set is warm and the
// total reaches the set's floor; a cold set is rebuilt from the database on
// the next read.
func (c *leaderboardCache) UpdateScore(ctx context.Context, userID uint, totalXP int) error {
	floor, ready, err := c.floor(ctx)
	if err != nil || !ready {
		return err
	}
	if totalXP < floor {
		return nil
	}

	return c.client.ZAdd(ctx, c.key, redis.Z{
		Score:  float64(totalXP),
		Member: member(userID),
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	ready, err := c.warm(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, ErrCacheCold
	}

	results, err := c.client.ZRevRangeWithScores(ctx, c.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	rank := 0
	for i, z := range results {
		id, ok := parseMember(z.Member)
		if !ok {
			continue
		}
		if i == 0 || z.Score != results[i-1].Score {
			rank = i + 1
		}
		entries = append(entries, LeaderboardEntry{
			UserID:  id,
			TotalXP: int(z.Score),
			Rank:    rank,
		})
	}
	return entries, nil
}

// GetRank returns the 1-based rank and score of the user, or -1 when absent.
// The rank counts members with a strictly higher score, so ties share it.
func (c *leaderboardCache) GetRank(ctx context.Context, userID uint) (int64, int, error) {
	ready, err := c.warm(ctx)
	if err != nil {
		return -1, 0, err
	}
	if !ready {
		return -1, 0, ErrCacheCold
	}

	score, err := c.client.ZScore(ctx, c.key, member(userID)).Result()
	if err == redis.Nil {
		return -1, 0, nil
	}
	if err != nil {
		return -1, 0, err
	}

	ahead, err := c.client.ZCount(ctx, c.key, "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		return -1, 0, err
	}
	return ahead + 1, int(score), nil
}

// Replace swaps the whole set atomically and marks it warm for ttl. floor is
// the lowest score the set tracks; entries must hold every user scoring above
// it. Pass 0 when entries cover every ranked user.
func (c *leaderboardCache) Replace(ctx context.Context, entries []LeaderboardEntry, floor int) error {
	members := make([]redis.Z, 0, len(entries))
	for _, entry := range entries {
		members = append(members, redis.Z{Score: float64(entry.TotalXP), Member: member(entry.UserID)})
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, c.key, members...)
		}
		pipe.Set(ctx, c.readyKey(), strconv.Itoa(floor), c.ttl)
		if c.ttl > 0 {
			pipe.Expire(ctx, c.key, c.ttl)
		}
		return nil
	})
	return err
}

func member(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

func parseMember(value interface{}) (uint, bool) {
	text, ok := value.(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
