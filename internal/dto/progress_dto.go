package dto

import (
	"time"

	"github.com/noah-isme/codequest-api/internal/models"
)

// XPTransactionResponse is one ledger row.
type XPTransactionResponse struct {
	ID        uint      `json:"id"`
	Amount    int       `json:"amount"`
	Source    string    `json:"source"`
	SourceID  uint      `json:"sourceId"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewXPTransactionResponseSlice converts ledger rows.
func NewXPTransactionResponseSlice(items []models.XPTransaction) []XPTransactionResponse {
	responses := make([]XPTransactionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, XPTransactionResponse{
			ID:        item.ID,
			Amount:    item.Amount,
			Source:    item.Source,
			SourceID:  item.SourceID,
			Reason:    item.Reason,
			CreatedAt: item.CreatedAt,
		})
	}
	return responses
}

// ProfileResponse describes the caller's progression.
type ProfileResponse struct {
	ID                  uint                    `json:"id"`
	Username            string                  `json:"username"`
	DisplayName         string                  `json:"displayName"`
	Role                string                  `json:"role"`
	TotalXP             int                     `json:"totalXp"`
	Level               int                     `json:"level"`
	XPToNextLevel       int                     `json:"xpToNextLevel"`
	Rank                int64                   `json:"rank"`
	CompletedChallenges int64                   `json:"completedChallenges"`
	CompletedLessons    int64                   `json:"completedLessons"`
	RecentXP            []XPTransactionResponse `json:"recentXp"`
}

// XPToNextLevel returns the experience still missing for the next level.
func XPToNextLevel(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return models.LevelForXP(totalXP)*models.XPPerLevel - totalXP
}

// LeaderboardEntryResponse is one ranked row of the leaderboard.
type LeaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	TotalXP     int    `json:"totalXp"`
	Level       int    `json:"level"`
}

// LeaderboardResponse is the top of the leaderboard.
type LeaderboardResponse struct {
	Entries []LeaderboardEntryResponse `json:"entries"`
	Source  string                     `json:"source"`
}

// RankResponse is a single user's standing.
type RankResponse struct {
	UserID  uint  `json:"userId"`
	Rank    int64 `json:"rank"`
	TotalXP int   `json:"totalXp"`
	Level   int   `json:"level"`
}
