package models

import "time"

// XPPerLevel is the amount of experience needed to advance one level.
const XPPerLevel = 500

// User represents a learner or staff member known to the platform.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Role        string    `gorm:"size:32;not null;default:student" json:"role"`
	TotalXP     int       `gorm:"not null;default:0;index" json:"total_xp"`
	Level       int       `gorm:"not null;default:1" json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LevelForXP derives the level reached with the given experience total.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return 1 + totalXP/XPPerLevel
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// XP sources recorded on ledger rows.
const (
	XPSourceChallenge = "challenge"
	XPSourceLesson    = "lesson"
)

// XPTransaction is one immutable entry in a user's experience ledger.
type XPTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_xp_user_source" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Source    string    `gorm:"size:32;not null;uniqueIndex:idx_xp_user_source" json:"source"`
	SourceID  uint      `gorm:"not null;uniqueIndex:idx_xp_user_source" json:"source_id"`
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
