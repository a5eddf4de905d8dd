package models

import (
	"database/sql"
	"time"
)

// Faction values. A cohort is split as evenly as possible between the two.
const (
	FactionBulls = "BULLS"
	FactionBears = "BEARS"
)

// Match status values
const (
	MatchActive    = "active"
	MatchCompleted = "completed"
)

// User represents a registered account (bots are seeded users with IsBot set)
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	IsBot        bool      `db:"is_bot" json:"is_bot"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Wallet holds a user's balances. Read-only to the arena core.
type Wallet struct {
	UserID       int64     `db:"user_id" json:"user_id"`
	Balance      float64   `db:"balance" json:"balance"`
	BonusBalance float64   `db:"bonus_balance" json:"bonus_balance"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Match is the persisted record of one arena round
type Match struct {
	ID             int64          `db:"id" json:"id"`
	StartPrice     float64        `db:"start_price" json:"start_price"`
	CurrentPrice   float64        `db:"current_price" json:"current_price"`
	Status         string         `db:"status" json:"status"`
	StartTime      time.Time      `db:"start_time" json:"start_time"`
	EndTime        time.Time      `db:"end_time" json:"end_time"`
	WinningFaction sql.NullString `db:"winning_faction" json:"winning_faction,omitempty"`
}

// MatchPlayer is one (match, user) participation row, bots included
type MatchPlayer struct {
	MatchID  int64  `db:"match_id" json:"match_id"`
	UserID   int64  `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Faction  string `db:"faction" json:"faction"`
	TapCount int    `db:"tap_count" json:"tap_count"`
}
