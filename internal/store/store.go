package store

import (
	"context"
	"errors"
	"time"

	"github.com/oriumfun/backend/internal/models"
)

// ErrNotFound is returned when a match, player row or user does not exist
// (or the match is no longer active at tap time).
var ErrNotFound = errors.New("store: not found")

// TapResult is the read-back after an accepted tap: the clamped price and the
// per-faction tap totals, all observed inside the same atomic unit.
type TapResult struct {
	NewPrice float64 `json:"new_price"`
	BullTaps int     `json:"bull_taps"`
	BearTaps int     `json:"bear_taps"`
}

// Store is the record store the arena runs against. The Postgres
// implementation is authoritative; the in-memory one backs the test suites.
type Store interface {
	// CreateMatch persists a new active match and returns its id.
	CreateMatch(ctx context.Context, startPrice float64, startTime, endTime time.Time) (int64, error)

	// CreateMatchPlayers persists one row per cohort member with tap count 0.
	CreateMatchPlayers(ctx context.Context, matchID int64, players []models.MatchPlayer) error

	// GetMatch returns a match by id.
	GetMatch(ctx context.Context, matchID int64) (*models.Match, error)

	// ApplyTap atomically increments the caller's tap count and moves the
	// match price by pressure in the caller's faction direction, clamped to
	// [-maxSwing, +maxSwing] at the point of update. The whole unit aborts
	// on a missing row or a non-active match.
	ApplyTap(ctx context.Context, matchID, userID int64, pressure, maxSwing float64) (*TapResult, error)

	// ListMatchPlayers returns all player rows for a match ordered by tap
	// count descending (leaderboard order).
	ListMatchPlayers(ctx context.Context, matchID int64) ([]models.MatchPlayer, error)

	// CompleteMatch marks a match completed with its winning faction.
	CompleteMatch(ctx context.Context, matchID int64, winningFaction string) error

	// PlayerFaction returns the faction the user was assigned for the match,
	// or ErrNotFound if the user is not a participant.
	PlayerFaction(ctx context.Context, matchID, userID int64) (string, error)

	// ListBots returns up to limit bot users for cohort backfill.
	ListBots(ctx context.Context, limit int) ([]models.User, error)

	// GetWallet returns a user's wallet.
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)

	// GetUserByEmail returns a user by email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
