package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oriumfun/backend/internal/models"
)

// PostgresStore implements Store on top of sqlx/Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open sqlx connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateMatch(ctx context.Context, startPrice float64, startTime, endTime time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO matches (start_price, current_price, status, start_time, end_time)
		VALUES ($1, $1, 'active', $2, $3)
		RETURNING id
	`, startPrice, startTime, endTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create match: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) CreateMatchPlayers(ctx context.Context, matchID int64, players []models.MatchPlayer) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range players {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO match_players (match_id, user_id, faction, tap_count)
			VALUES ($1, $2, $3, 0)
		`, matchID, p.UserID, p.Faction); err != nil {
			return fmt.Errorf("insert match_player (match=%d user=%d): %w", matchID, p.UserID, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	var m models.Match
	err := s.db.GetContext(ctx, &m, `
		SELECT id, start_price, current_price, status, start_time, end_time, winning_faction
		FROM matches WHERE id = $1
	`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyTap runs the whole tap as a single transaction so a failure leaves no
// partial price/count update behind. The price clamp happens inside the
// UPDATE itself, so the stored price never transiently exceeds the swing.
func (s *PostgresStore) ApplyTap(ctx context.Context, matchID, userID int64, pressure, maxSwing float64) (*TapResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var faction string
	err = tx.QueryRowxContext(ctx, `
		UPDATE match_players SET tap_count = tap_count + 1
		WHERE match_id = $1 AND user_id = $2
		RETURNING faction
	`, matchID, userID).Scan(&faction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	delta := pressure
	if faction == models.FactionBears {
		delta = -pressure
	}

	var newPrice float64
	err = tx.QueryRowxContext(ctx, `
		UPDATE matches
		SET current_price = GREATEST($2::numeric, LEAST($3::numeric, current_price + $4::numeric))
		WHERE id = $1 AND status = 'active'
		RETURNING current_price
	`, matchID, -maxSwing, maxSwing, delta).Scan(&newPrice)
	if errors.Is(err, sql.ErrNoRows) {
		// Match missing or already completed; roll back the count increment too.
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var bullTaps, bearTaps int
	err = tx.QueryRowxContext(ctx, `
		SELECT
			COALESCE(SUM(tap_count) FILTER (WHERE faction = 'BULLS'), 0),
			COALESCE(SUM(tap_count) FILTER (WHERE faction = 'BEARS'), 0)
		FROM match_players WHERE match_id = $1
	`, matchID).Scan(&bullTaps, &bearTaps)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &TapResult{NewPrice: newPrice, BullTaps: bullTaps, BearTaps: bearTaps}, nil
}

func (s *PostgresStore) ListMatchPlayers(ctx context.Context, matchID int64) ([]models.MatchPlayer, error) {
	var players []models.MatchPlayer
	err := s.db.SelectContext(ctx, &players, `
		SELECT mp.match_id, mp.user_id, u.username, mp.faction, mp.tap_count
		FROM match_players mp
		JOIN users u ON u.id = mp.user_id
		WHERE mp.match_id = $1
		ORDER BY mp.tap_count DESC, mp.user_id
	`, matchID)
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (s *PostgresStore) CompleteMatch(ctx context.Context, matchID int64, winningFaction string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches SET status = 'completed', winning_faction = $2
		WHERE id = $1 AND status = 'active'
	`, matchID, winningFaction)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PlayerFaction(ctx context.Context, matchID, userID int64) (string, error) {
	var faction string
	err := s.db.GetContext(ctx, &faction, `
		SELECT faction FROM match_players WHERE match_id = $1 AND user_id = $2
	`, matchID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return faction, nil
}

func (s *PostgresStore) ListBots(ctx context.Context, limit int) ([]models.User, error) {
	var bots []models.User
	err := s.db.SelectContext(ctx, &bots, `
		SELECT id, username, email, password_hash, is_verified, is_bot, created_at
		FROM users WHERE is_bot = TRUE
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return bots, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.GetContext(ctx, &w, `
		SELECT user_id, balance, bonus_balance, updated_at FROM wallets WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, email, password_hash, is_verified, is_bot, created_at
		FROM users WHERE email = $1
	`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
