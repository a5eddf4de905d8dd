package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oriumfun/backend/internal/models"
)

// MemoryStore is an in-memory Store used by the test suites. Semantics match
// the Postgres implementation: taps for one match are linearized behind a
// per-match lock, taps for different matches do not block each other.
type MemoryStore struct {
	mu         sync.RWMutex
	nextUserID int64
	nextMatch  int64
	users      map[int64]*models.User
	wallets    map[int64]*models.Wallet
	matches    map[int64]*models.Match
	players    map[int64]map[int64]*models.MatchPlayer
	matchLocks map[int64]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]*models.User),
		wallets:    make(map[int64]*models.Wallet),
		matches:    make(map[int64]*models.Match),
		players:    make(map[int64]map[int64]*models.MatchPlayer),
		matchLocks: make(map[int64]*sync.Mutex),
	}
}

// AddUser inserts a user (and an empty wallet) and returns its id.
func (s *MemoryStore) AddUser(username, email, passwordHash string, isBot bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	id := s.nextUserID
	s.users[id] = &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsVerified:   true,
		IsBot:        isBot,
		CreatedAt:    time.Now(),
	}
	s.wallets[id] = &models.Wallet{UserID: id, UpdatedAt: time.Now()}
	return id
}

// SeedBots creates n bot users for backfill tests.
func (s *MemoryStore) SeedBots(n int) {
	for i := 1; i <= n; i++ {
		s.AddUser(fmt.Sprintf("bot_%d", i), fmt.Sprintf("bot_%d@orium.internal", i), "", true)
	}
}

func (s *MemoryStore) CreateMatch(ctx context.Context, startPrice float64, startTime, endTime time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMatch++
	id := s.nextMatch
	s.matches[id] = &models.Match{
		ID:           id,
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		Status:       models.MatchActive,
		StartTime:    startTime,
		EndTime:      endTime,
	}
	s.players[id] = make(map[int64]*models.MatchPlayer)
	s.matchLocks[id] = &sync.Mutex{}
	return id, nil
}

func (s *MemoryStore) CreateMatchPlayers(ctx context.Context, matchID int64, players []models.MatchPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.players[matchID]
	if !ok {
		return ErrNotFound
	}
	for _, p := range players {
		username := p.Username
		if u, ok := s.users[p.UserID]; ok && username == "" {
			username = u.Username
		}
		rows[p.UserID] = &models.MatchPlayer{
			MatchID:  matchID,
			UserID:   p.UserID,
			Username: username,
			Faction:  p.Faction,
		}
	}
	return nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	s.mu.RLock()
	m, ok := s.matches[matchID]
	lock := s.matchLocks[matchID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ApplyTap(ctx context.Context, matchID, userID int64, pressure, maxSwing float64) (*TapResult, error) {
	s.mu.RLock()
	lock, ok := s.matchLocks[matchID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	m := s.matches[matchID]
	rows := s.players[matchID]
	s.mu.RUnlock()

	if m == nil || m.Status != models.MatchActive {
		return nil, ErrNotFound
	}
	p, ok := rows[userID]
	if !ok {
		return nil, ErrNotFound
	}

	p.TapCount++
	delta := pressure
	if p.Faction == models.FactionBears {
		delta = -pressure
	}
	price := m.CurrentPrice + delta
	if price > maxSwing {
		price = maxSwing
	}
	if price < -maxSwing {
		price = -maxSwing
	}
	m.CurrentPrice = price

	res := &TapResult{NewPrice: price}
	for _, row := range rows {
		switch row.Faction {
		case models.FactionBulls:
			res.BullTaps += row.TapCount
		case models.FactionBears:
			res.BearTaps += row.TapCount
		}
	}
	return res, nil
}

func (s *MemoryStore) ListMatchPlayers(ctx context.Context, matchID int64) ([]models.MatchPlayer, error) {
	s.mu.RLock()
	rows, ok := s.players[matchID]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	lock := s.matchLocks[matchID]
	s.mu.RUnlock()

	lock.Lock()
	defer lock.Unlock()

	out := make([]models.MatchPlayer, 0, len(rows))
	for _, p := range rows {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TapCount != out[j].TapCount {
			return out[i].TapCount > out[j].TapCount
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *MemoryStore) CompleteMatch(ctx context.Context, matchID int64, winningFaction string) error {
	s.mu.RLock()
	m, ok := s.matches[matchID]
	lock := s.matchLocks[matchID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()
	if m.Status != models.MatchActive {
		return ErrNotFound
	}
	m.Status = models.MatchCompleted
	m.WinningFaction.String = winningFaction
	m.WinningFaction.Valid = true
	return nil
}

func (s *MemoryStore) PlayerFaction(ctx context.Context, matchID, userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.players[matchID]
	if !ok {
		return "", ErrNotFound
	}
	p, ok := rows[userID]
	if !ok {
		return "", ErrNotFound
	}
	return p.Faction, nil
}

func (s *MemoryStore) ListBots(ctx context.Context, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bots []models.User
	for id := int64(1); id <= s.nextUserID && len(bots) < limit; id++ {
		if u, ok := s.users[id]; ok && u.IsBot {
			bots = append(bots, *u)
		}
	}
	return bots, nil
}

func (s *MemoryStore) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
