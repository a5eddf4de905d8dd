package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oriumfun/backend/internal/models"
)

func newMatchWithPlayers(t *testing.T, s *MemoryStore, factions map[int64]string) int64 {
	t.Helper()
	ctx := context.Background()

	matchID, err := s.CreateMatch(ctx, 0.00, time.Now(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}

	var rows []models.MatchPlayer
	for userID, faction := range factions {
		rows = append(rows, models.MatchPlayer{MatchID: matchID, UserID: userID, Faction: faction})
	}
	if err := s.CreateMatchPlayers(ctx, matchID, rows); err != nil {
		t.Fatalf("CreateMatchPlayers failed: %v", err)
	}
	return matchID
}

func TestApplyTapMovesPriceByFaction(t *testing.T) {
	s := NewMemoryStore()
	bull := s.AddUser("bull", "bull@test", "", false)
	bear := s.AddUser("bear", "bear@test", "", false)
	matchID := newMatchWithPlayers(t, s, map[int64]string{
		bull: models.FactionBulls,
		bear: models.FactionBears,
	})
	ctx := context.Background()

	res, err := s.ApplyTap(ctx, matchID, bull, 0.01, 15.0)
	if err != nil {
		t.Fatalf("bull tap failed: %v", err)
	}
	if res.NewPrice != 0.01 {
		t.Errorf("expected price 0.01 after bull tap, got %v", res.NewPrice)
	}
	if res.BullTaps != 1 || res.BearTaps != 0 {
		t.Errorf("expected taps 1/0, got %d/%d", res.BullTaps, res.BearTaps)
	}

	res, err = s.ApplyTap(ctx, matchID, bear, 0.01, 15.0)
	if err != nil {
		t.Fatalf("bear tap failed: %v", err)
	}
	// One bull tap and one bear tap cancel out
	if res.NewPrice != 0.00 {
		t.Errorf("expected price back to 0.00, got %v", res.NewPrice)
	}
	if res.BullTaps != 1 || res.BearTaps != 1 {
		t.Errorf("expected taps 1/1, got %d/%d", res.BullTaps, res.BearTaps)
	}
}

func TestApplyTapClampsAtMaxSwing(t *testing.T) {
	s := NewMemoryStore()
	bull := s.AddUser("bull", "bull@test", "", false)
	matchID := newMatchWithPlayers(t, s, map[int64]string{bull: models.FactionBulls})
	ctx := context.Background()

	// Huge pressure so a single tap would overshoot without clamping
	res, err := s.ApplyTap(ctx, matchID, bull, 100.0, 15.0)
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if res.NewPrice != 15.0 {
		t.Errorf("expected clamped price 15.0, got %v", res.NewPrice)
	}

	// Already at the ceiling: stays there
	res, _ = s.ApplyTap(ctx, matchID, bull, 100.0, 15.0)
	if res.NewPrice != 15.0 {
		t.Errorf("expected price to stay at 15.0, got %v", res.NewPrice)
	}
}

func TestApplyTapUnknownRowsRejected(t *testing.T) {
	s := NewMemoryStore()
	bull := s.AddUser("bull", "bull@test", "", false)
	matchID := newMatchWithPlayers(t, s, map[int64]string{bull: models.FactionBulls})
	ctx := context.Background()

	if _, err := s.ApplyTap(ctx, 999, bull, 0.01, 15.0); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown match, got %v", err)
	}
	if _, err := s.ApplyTap(ctx, matchID, 999, 0.01, 15.0); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown player, got %v", err)
	}

	// The failed taps must not have touched state
	m, _ := s.GetMatch(ctx, matchID)
	if m.CurrentPrice != 0.00 {
		t.Errorf("price changed by rejected taps: %v", m.CurrentPrice)
	}
}

func TestApplyTapRejectedAfterCompletion(t *testing.T) {
	s := NewMemoryStore()
	bull := s.AddUser("bull", "bull@test", "", false)
	matchID := newMatchWithPlayers(t, s, map[int64]string{bull: models.FactionBulls})
	ctx := context.Background()

	if err := s.CompleteMatch(ctx, matchID, models.FactionBears); err != nil {
		t.Fatalf("CompleteMatch failed: %v", err)
	}
	if _, err := s.ApplyTap(ctx, matchID, bull, 0.01, 15.0); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for completed match, got %v", err)
	}
}

func TestConcurrentTapsLoseNoUpdates(t *testing.T) {
	s := NewMemoryStore()
	bull := s.AddUser("bull", "bull@test", "", false)
	bear := s.AddUser("bear", "bear@test", "", false)
	matchID := newMatchWithPlayers(t, s, map[int64]string{
		bull: models.FactionBulls,
		bear: models.FactionBears,
	})
	ctx := context.Background()

	const tapsPerPlayer = 200
	var wg sync.WaitGroup
	for _, userID := range []int64{bull, bear} {
		for i := 0; i < tapsPerPlayer; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, err := s.ApplyTap(ctx, matchID, id, 0.01, 15.0); err != nil {
					t.Errorf("tap failed: %v", err)
				}
			}(userID)
		}
	}
	wg.Wait()

	players, err := s.ListMatchPlayers(ctx, matchID)
	if err != nil {
		t.Fatalf("ListMatchPlayers failed: %v", err)
	}
	total := 0
	for _, p := range players {
		total += p.TapCount
	}
	if total != 2*tapsPerPlayer {
		t.Errorf("lost updates: expected %d total taps, got %d", 2*tapsPerPlayer, total)
	}

	// Equal opposing pressure: the price must come back to the start
	m, _ := s.GetMatch(ctx, matchID)
	if m.CurrentPrice > 0.001 || m.CurrentPrice < -0.001 {
		t.Errorf("expected price near 0.00 after balanced taps, got %v", m.CurrentPrice)
	}
	if m.CurrentPrice > 15.0 || m.CurrentPrice < -15.0 {
		t.Errorf("price escaped swing bounds: %v", m.CurrentPrice)
	}
}

func TestLeaderboardOrderedByTaps(t *testing.T) {
	s := NewMemoryStore()
	a := s.AddUser("a", "a@test", "", false)
	b := s.AddUser("b", "b@test", "", false)
	c := s.AddUser("c", "c@test", "", false)
	matchID := newMatchWithPlayers(t, s, map[int64]string{
		a: models.FactionBulls,
		b: models.FactionBears,
		c: models.FactionBulls,
	})
	ctx := context.Background()

	taps := map[int64]int{a: 2, b: 5, c: 3}
	for userID, n := range taps {
		for i := 0; i < n; i++ {
			if _, err := s.ApplyTap(ctx, matchID, userID, 0.01, 15.0); err != nil {
				t.Fatalf("tap failed: %v", err)
			}
		}
	}

	players, err := s.ListMatchPlayers(ctx, matchID)
	if err != nil {
		t.Fatalf("ListMatchPlayers failed: %v", err)
	}
	if len(players) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(players))
	}
	for i := 1; i < len(players); i++ {
		if players[i].TapCount > players[i-1].TapCount {
			t.Errorf("leaderboard out of order at %d: %v", i, players)
		}
	}
	if players[0].Username != "b" {
		t.Errorf("expected b on top with 5 taps, got %s", players[0].Username)
	}
}

func TestListBotsHonorsLimit(t *testing.T) {
	s := NewMemoryStore()
	s.AddUser("human", "human@test", "", false)
	s.SeedBots(12)

	bots, err := s.ListBots(context.Background(), 9)
	if err != nil {
		t.Fatalf("ListBots failed: %v", err)
	}
	if len(bots) != 9 {
		t.Errorf("expected 9 bots, got %d", len(bots))
	}
	for _, b := range bots {
		if !b.IsBot {
			t.Errorf("non-bot user returned: %+v", b)
		}
	}
}
