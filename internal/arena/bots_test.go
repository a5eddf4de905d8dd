package arena

import (
	"context"
	"testing"
	"time"

	"github.com/oriumfun/backend/internal/models"
)

func TestRunBotTapsUntilCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.BotTapMinMillis = 10
	cfg.BotTapMaxMillis = 20
	m, st, _ := testManager(t, cfg)

	st.SeedBots(1)
	bots, err := st.ListBots(context.Background(), 1)
	if err != nil || len(bots) != 1 {
		t.Fatalf("bot seed failed: %v", err)
	}
	bot := bots[0]

	matchID, err := st.CreateMatch(context.Background(), 0.00, time.Now(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	if err := st.CreateMatchPlayers(context.Background(), matchID, []models.MatchPlayer{
		{MatchID: matchID, UserID: bot.ID, Faction: models.FactionBulls},
	}); err != nil {
		t.Fatalf("CreateMatchPlayers failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.runBot(ctx, matchID, bot.ID)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot did not stop after cancel")
	}

	players, _ := st.ListMatchPlayers(context.Background(), matchID)
	if len(players) != 1 || players[0].TapCount == 0 {
		t.Errorf("expected bot taps to accumulate, got %v", players)
	}
	taps := players[0].TapCount

	// No taps after cancellation
	time.Sleep(100 * time.Millisecond)
	players, _ = st.ListMatchPlayers(context.Background(), matchID)
	if players[0].TapCount != taps {
		t.Errorf("bot kept tapping after cancel: %d -> %d", taps, players[0].TapCount)
	}
}
