package arena

import (
	"context"
	"log"
	"time"

	"github.com/oriumfun/backend/internal/models"
)

const (
	resolveAttempts = 3
	resolveBackoff  = 250 * time.Millisecond
)

// resolve finalizes an expired match: it re-reads the final price, persists
// the winner, clears the real players' status markers and emits the terminal
// broadcast with the leaderboard. Store failures are retried with backoff; a
// match is never abandoned without a loud log.
func (m *Manager) resolve(sess *session) {
	ctx := context.Background()

	var match *models.Match
	err := withRetry(func() error {
		var err error
		match, err = m.store.GetMatch(ctx, sess.MatchID)
		return err
	})
	if err != nil {
		log.Printf("[RESOLVER] Giving up on match %d: cannot read final state: %v", sess.MatchID, err)
		m.teardown(sess)
		return
	}

	// Strict comparison: a tie goes to the bears.
	winner := models.FactionBears
	if match.CurrentPrice > match.StartPrice {
		winner = models.FactionBulls
	}

	if err := withRetry(func() error {
		return m.store.CompleteMatch(ctx, sess.MatchID, winner)
	}); err != nil {
		log.Printf("[RESOLVER] Giving up on match %d: cannot persist result: %v", sess.MatchID, err)
		m.teardown(sess)
		return
	}

	var players []models.MatchPlayer
	if err := withRetry(func() error {
		var err error
		players, err = m.store.ListMatchPlayers(ctx, sess.MatchID)
		return err
	}); err != nil {
		log.Printf("[RESOLVER] Leaderboard read failed for match %d: %v", sess.MatchID, err)
		players = nil
	}

	leaderboard := make([]map[string]interface{}, 0, len(players))
	for _, p := range players {
		leaderboard = append(leaderboard, map[string]interface{}{
			"username":  p.Username,
			"faction":   p.Faction,
			"tap_count": p.TapCount,
		})
	}

	m.teardown(sess)

	m.broadcast(sess.MatchID, "matchEnd", map[string]interface{}{
		"winningFaction": winner,
		"leaderboard":    leaderboard,
	})

	log.Printf("[RESOLVER] Match %d completed: winner=%s final_price=%.2f", sess.MatchID, winner, match.CurrentPrice)
}

// teardown drops the session and every real player's transient markers.
func (m *Manager) teardown(sess *session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID := range sess.RealIDs {
		delete(m.status, userID)
		delete(m.inMatch, userID)
	}
	delete(m.sessions, sess.MatchID)
}

func withRetry(fn func() error) error {
	var err error
	backoff := resolveBackoff
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < resolveAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}
