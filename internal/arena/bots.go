package arena

import (
	"context"
	"math/rand"
	"time"
)

// runBot generates synthetic taps for one bot player on a jittered interval
// until the session context is canceled. Bot taps go through the exact same
// HandleTap path as real input, so they get the same clamping, atomicity and
// broadcast behavior.
func (m *Manager) runBot(ctx context.Context, matchID, userID int64) {
	min := m.cfg.BotTapMinMillis
	max := m.cfg.BotTapMaxMillis
	if max < min {
		max = min
	}

	for {
		jitter := time.Duration(min+rand.Intn(max-min+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter):
			m.HandleTap(ctx, matchID, userID)
		}
	}
}
