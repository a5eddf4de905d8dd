package arena

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/oriumfun/backend/internal/models"
	"github.com/oriumfun/backend/internal/store"
)

// createMatch persists the match record and faction assignments, starts the
// bot tappers and the session clock, and flips every real player's status to
// found. The cohort is shuffled before splitting so faction assignment does
// not correlate with queue position.
func (m *Manager) createMatch(ctx context.Context, cohort []Member) error {
	startTime := time.Now()
	endTime := startTime.Add(m.matchDuration)

	matchID, err := m.store.CreateMatch(ctx, 0.00, startTime, endTime)
	if err != nil {
		return err
	}

	shuffled := make([]Member, len(cohort))
	copy(shuffled, cohort)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	bulls := int(math.Ceil(float64(len(shuffled)) / 2))
	rows := make([]models.MatchPlayer, 0, len(shuffled))
	for i, c := range shuffled {
		faction := models.FactionBulls
		if i >= bulls {
			faction = models.FactionBears
		}
		rows = append(rows, models.MatchPlayer{
			MatchID:  matchID,
			UserID:   c.UserID,
			Username: c.Username,
			Faction:  faction,
		})
	}
	if err := m.store.CreateMatchPlayers(ctx, matchID, rows); err != nil {
		return err
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		MatchID: matchID,
		EndTime: endTime,
		RealIDs: make(map[int64]bool),
		cancel:  cancel,
	}

	m.mu.Lock()
	for _, c := range shuffled {
		if c.IsBot {
			continue
		}
		sess.RealIDs[c.UserID] = true
		m.status[c.UserID] = playerStatus{State: StatusFound, MatchID: matchID}
		m.inMatch[c.UserID] = matchID
	}
	m.sessions[matchID] = sess
	m.mu.Unlock()

	for _, c := range shuffled {
		if c.IsBot {
			go m.runBot(sessCtx, matchID, c.UserID)
		}
	}
	go m.runSession(sessCtx, sess)

	log.Printf("[MATCH] Match %d created: %d players (%d real), ends at %s",
		matchID, len(shuffled), len(sess.RealIDs), endTime.Format(time.RFC3339))
	return nil
}

// runSession drives one match: a short pre-start countdown, a once-per-second
// remaining-time broadcast, and resolution at expiry. The duration timer is
// the sole authority for ending the match.
func (m *Manager) runSession(ctx context.Context, sess *session) {
	countdown := int(m.countdown.Seconds())
	for i := countdown; i >= 0; i-- {
		m.broadcast(sess.MatchID, "countdown", map[string]interface{}{"countdown": i})
		if i == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := int(math.Round(time.Until(sess.EndTime).Seconds()))
			if remaining <= 0 {
				sess.cancel() // stop every bot tapper
				m.resolve(sess)
				return
			}
			m.broadcast(sess.MatchID, "timeUpdate", map[string]interface{}{"remainingTime": remaining})
		}
	}
}

// HandleTap applies one tap for the authenticated user. The faction is
// derived server-side inside the store's atomic unit; clients only ever say
// "I tapped". A missing match or player row drops the tap silently (taps are
// high-frequency and the next one self-heals) without touching shared state.
func (m *Manager) HandleTap(ctx context.Context, matchID, userID int64) {
	res, err := m.store.ApplyTap(ctx, matchID, userID, m.cfg.TapPressure, m.cfg.MaxPriceSwing)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[MATCH] Tap failed for match %d user %d: %v", matchID, userID, err)
		}
		return
	}

	m.broadcast(matchID, "gameStateUpdate", map[string]interface{}{
		"newPrice": res.NewPrice,
		"bullTaps": res.BullTaps,
		"bearTaps": res.BearTaps,
	})
}
