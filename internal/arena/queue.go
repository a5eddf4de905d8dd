package arena

import (
	"context"
	"log"
	"time"
)

// JoinQueue adds a player to the matchmaking queue. A player that is already
// queued, already waiting on a found marker, or still inside an active match
// is rejected rather than silently merged.
//
// Reaching the cohort size forms a match immediately and cancels any pending
// fill timer; otherwise the first waiting player arms the timer.
func (m *Manager) JoinQueue(ctx context.Context, userID int64, username string) error {
	m.mu.Lock()

	if _, exists := m.status[userID]; exists {
		m.mu.Unlock()
		return ErrAlreadyQueued
	}
	if _, exists := m.inMatch[userID]; exists {
		m.mu.Unlock()
		return ErrAlreadyQueued
	}
	for _, e := range m.queue {
		if e.UserID == userID {
			m.mu.Unlock()
			return ErrAlreadyQueued
		}
	}

	m.queue = append(m.queue, QueueEntry{UserID: userID, Username: username, JoinedAt: time.Now()})
	m.status[userID] = playerStatus{State: StatusWaiting}

	if len(m.queue) >= m.cfg.CohortSize {
		cohort := m.extractCohortLocked()
		m.mu.Unlock()

		log.Printf("[QUEUE] Cohort full (%d players), creating match", len(cohort))
		// The match belongs to all ten players, not to the request that
		// happened to complete the cohort, so its creation must not be
		// canceled by that one caller disconnecting.
		if err := m.createMatch(context.Background(), cohort); err != nil {
			// The join itself succeeded; the cohort goes back in the queue
			// and the fill timer takes another run at it.
			log.Printf("[QUEUE] Match creation failed: %v", err)
			m.requeue(cohort)
		}
		return nil
	}

	if !m.fillPending {
		m.fillPending = true
		m.fillTimer = time.AfterFunc(m.fillTimeout, m.onFillTimer)
		log.Printf("[QUEUE] Fill timer armed (%v)", m.fillTimeout)
	}
	m.mu.Unlock()
	return nil
}

// LeaveQueue removes a waiting player. Leaving an empty queue behind cancels
// the pending fill timer.
func (m *Manager) LeaveQueue(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.queue {
		if e.UserID == userID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			delete(m.status, userID)
			if len(m.queue) == 0 && m.fillPending {
				m.fillTimer.Stop()
				m.fillPending = false
				log.Printf("[QUEUE] Queue emptied, fill timer canceled")
			}
			return nil
		}
	}
	return ErrNotQueued
}

// onFillTimer fires once per armed timer: it backfills the current queue with
// bots up to the cohort size and creates the match.
func (m *Manager) onFillTimer() {
	m.mu.Lock()
	m.fillPending = false

	if len(m.queue) == 0 {
		// Everyone left between arming and firing.
		m.mu.Unlock()
		return
	}

	cohort := m.extractCohortLocked()
	m.mu.Unlock()

	ctx := context.Background()
	spots := m.cfg.CohortSize - len(cohort)
	if spots > 0 {
		bots, err := m.store.ListBots(ctx, spots)
		if err != nil {
			log.Printf("[QUEUE] Bot fetch failed, re-queueing %d players: %v", len(cohort), err)
			m.requeue(cohort)
			return
		}
		for _, b := range bots {
			cohort = append(cohort, Member{UserID: b.ID, Username: b.Username, IsBot: true})
		}
	}

	log.Printf("[QUEUE] Fill timer fired: %d real players, %d total", m.cfg.CohortSize-spots, len(cohort))
	if err := m.createMatch(ctx, cohort); err != nil {
		log.Printf("[QUEUE] Match creation failed after fill: %v", err)
		m.requeue(cohort)
	}
}

// extractCohortLocked removes up to cohortSize queued players (in insertion
// order) as one cohort and cancels the pending fill timer. Anyone left over
// gets a freshly armed timer. Caller must hold m.mu.
func (m *Manager) extractCohortLocked() []Member {
	n := len(m.queue)
	if n > m.cfg.CohortSize {
		n = m.cfg.CohortSize
	}
	cohort := make([]Member, 0, n)
	for _, e := range m.queue[:n] {
		cohort = append(cohort, Member{UserID: e.UserID, Username: e.Username})
	}
	m.queue = append(m.queue[:0], m.queue[n:]...)
	if m.fillPending {
		m.fillTimer.Stop()
		m.fillPending = false
	}
	if len(m.queue) > 0 {
		m.fillPending = true
		m.fillTimer = time.AfterFunc(m.fillTimeout, m.onFillTimer)
	}
	return cohort
}

// requeue puts real cohort members back in the queue after a failed match
// creation and re-arms the fill timer. Bots are dropped; they are refetched
// on the next fill.
func (m *Manager) requeue(cohort []Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range cohort {
		if c.IsBot {
			continue
		}
		m.queue = append(m.queue, QueueEntry{UserID: c.UserID, Username: c.Username, JoinedAt: time.Now()})
		m.status[c.UserID] = playerStatus{State: StatusWaiting}
	}
	if len(m.queue) > 0 && !m.fillPending {
		m.fillPending = true
		m.fillTimer = time.AfterFunc(m.fillTimeout, m.onFillTimer)
	}
}
