package arena

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oriumfun/backend/internal/config"
	"github.com/oriumfun/backend/internal/store"
)

// Queue and status errors surfaced to the HTTP layer
var (
	ErrAlreadyQueued = errors.New("player already queued or in a match")
	ErrNotQueued     = errors.New("player not in queue")
)

// Status states returned by PollStatus
const (
	StatusNone    = "none"
	StatusWaiting = "waiting"
	StatusFound   = "found"
)

// QueueEntry is a waiting player. Insertion order is priority.
type QueueEntry struct {
	UserID   int64
	Username string
	JoinedAt time.Time
}

// Member is one cohort slot, real player or bot.
type Member struct {
	UserID   int64
	Username string
	IsBot    bool
}

// playerStatus is the transient per-user marker consumed by status polls.
type playerStatus struct {
	State   string
	MatchID int64
}

// session is the in-memory side of one live match.
type session struct {
	MatchID  int64
	EndTime  time.Time
	RealIDs  map[int64]bool
	cancel   context.CancelFunc
}

// Manager owns the matchmaking queue, per-user status markers and all live
// match sessions. Every queue mutation goes through its mutex so no two
// cohort-formation decisions can observe the queue concurrently.
type Manager struct {
	store       store.Store
	broadcaster Broadcaster
	cfg         *config.Config

	mu          sync.Mutex
	queue       []QueueEntry
	status      map[int64]playerStatus
	inMatch     map[int64]int64 // real player -> active match
	sessions    map[int64]*session
	fillTimer   *time.Timer
	fillPending bool

	fillTimeout   time.Duration
	matchDuration time.Duration
	countdown     time.Duration
}

// Global manager instance
var DefaultManager *Manager

// InitializeManager creates the global manager.
func InitializeManager(st store.Store, b Broadcaster, cfg *config.Config) *Manager {
	DefaultManager = NewManager(st, b, cfg)
	return DefaultManager
}

// NewManager creates a manager; the caller owns its lifetime.
func NewManager(st store.Store, b Broadcaster, cfg *config.Config) *Manager {
	return &Manager{
		store:         st,
		broadcaster:   b,
		cfg:           cfg,
		status:        make(map[int64]playerStatus),
		inMatch:       make(map[int64]int64),
		sessions:      make(map[int64]*session),
		fillTimeout:   time.Duration(cfg.QueueFillSeconds) * time.Second,
		matchDuration: time.Duration(cfg.MatchDurationSeconds) * time.Second,
		countdown:     time.Duration(cfg.CountdownSeconds) * time.Second,
	}
}

// PollStatus reports a player's matchmaking state. A "found" result is
// consumed: the next poll after it returns "none" unless requeued.
func (m *Manager) PollStatus(userID int64) (string, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.status[userID]
	if !ok {
		return StatusNone, 0
	}
	if st.State == StatusFound {
		delete(m.status, userID)
		return StatusFound, st.MatchID
	}
	return StatusWaiting, 0
}

// JoinInfo verifies that the user participates in the match and returns the
// faction and start price needed for the join confirmation.
func (m *Manager) JoinInfo(ctx context.Context, matchID, userID int64) (string, float64, error) {
	faction, err := m.store.PlayerFaction(ctx, matchID, userID)
	if err != nil {
		return "", 0, err
	}
	match, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		return "", 0, err
	}
	return faction, match.StartPrice, nil
}

// QueueLength reports how many players are currently waiting.
func (m *Manager) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// ActiveSessionCount reports how many matches are live on this instance.
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
