// Package session gates pipeline runs behind an authenticated user and keeps
// each user's run history.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/aggregate"
	"github.com/sells-group/prospect-cli/internal/model"
)

var (
	// ErrAnonymous rejects runs from a session without a resolved user.
	ErrAnonymous = eris.New("session: sign in to run a search")

	// ErrRunInProgress rejects a run while another is active in the same session.
	ErrRunInProgress = eris.New("session: a search is already running")
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, persona string) (*model.RunState, error)
}

// Session is one user's view of the pipeline. At most one run is active per
// session at a time.
type Session struct {
	user    string
	runner  Runner
	history *aggregate.History
	running atomic.Bool
}

// New creates a Session for user. An empty user yields an anonymous session
// that cannot run.
func New(user string, runner Runner, historySize int) *Session {
	return &Session{
		user:    user,
		runner:  runner,
		history: aggregate.NewHistory(historySize),
	}
}

// User returns the session's user, empty when anonymous.
func (s *Session) User() string { return s.user }

// Running reports whether a run is active.
func (s *Session) Running() bool { return s.running.Load() }

// History returns the session's completed runs, newest first.
func (s *Session) History() []model.HistoryEntry { return s.history.Entries() }

// Run executes a pipeline run for persona. Runs that did not fail are
// recorded in the session history.
func (s *Session) Run(ctx context.Context, persona string) (*model.RunState, error) {
	if s.user == "" {
		return nil, ErrAnonymous
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	state, err := s.runner.Run(ctx, persona)
	if state == nil {
		return nil, err
	}
	state.User = s.user

	if state.Status != model.RunStatusFailed {
		entry := aggregate.NewEntry(state.Persona, state.Results, state.CompletedAt)
		s.history.Record(entry)
		zap.L().Debug("session: recorded history",
			zap.String("user", s.user),
			zap.String("entry_id", entry.ID),
			zap.Int("results", entry.ResultCount),
		)
	}
	return state, err
}

// Manager hands out one Session per user.
type Manager struct {
	mu          sync.Mutex
	runner      Runner
	historySize int
	sessions    map[string]*Session
}

// NewManager creates a Manager whose sessions share runner.
func NewManager(runner Runner, historySize int) *Manager {
	return &Manager{
		runner:      runner,
		historySize: historySize,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the session for user, creating it on first use.
func (m *Manager) Get(user string) (*Session, error) {
	if user == "" {
		return nil, ErrAnonymous
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[user]
	if !ok {
		s = New(user, m.runner, m.historySize)
		m.sessions[user] = s
	}
	return s, nil
}
