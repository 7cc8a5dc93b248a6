package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/eventbus"
	"github.com/C021025/DSASimulator-OJ/internal/metrics"
	"github.com/C021025/DSASimulator-OJ/internal/navigation"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

// Session is one open question page: its own history, bus and workbench.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Workbench *Workbench
	Bus       *eventbus.Bus
}

func (s *Session) close() {
	s.Workbench.Close()
	s.Bus.Close()
}

// SessionRegistry owns the open sessions.
type SessionRegistry struct {
	judge     repository.JudgeService
	query     repository.SubmissionQuery
	questions repository.QuestionService
	defaults  Options
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionRegistry creates a registry. defaults seeds every session's
// Options; QuestionID and User are set per session.
func NewSessionRegistry(
	judge repository.JudgeService,
	query repository.SubmissionQuery,
	questions repository.QuestionService,
	defaults Options,
	logger *zap.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		judge:     judge,
		query:     query,
		questions: questions,
		defaults:  defaults,
		logger:    logger,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Open creates a session for questionID at the given location and loads the
// question. On failure nothing is registered.
func (r *SessionRegistry) Open(ctx context.Context, questionID int64, query string, user *domain.User) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	opts := r.defaults
	opts.QuestionID = questionID
	opts.User = user

	bus := eventbus.New()
	history := navigation.NewHistory(query)
	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Workbench: NewWorkbench(r.judge, r.query, r.questions, history, bus, opts, r.logger.With(zap.String("session_id", id.String()))),
		Bus:       bus,
	}

	if err := s.Workbench.Open(ctx); err != nil {
		s.close()
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	metrics.SessionsActive.Inc()

	r.logger.Info("Session opened",
		zap.String("session_id", id.String()),
		zap.Int64("question_id", questionID),
		zap.Bool("signed_in", user != nil),
	)
	return s, nil
}

// Get returns the session with id.
func (r *SessionRegistry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Close removes and closes the session with id.
func (r *SessionRegistry) Close(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.close()
	metrics.SessionsActive.Dec()
	r.logger.Info("Session closed", zap.String("session_id", id.String()))
	return nil
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session; used on shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.close()
		metrics.SessionsActive.Dec()
	}
}
