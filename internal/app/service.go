// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/statline/internal/adapters/feed"
	eventqueue "github.com/okian/statline/internal/adapters/mq/queue"
	workerpool "github.com/okian/statline/internal/adapters/mq/worker"
	"github.com/okian/statline/internal/adapters/repository"
	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
	"github.com/okian/statline/internal/domain/model"
	"github.com/okian/statline/internal/domain/tally"
	"github.com/okian/statline/pkg/logger"
	"github.com/okian/statline/pkg/metrics"
)

// SessionRequest describes a session to create.
type SessionRequest struct {
	// Values seeds the pool. Empty means the configured default values.
	Values []int `json:"values,omitempty"`

	// Deferred leaves the session uninitialized until Initialize is called.
	Deferred bool `json:"deferred,omitempty"`
}

// SessionView is what clients see of a session.
type SessionView struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Initialized bool         `json:"initialized"`
	State       engine.State `json:"state"`
}

// MoveResult reports the outcome of a move and the state that followed it.
type MoveResult struct {
	Applied bool           `json:"applied"`
	Outcome engine.Outcome `json:"outcome"`
	Session SessionView    `json:"session"`
}

// Stats summarizes the service for monitoring.
type Stats struct {
	Started       bool          `json:"started"`
	Sessions      int           `json:"sessions"`
	MaxSessions   int           `json:"max_sessions"`
	WorkerCount   int           `json:"worker_count"`
	QueueLength   int           `json:"queue_length"`
	QueueCapacity int           `json:"queue_capacity"`
	Subscribers   int           `json:"subscribers"`
	Tally         tally.Summary `json:"tally"`
}

// Service owns the live sessions and everything that observes them.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions   repository.Store
	changes    eventqueue.Queue
	workerPool *workerpool.Pool
	counts     *tally.Tally
	broker     *feed.Broker

	// Configuration
	workerCount   int
	queueSize     int
	maxSessions   int
	streamBuffer  int
	defaultValues []int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of change feed workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the change queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithStreamBuffer sets the per-subscriber buffer of the live stream.
func WithStreamBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// WithDefaultValues sets the pool used when a session is created without values.
func WithDefaultValues(values []int) Option {
	return func(s *Service) {
		if len(values) > 0 {
			s.defaultValues = append([]int(nil), values...)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     4096,
		maxSessions:   10_000,
		streamBuffer:  8,
		defaultValues: []int{15, 14, 13, 12, 10, 9, 8},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.counts = tally.New()
	s.broker = feed.NewBroker(feed.WithBuffer(s.streamBuffer))
	s.sessions = repository.NewMemoryStore(
		repository.WithMaxSessions(s.maxSessions),
		repository.WithOnEvict(s.evicted),
	)
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if len(s.defaultValues) != attribute.Count {
		return fmt.Errorf("%w: %d default values for %d attributes", engine.ErrPoolSize, len(s.defaultValues), attribute.Count)
	}

	s.logger.Info(ctx, "starting assignment service...")

	s.changes = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.changes, s.counts)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "assignment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
	)
	return nil
}

// Stop drains the change queue and ends every live stream.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping assignment service...")

	s.started = false
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.broker.CloseAll()

	s.logger.Info(ctx, "assignment service stopped")
}

// CreateSession registers a new session. Unless the request is deferred the
// session's engine is initialized right away.
func (s *Service) CreateSession(ctx context.Context, req SessionRequest) (SessionView, error) {
	if err := s.ready(); err != nil {
		return SessionView{}, err
	}

	values := req.Values
	if len(values) == 0 {
		values = s.defaultValues
	}
	if len(values) != attribute.Count {
		return SessionView{}, fmt.Errorf("%w: got %d values for %d slots", engine.ErrPoolSize, len(values), attribute.Count)
	}

	sess := &repository.Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	sess.Engine = engine.New(engine.WithHooks(s.hooksFor(sess.ID)))

	if err := s.sessions.Put(ctx, sess); err != nil {
		return SessionView{}, err
	}
	metrics.RecordSessionCreated()
	metrics.UpdateActiveSessions(s.sessions.Count(ctx))

	if !req.Deferred {
		if _, err := sess.Engine.Initialize(ctx, values); err != nil {
			return SessionView{}, err
		}
	}

	s.logger.Debug(ctx, "session created",
		logger.String("session", sess.ID),
		logger.Bool("deferred", req.Deferred),
	)
	return view(sess), nil
}

// Initialize seeds a deferred session. It reports false when the session was
// already initialized, in which case nothing changes.
func (s *Service) Initialize(ctx context.Context, id string, values []int) (bool, SessionView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return false, SessionView{}, err
	}
	if len(values) == 0 {
		values = s.defaultValues
	}
	applied, err := sess.Engine.Initialize(ctx, values)
	if err != nil {
		return false, SessionView{}, err
	}
	return applied, view(sess), nil
}

// Move asks the session's engine to move the value at position into slot.
// Rejected moves are not errors; the outcome says why nothing changed.
func (s *Service) Move(ctx context.Context, id string, position int, slot attribute.Slot) (MoveResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return MoveResult{}, err
	}
	outcome, st := sess.Engine.Move(ctx, position, slot)
	return MoveResult{
		Applied: outcome.Applied(),
		Outcome: outcome,
		Session: viewOf(sess, st),
	}, nil
}

// Fill places the remaining values in slot order and returns how many moved.
func (s *Service) Fill(ctx context.Context, id string) (int, SessionView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return 0, SessionView{}, err
	}
	n, st := sess.Engine.Fill(ctx)
	return n, viewOf(sess, st), nil
}

// Reset restores the session to its initial pool and empty slots.
func (s *Service) Reset(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return viewOf(sess, sess.Engine.Reset(ctx)), nil
}

// State returns the session as it is now.
func (s *Service) State(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return view(sess), nil
}

// DeleteSession removes the session and ends its live streams.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.broker.Close(id)
	metrics.RecordSessionDeleted()
	metrics.UpdateActiveSessions(s.sessions.Count(ctx))
	return nil
}

// Subscribe streams the session's state: the current state first, then every
// change. The channel closes when the session goes away or cancel is called.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan engine.State, func(), error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.broker.Subscribe(id, sess.Engine.State)

	// a delete since the lookup closed the feed before this subscriber joined
	if _, err := s.sessions.Get(ctx, id); err != nil {
		s.broker.Close(id)
		cancel()
		return nil, nil, err
	}
	return ch, cancel, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		Sessions:      s.sessions.Count(ctx),
		MaxSessions:   s.maxSessions,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
		Subscribers:   s.broker.Subscribers(),
		Tally:         s.counts.Summary(),
	}
	if s.started {
		stats.QueueLength = s.changes.Len(ctx)
	}

	metrics.UpdateActiveSessions(stats.Sessions)
	return stats
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) session(ctx context.Context, id string) (*repository.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, id)
}

// hooksFor wires a session's engine to the change queue, the live feed and
// the metrics. The hooks run under the engine lock and never block.
func (s *Service) hooksFor(id string) engine.Hooks {
	return engine.Hooks{
		OnChange: func(ctx context.Context, c engine.Change, st engine.State) {
			switch c.Kind {
			case engine.KindInitialized:
				metrics.RecordInitialize()
			case engine.KindReset:
				metrics.RecordReset()
			case engine.KindMoved:
				metrics.RecordMove(c.Outcome.String())
				if c.Complete {
					metrics.RecordEpochCompleted()
				}
			}
			s.publish(ctx, id, c)
			s.broker.Publish(id, st)
		},
		OnReject: func(ctx context.Context, c engine.Change) {
			metrics.RecordMove(c.Outcome.String())
			s.publish(ctx, id, c)
		},
	}
}

func (s *Service) publish(ctx context.Context, id string, c engine.Change) {
	s.mu.RLock()
	changes := s.changes
	s.mu.RUnlock()
	if changes == nil {
		return
	}

	e := model.Event{SessionID: id, Change: c, At: time.Now().UTC()}
	if !changes.Enqueue(ctx, e) {
		s.logger.Warn(ctx, "change dropped",
			logger.String("session", id),
			logger.String("kind", string(c.Kind)),
		)
	}
}

func (s *Service) evicted(sess *repository.Session) {
	s.broker.Close(sess.ID)
	metrics.RecordSessionEvicted()
	if s.logger != nil {
		s.logger.Info(context.Background(), "session evicted", logger.String("session", sess.ID))
	}
}

func view(sess *repository.Session) SessionView {
	return viewOf(sess, sess.Engine.State())
}

// viewOf describes sess at st, a state the engine published.
func viewOf(sess *repository.Session, st engine.State) SessionView {
	return SessionView{
		ID:          sess.ID,
		CreatedAt:   sess.CreatedAt,
		Initialized: st.Epoch > 0,
		State:       st,
	}
}
