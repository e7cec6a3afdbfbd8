// Package service wires loading, merging and the timeline consumers together
// and owns the pull-based replay sessions served over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gridcast/internal/adapters/export"
	"github.com/okian/gridcast/internal/adapters/mq/queue"
	"github.com/okian/gridcast/internal/adapters/mq/worker"
	"github.com/okian/gridcast/internal/adapters/source"
	"github.com/okian/gridcast/internal/domain/describe"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/narration"
	"github.com/okian/gridcast/internal/domain/replay"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/internal/domain/timeline"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultLoadWorkers = 1
	defaultMaxSessions = 64
)

// Sentinel error kinds for this package.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many replay sessions")
)

// Source is one configured input file.
type Source struct {
	Category model.Category
	Path     string
}

// Service loads a race once and serves its timeline to every consumer.
type Service struct {
	mu sync.RWMutex

	// Configuration
	driversPath string
	sources     []Source
	loadWorkers int
	maxSessions int
	minPause    time.Duration

	// Loaded state, immutable once started
	roster   *roster.Roster
	timeline *timeline.Timeline
	synth    *describe.Synthesizer
	loadedAt time.Time
	started  bool

	sessMu   sync.Mutex
	sessions map[string]*session

	logger logger.Logger
}

// session is one pull-based replay. mu serializes advances.
type session struct {
	mu           sync.Mutex
	id           string
	acceleration float64
	cursor       *replay.Cursor
	created      time.Time
}

// SessionInfo describes a replay session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Acceleration float64   `json:"acceleration"`
	VirtualTime  time.Time `json:"virtual_time"`
	Remaining    int       `json:"remaining"`
	CreatedAt    time.Time `json:"created_at"`
}

// Advance is the outcome of moving a session forward.
type Advance struct {
	Events      []*model.Event
	Exhausted   bool
	VirtualTime time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDriversPath sets the roster file.
func WithDriversPath(path string) Option {
	return func(s *Service) {
		s.driversPath = path
	}
}

// WithSource adds an input file. Sources merge in the order they are added,
// which decides ties between equal timestamps.
func WithSource(c model.Category, path string) Option {
	return func(s *Service) {
		if path != "" {
			s.sources = append(s.sources, Source{Category: c, Path: path})
		}
	}
}

// WithLoadWorkers sets how many files load in parallel.
func WithLoadWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.loadWorkers = n
		}
	}
}

// WithMaxSessions caps concurrent replay sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithMinPause sets the replay pause floor.
func WithMinPause(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.minPause = d
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
		loadWorkers: defaultLoadWorkers,
		maxSessions: defaultMaxSessions,
		minPause:    replay.DefaultMinPause,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the roster and every source and merges them into the timeline.
// Calling Start again is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	start := time.Now()
	r, err := roster.Load(ctx, s.driversPath)
	if err != nil {
		metrics.RecordErrorByComponent("service", "roster")
		return err
	}

	streams, err := s.loadSources(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "source")
		return err
	}

	s.roster = r
	s.timeline = timeline.Merge(streams...)
	s.synth = describe.New(r)
	s.loadedAt = time.Now()
	s.started = true

	metrics.UpdateTimelineSize(s.timeline.Len())
	s.logger.Info(ctx, "timeline loaded",
		logger.Int("drivers", r.Len()),
		logger.Int("sources", len(s.sources)),
		logger.Int("events", s.timeline.Len()),
		logger.Int("load_workers", s.loadWorkers),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// loadSources returns one event list per source, in source order.
func (s *Service) loadSources(ctx context.Context) ([][]*model.Event, error) {
	loader := source.NewLoader(source.WithLogger(s.logger.Named("source")))

	if s.loadWorkers <= 1 || len(s.sources) <= 1 {
		streams := make([][]*model.Event, len(s.sources))
		for i, src := range s.sources {
			events, err := loader.Load(ctx, src.Category, src.Path)
			if err != nil {
				return nil, err
			}
			streams[i] = events
		}
		return streams, nil
	}

	jobs := make([]queue.Job, len(s.sources))
	for i, src := range s.sources {
		jobs[i] = queue.Job{Index: i, Category: src.Category, Path: src.Path}
	}
	return worker.LoadAll(ctx, loader, jobs, s.loadWorkers, worker.WithPoolLogger(s.logger.Named("load-pool")))
}

// Stop drops every replay session.
func (s *Service) Stop() {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	clear(s.sessions)
	metrics.UpdateActiveSessions(0)
}

func (s *Service) loaded() (*timeline.Timeline, *describe.Synthesizer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.timeline, s.synth, nil
}

// Timeline returns the merged timeline, or nil before Start.
func (s *Service) Timeline() *timeline.Timeline {
	tl, _, _ := s.loaded()
	return tl
}

// Roster returns the driver table, or nil before Start.
func (s *Service) Roster() *roster.Roster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster
}

// Synthesizer returns the description renderer, or nil before Start.
func (s *Service) Synthesizer() *describe.Synthesizer {
	_, synth, _ := s.loaded()
	return synth
}

// Windows buckets the timeline into fixed-size windows.
func (s *Service) Windows(interval time.Duration) ([]timeline.Window, error) {
	tl, _, err := s.loaded()
	if err != nil {
		return nil, err
	}
	return timeline.Windows(tl, interval)
}

// Document builds the annotated window document.
func (s *Service) Document(interval time.Duration) (export.Document, error) {
	ws, err := s.Windows(interval)
	if err != nil {
		return export.Document{}, err
	}
	_, synth, _ := s.loaded()
	return export.Build(ws, synth), nil
}

// Replay plays the timeline back at acceleration k, calling emit with each
// event's timed line. Extra scheduler options are applied last.
func (s *Service) Replay(ctx context.Context, k float64, emit func(line string, em replay.Emission) error, opts ...replay.Option) error {
	tl, synth, err := s.loaded()
	if err != nil {
		return err
	}
	all := append([]replay.Option{
		replay.WithAcceleration(k),
		replay.WithMinPause(s.minPause),
		replay.WithLogger(s.logger.Named("replay")),
	}, opts...)
	sched, err := replay.NewScheduler(all...)
	if err != nil {
		return err
	}
	timed := describe.NewTimed(synth)
	return sched.Run(ctx, tl, func(em replay.Emission) error {
		return emit(timed.Line(em.Event), em)
	})
}

// Narrate windows the timeline and feeds the windows to n, keeping state in
// store. maxWindows of zero narrates every window.
func (s *Service) Narrate(ctx context.Context, interval time.Duration, n narration.Narrator, store narration.StateStore, maxWindows int) (int, error) {
	ws, err := s.Windows(interval)
	if err != nil {
		return 0, err
	}
	_, synth, _ := s.loaded()
	d := narration.NewDriver(n, store, synth,
		narration.WithMaxWindows(maxWindows),
		narration.WithLogger(s.logger.Named("narration")),
	)
	return d.Run(ctx, ws)
}

// CreateSession opens a catch-up replay at acceleration k.
func (s *Service) CreateSession(k float64) (SessionInfo, error) {
	tl, _, err := s.loaded()
	if err != nil {
		return SessionInfo{}, err
	}
	if !(k > 0) {
		return SessionInfo{}, fmt.Errorf("%w: %v", replay.ErrInvalidAcceleration, k)
	}

	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if len(s.sessions) >= s.maxSessions {
		metrics.RecordErrorByComponent("service", "session_cap")
		return SessionInfo{}, fmt.Errorf("%w: limit %d", ErrTooManySessions, s.maxSessions)
	}

	sess := &session{
		id:           uuid.NewString(),
		acceleration: k,
		cursor:       replay.NewCursor(tl),
		created:      time.Now().UTC(),
	}
	s.sessions[sess.id] = sess
	metrics.RecordSessionCreated()
	metrics.UpdateActiveSessions(len(s.sessions))
	return sess.info(), nil
}

func (s *Service) session(id string) (*session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Session returns a session's current state.
func (s *Service) Session(id string) (SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return SessionInfo{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.info(), nil
}

// AdvanceSession moves a session's virtual time forward by delta.
func (s *Service) AdvanceSession(id string, delta time.Duration) (Advance, error) {
	sess, err := s.session(id)
	if err != nil {
		return Advance{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.advance(delta)
}

// AdvanceSessionWall moves a session forward by wall time scaled by its
// acceleration.
func (s *Service) AdvanceSessionWall(id string, wall time.Duration) (Advance, error) {
	sess, err := s.session(id)
	if err != nil {
		return Advance{}, err
	}
	if wall < 0 {
		return Advance{}, fmt.Errorf("%w: %v", replay.ErrNegativeDelta, wall)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.advance(replay.ScaleDuration(wall, sess.acceleration))
}

// CloseSession forgets a session.
func (s *Service) CloseSession(id string) error {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	metrics.UpdateActiveSessions(len(s.sessions))
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return len(s.sessions)
}

func (sess *session) advance(delta time.Duration) (Advance, error) {
	wasExhausted := sess.cursor.Exhausted()
	events, err := sess.cursor.Advance(delta)
	if err != nil {
		return Advance{}, err
	}
	if !wasExhausted && sess.cursor.Exhausted() {
		metrics.RecordSessionExhausted()
	}
	return Advance{
		Events:      events,
		Exhausted:   sess.cursor.Exhausted(),
		VirtualTime: sess.cursor.VirtualTime(),
	}, nil
}

func (sess *session) info() SessionInfo {
	return SessionInfo{
		ID:           sess.id,
		Acceleration: sess.acceleration,
		VirtualTime:  sess.cursor.VirtualTime(),
		Remaining:    sess.cursor.Remaining(),
		CreatedAt:    sess.created,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"sources":     len(s.sources),
		"loadWorkers": s.loadWorkers,
		"maxSessions": s.maxSessions,
		"sessions":    s.SessionCount(),
	}
	if s.started {
		counts := make(map[string]int)
		for c, n := range s.timeline.CountByCategory() {
			counts[c.String()] = n
		}
		stats["events"] = s.timeline.Len()
		stats["eventsByCategory"] = counts
		stats["drivers"] = s.roster.Len()
		stats["loadedAt"] = s.loadedAt.UTC().Format(time.RFC3339)
		if s.timeline.Len() > 0 {
			stats["start"] = s.timeline.Start().Format(time.RFC3339Nano)
			stats["end"] = s.timeline.End().Format(time.RFC3339Nano)
			stats["spanSeconds"] = s.timeline.Span().Seconds()
		}
	}
	return stats
}
