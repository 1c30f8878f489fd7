package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/countdown"
	"github.com/nhle/tempmail/internal/logger"
	"github.com/nhle/tempmail/internal/metrics"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
)

var (
	// ErrGenerateInProgress is returned while another allocation is running.
	ErrGenerateInProgress = errors.New("mailbox allocation already in progress")

	// ErrStaleSession is returned when a result belongs to a session that
	// has since been replaced.
	ErrStaleSession = errors.New("session was replaced")

	// ErrNoSession is returned when no mailbox has been allocated yet.
	ErrNoSession = errors.New("no mailbox allocated")
)

// fetchTimeout bounds a single list request.
const fetchTimeout = 30 * time.Second

// eventBuffer is the capacity of the event channel.
const eventBuffer = 64

// State is the lifecycle phase of a Manager.
type State int

const (
	Idle State = iota
	Active
	Expired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the timing parameters of a session.
type Config struct {
	Lifetime          time.Duration
	CountdownInterval time.Duration
	PollInterval      time.Duration
}

// ConfigFrom converts the file configuration into a Config.
func ConfigFrom(c model.SessionConfig) Config {
	return Config{
		Lifetime:          c.Lifetime(),
		CountdownInterval: c.CountdownInterval(),
		PollInterval:      c.PollInterval(),
	}
}

// DefaultConfig is a ten minute mailbox, ticking every second and polling
// every five.
func DefaultConfig() Config {
	return Config{
		Lifetime:          10 * time.Minute,
		CountdownInterval: time.Second,
		PollInterval:      5 * time.Second,
	}
}

// History records allocated mailboxes. Implemented by store.Store.
type History interface {
	RecordMailbox(ctx context.Context, rec *model.MailboxRecord) error
	UpdateMessageCount(ctx context.Context, address string, count int) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistory records every allocation and its message count in h.
func WithHistory(h History) Option {
	return func(m *Manager) { m.history = h }
}

// WithLogger sets the logger used for absorbed poll and detail errors.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger.OrNop(l) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Snapshot is a consistent copy of the Manager's state.
type Snapshot struct {
	State      State
	Session    *model.Session
	Messages   []model.MessageSummary
	Remaining  time.Duration
	Generating bool
	Provider   provider.Type
}

// runner owns the ticker goroutines of one session. Cancelling its context
// stops both tickers and any poll still in flight.
type runner struct {
	generation uint64
	provider   provider.Provider
	session    model.Session
	ctx        context.Context
	cancel     context.CancelFunc
	trigger    chan struct{}
	wg         sync.WaitGroup
}

func (r *runner) stop() {
	r.cancel()
	r.wg.Wait()
}

// Manager drives one temporary mailbox at a time. All methods are safe for
// concurrent use.
type Manager struct {
	provider provider.Provider
	cfg      Config
	history  History
	logger   *zap.Logger
	now      func() time.Time
	events   chan Event
	tickers  atomic.Int32

	mu            sync.Mutex
	state         State
	session       *model.Session
	sessionOwner  provider.Provider
	generation    uint64
	runner        *runner
	allocating    bool
	latest        []model.MessageSummary
	pollSeq       uint64
	lastApplied   uint64
	recordedCount int
}

// New creates an idle Manager allocating from p.
func New(p provider.Provider, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		provider: p,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
		events:   make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the channel on which lifecycle events are published.
// Events are dropped when the channel is full; Snapshot always reflects
// the latest state.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// SetProvider changes the provider used by the next Generate. The active
// session keeps polling the provider that allocated it.
func (m *Manager) SetProvider(p provider.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = p
}

// Provider returns the provider used for new allocations.
func (m *Manager) Provider() provider.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}

// Generate allocates a new mailbox and makes it the active session,
// replacing any previous one. On failure the previous state is kept.
func (m *Manager) Generate(ctx context.Context) (*model.Session, error) {
	m.mu.Lock()
	if m.allocating {
		m.mu.Unlock()
		return nil, ErrGenerateInProgress
	}
	m.allocating = true
	p := m.provider
	m.mu.Unlock()

	m.emit(GeneratingEvent{InProgress: true})
	defer func() {
		m.mu.Lock()
		m.allocating = false
		m.mu.Unlock()
		m.emit(GeneratingEvent{InProgress: false})
	}()

	s, err := p.AllocateMailbox(ctx)
	if err != nil {
		metrics.AllocationFailures.WithLabelValues(string(p.Type())).Inc()
		m.logger.Error("mailbox allocation failed",
			zap.String("provider", string(p.Type())),
			zap.Error(err),
		)
		m.emit(AllocationFailedEvent{Err: err})
		return nil, err
	}

	now := m.now()
	s.CreatedAt = now
	s.ExpiresAt = now.Add(m.cfg.Lifetime)
	s.Expired = false

	m.mu.Lock()
	old := m.runner
	m.runner = nil
	m.mu.Unlock()

	if old != nil {
		old.stop()
	}

	m.mu.Lock()
	m.generation++
	m.session = s
	m.sessionOwner = p
	m.state = Active
	m.latest = nil
	m.pollSeq = 0
	m.lastApplied = 0
	m.recordedCount = 0

	rctx, cancel := context.WithCancel(context.Background())
	r := &runner{
		generation: m.generation,
		provider:   p,
		session:    *s,
		ctx:        rctx,
		cancel:     cancel,
		trigger:    make(chan struct{}, 1),
	}
	m.runner = r
	out := *s
	m.mu.Unlock()

	metrics.MailboxesAllocated.WithLabelValues(string(p.Type())).Inc()
	m.logger.Info("mailbox allocated",
		zap.String("address", s.Address),
		zap.String("provider", string(p.Type())),
		zap.Time("expires_at", s.ExpiresAt),
	)
	m.record(&out)

	m.emit(SessionStartedEvent{Session: out})
	m.start(r)

	return &out, nil
}

// Refresh asks the poll ticker of the active session to poll now.
func (m *Manager) Refresh() {
	m.mu.Lock()
	r := m.runner
	m.mu.Unlock()

	if r == nil || r.ctx.Err() != nil {
		return
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// OpenMessage fetches the full content of a message of the current
// session. Errors are logged and returned; the session is unaffected.
func (m *Manager) OpenMessage(ctx context.Context, id string) (*model.MessageDetail, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	gen := m.generation
	sess := *m.session
	p := m.sessionOwner
	m.mu.Unlock()

	d, err := p.FetchMessage(ctx, &sess, id)
	if err != nil {
		m.logger.Warn("fetching message failed",
			zap.String("address", sess.Address),
			zap.String("id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}

	m.mu.Lock()
	stale := gen != m.generation
	m.mu.Unlock()
	if stale {
		return nil, ErrStaleSession
	}

	metrics.MessagesOpened.Inc()
	return d, nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:      m.state,
		Generating: m.allocating,
	}
	if m.provider != nil {
		snap.Provider = m.provider.Type()
	}
	if m.session != nil {
		s := *m.session
		snap.Session = &s
		if m.state == Active {
			snap.Remaining = s.Remaining(m.now())
			if snap.Remaining < 0 {
				snap.Remaining = 0
			}
		}
	}
	if m.latest != nil {
		snap.Messages = make([]model.MessageSummary, len(m.latest))
		copy(snap.Messages, m.latest)
	}
	return snap
}

// ActiveTickers returns how many ticker goroutines are running: two while a
// session is active, zero otherwise.
func (m *Manager) ActiveTickers() int {
	return int(m.tickers.Load())
}

// Stop halts the tickers of the active session and waits for them. The
// session itself is left as is.
func (m *Manager) Stop() {
	m.mu.Lock()
	r := m.runner
	m.runner = nil
	m.mu.Unlock()

	if r != nil {
		r.stop()
	}
}

func (m *Manager) start(r *runner) {
	r.wg.Add(2)
	m.tickers.Add(2)
	metrics.ActiveTickers.Add(2)

	go m.runCountdown(r)
	go m.runPoller(r)
}

func (m *Manager) tickerDone(r *runner) {
	m.tickers.Add(-1)
	metrics.ActiveTickers.Dec()
	r.wg.Done()
}

// runCountdown publishes the remaining time until the deadline passes.
func (m *Manager) runCountdown(r *runner) {
	defer m.tickerDone(r)

	ticker := time.NewTicker(m.cfg.CountdownInterval)
	defer ticker.Stop()

	for {
		if !m.countdownTick(r) {
			return
		}
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// countdownTick reports whether the countdown should keep running.
func (m *Manager) countdownTick(r *runner) bool {
	m.mu.Lock()
	if r.ctx.Err() != nil || m.generation != r.generation {
		m.mu.Unlock()
		return false
	}

	remaining := m.session.Remaining(m.now())
	addr := m.session.Address
	if remaining > 0 {
		m.mu.Unlock()
		m.emit(TickEvent{
			Address:   addr,
			Remaining: remaining,
			Display:   countdown.Format(remaining),
		})
		return true
	}

	m.session.Expired = true
	m.state = Expired
	m.mu.Unlock()

	r.cancel()
	metrics.MailboxesExpired.Inc()
	m.logger.Info("mailbox expired", zap.String("address", addr))
	m.emit(ExpiredEvent{Address: addr, Display: countdown.ExpiredLabel})
	return false
}

// runPoller lists the mailbox on every tick. Each list runs in its own
// goroutine so a slow request never delays the next tick.
func (m *Manager) runPoller(r *runner) {
	defer m.tickerDone(r)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		m.poll(r)
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		case <-r.trigger:
		}
	}
}

func (m *Manager) poll(r *runner) {
	m.mu.Lock()
	if r.ctx.Err() != nil || m.generation != r.generation {
		m.mu.Unlock()
		return
	}
	if !m.now().Before(r.session.ExpiresAt) {
		m.mu.Unlock()
		return
	}
	m.pollSeq++
	seq := m.pollSeq
	m.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(r.ctx, fetchTimeout)
		defer cancel()

		sess := r.session
		msgs, err := r.provider.ListMessages(ctx, &sess)
		m.applyPoll(r, seq, msgs, err)
	}()
}

// applyPoll installs a poll result unless the session moved on or a newer
// poll already landed. A failed poll keeps the previous list.
func (m *Manager) applyPoll(r *runner, seq uint64, msgs []model.MessageSummary, err error) {
	m.mu.Lock()
	if r.ctx.Err() != nil || m.generation != r.generation || seq <= m.lastApplied {
		m.mu.Unlock()
		metrics.Polls.WithLabelValues("stale").Inc()
		return
	}

	if err != nil {
		m.mu.Unlock()
		metrics.Polls.WithLabelValues("error").Inc()
		m.logger.Warn("polling messages failed",
			zap.String("address", r.session.Address),
			zap.Error(err),
		)
		return
	}

	m.lastApplied = seq
	m.latest = make([]model.MessageSummary, len(msgs))
	copy(m.latest, msgs)
	out := make([]model.MessageSummary, len(msgs))
	copy(out, msgs)

	updateCount := len(msgs) > m.recordedCount
	if updateCount {
		m.recordedCount = len(msgs)
	}
	m.mu.Unlock()

	metrics.Polls.WithLabelValues("ok").Inc()
	m.emit(MessagesEvent{Address: r.session.Address, Messages: out})

	if updateCount && m.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.history.UpdateMessageCount(ctx, r.session.Address, len(out)); err != nil {
			m.logger.Warn("updating mailbox history failed", zap.Error(err))
		}
	}
}

func (m *Manager) record(s *model.Session) {
	if m.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := &model.MailboxRecord{
		Address:   s.Address,
		Provider:  s.Provider,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
	if err := m.history.RecordMailbox(ctx, rec); err != nil {
		m.logger.Warn("recording mailbox history failed", zap.Error(err))
	}
}

// emit publishes e without blocking.
func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}
