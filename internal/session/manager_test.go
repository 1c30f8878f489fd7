package session

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
	"github.com/nhle/tempmail/internal/provider/fake"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func fastConfig() Config {
	return Config{
		Lifetime:          time.Minute,
		CountdownInterval: 10 * time.Millisecond,
		PollInterval:      20 * time.Millisecond,
	}
}

// recorder drains a Manager's events for the duration of a test.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(t *testing.T, m *Manager) *recorder {
	t.Helper()
	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case e := <-m.Events():
				rec.mu.Lock()
				rec.events = append(rec.events, e)
				rec.mu.Unlock()
			}
		}
	}()
	t.Cleanup(func() {
		m.Stop()
		close(done)
	})
	return rec
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(match func(Event) bool) int {
	n := 0
	for _, e := range r.all() {
		if match(e) {
			n++
		}
	}
	return n
}

func isExpired(e Event) bool { _, ok := e.(ExpiredEvent); return ok }
func isFailure(e Event) bool { _, ok := e.(AllocationFailedEvent); return ok }
func isTick(e Event) bool    { _, ok := e.(TickEvent); return ok }

func TestGenerateStartsTickers(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	rec := record(t, m)

	assert.Equal(t, Idle, m.Snapshot().State)
	assert.Equal(t, 0, m.ActiveTickers())

	s, err := m.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "box1@fake.test", s.Address)
	assert.Equal(t, time.Minute, s.ExpiresAt.Sub(s.CreatedAt))

	snap := m.Snapshot()
	assert.Equal(t, Active, snap.State)
	assert.Equal(t, 2, m.ActiveTickers())

	require.Eventually(t, func() bool { return p.Lists() >= 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return rec.count(isTick) >= 1 }, waitFor, tick)

	events := rec.all()
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, GeneratingEvent{InProgress: true}, events[0])
	started, ok := events[1].(SessionStartedEvent)
	require.True(t, ok, "second event is %T", events[1])
	assert.Equal(t, s.Address, started.Session.Address)
}

func TestFirstTickShowsFullLifetime(t *testing.T) {
	cfg := DefaultConfig()
	m := New(fake.NewProvider(), cfg)
	rec := record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count(isTick) >= 1 }, waitFor, tick)
	for _, e := range rec.all() {
		if te, ok := e.(TickEvent); ok {
			assert.Regexp(t, regexp.MustCompile(`^(10:00|09:5\d)$`), te.Display)
			break
		}
	}
}

func TestRepeatedGenerateKeepsOneTickerPair(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	record(t, m)

	for i := 0; i < 5; i++ {
		_, err := m.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, m.ActiveTickers())
	}

	snap := m.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, "box5@fake.test", snap.Session.Address)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, m.ActiveTickers())
}

func TestSwitchingAddressDiscardsMessages(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	record(t, m)

	p.Deliver("box1@fake.test",
		model.MessageSummary{ID: "a", Subject: "for box1"},
		model.MessageDetail{ID: "a"},
	)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(m.Snapshot().Messages) == 1 }, waitFor, tick)

	_, err = m.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.Snapshot().Messages)

	lists := p.Lists()
	require.Eventually(t, func() bool { return p.Lists() > lists+1 }, waitFor, tick)
	assert.Empty(t, m.Snapshot().Messages)
}

func TestExpiryStopsTickersAndPolling(t *testing.T) {
	p := fake.NewProvider()
	cfg := fastConfig()
	cfg.Lifetime = 80 * time.Millisecond
	m := New(p, cfg)
	rec := record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Snapshot().State == Expired }, waitFor, tick)
	require.Eventually(t, func() bool { return m.ActiveTickers() == 0 }, waitFor, tick)

	snap := m.Snapshot()
	require.NotNil(t, snap.Session)
	assert.True(t, snap.Session.Expired)
	assert.Zero(t, snap.Remaining)

	require.Eventually(t, func() bool { return rec.count(isExpired) == 1 }, waitFor, tick)
	for _, e := range rec.all() {
		if ee, ok := e.(ExpiredEvent); ok {
			assert.Equal(t, "Expired", ee.Display)
		}
	}

	time.Sleep(20 * time.Millisecond)
	lists := p.Lists()
	ticks := rec.count(isTick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, lists, p.Lists(), "no polls after expiry")
	assert.Equal(t, ticks, rec.count(isTick), "no ticks after expiry")
	assert.Equal(t, 1, rec.count(isExpired))
}

func TestGenerateAfterExpiryRestartsTickers(t *testing.T) {
	cfg := fastConfig()
	cfg.Lifetime = 40 * time.Millisecond
	m := New(fake.NewProvider(), cfg)
	record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.ActiveTickers() == 0 }, waitFor, tick)

	_, err = m.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Active, m.Snapshot().State)
	assert.Equal(t, 2, m.ActiveTickers())
}

func TestFailedAllocationKeepsIdle(t *testing.T) {
	p := fake.NewProvider()
	p.SetAllocErr(errors.New("upstream down"))
	m := New(p, fastConfig())
	rec := record(t, m)

	_, err := m.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, provider.IsAllocationError(err))

	snap := m.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Session)
	assert.False(t, snap.Generating, "control is enabled again")
	assert.Equal(t, 0, m.ActiveTickers())

	require.Eventually(t, func() bool { return len(rec.all()) >= 3 }, waitFor, tick)
	events := rec.all()
	require.Len(t, events, 3)
	assert.Equal(t, GeneratingEvent{InProgress: true}, events[0])
	assert.IsType(t, AllocationFailedEvent{}, events[1])
	assert.Equal(t, GeneratingEvent{InProgress: false}, events[2])
	assert.Equal(t, 1, rec.count(isFailure))

	p.SetAllocErr(nil)
	_, err = m.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Active, m.Snapshot().State)
}

func TestFailedAllocationKeepsActiveSession(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	record(t, m)

	first, err := m.Generate(context.Background())
	require.NoError(t, err)

	p.SetAllocErr(errors.New("upstream down"))
	_, err = m.Generate(context.Background())
	require.Error(t, err)

	snap := m.Snapshot()
	assert.Equal(t, Active, snap.State)
	assert.Equal(t, first.Address, snap.Session.Address)
	assert.Equal(t, 2, m.ActiveTickers())
}

func TestGenerateRejectedWhileInFlight(t *testing.T) {
	p := fake.NewProvider()
	release := make(chan struct{})
	entered := make(chan struct{})
	p.SetAllocHook(func(ctx context.Context) {
		close(entered)
		<-release
	})
	m := New(p, fastConfig())
	record(t, m)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Generate(context.Background())
		errCh <- err
	}()

	<-entered
	assert.True(t, m.Snapshot().Generating)

	_, err := m.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGenerateInProgress)

	p.SetAllocHook(nil)
	close(release)
	require.NoError(t, <-errCh)
	assert.Equal(t, 1, p.Allocations())
	assert.False(t, m.Snapshot().Generating)
}

func TestFailedPollKeepsListAndTicker(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	record(t, m)

	p.Deliver("box1@fake.test",
		model.MessageSummary{ID: "1", Subject: "hello"},
		model.MessageDetail{ID: "1"},
	)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(m.Snapshot().Messages) == 1 }, waitFor, tick)

	p.SetListErr(errors.New("timeout"))
	lists := p.Lists()
	require.Eventually(t, func() bool { return p.Lists() >= lists+3 }, waitFor, tick)

	snap := m.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "hello", snap.Messages[0].Subject)
	assert.Equal(t, Active, snap.State)
	assert.Equal(t, 2, m.ActiveTickers())
}

func TestPollReplacesList(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	rec := record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.Lists() >= 1 }, waitFor, tick)

	p.Deliver("box1@fake.test", model.MessageSummary{ID: "1"}, model.MessageDetail{ID: "1"})
	p.Deliver("box1@fake.test", model.MessageSummary{ID: "2"}, model.MessageDetail{ID: "2"})

	require.Eventually(t, func() bool { return len(m.Snapshot().Messages) == 2 }, waitFor, tick)
	assert.Equal(t, "1", m.Snapshot().Messages[0].ID, "provider order is kept")

	var last MessagesEvent
	for _, e := range rec.all() {
		if me, ok := e.(MessagesEvent); ok {
			last = me
		}
	}
	assert.Equal(t, "box1@fake.test", last.Address)
}

func TestSlowPollDoesNotBlockTicks(t *testing.T) {
	p := fake.NewProvider()
	var once sync.Once
	p.SetListHook(func(ctx context.Context, _ *model.Session) {
		blocked := false
		once.Do(func() { blocked = true })
		if blocked {
			<-ctx.Done()
		}
	})
	m := New(p, fastConfig())
	record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return p.Lists() >= 3 }, waitFor, tick)
	assert.NotNil(t, m.Snapshot().Messages, "later polls still land")
}

func TestStalePollResultsDiscarded(t *testing.T) {
	p := fake.NewProvider()
	cfg := fastConfig()
	cfg.PollInterval = time.Hour
	m := New(p, cfg)
	record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.lastApplied == 1
	}, waitFor, tick)

	m.mu.Lock()
	r := m.runner
	m.mu.Unlock()

	m.applyPoll(r, 1, []model.MessageSummary{{ID: "late"}}, nil)
	assert.Empty(t, m.Snapshot().Messages, "same sequence is not applied twice")

	m.applyPoll(r, 5, []model.MessageSummary{{ID: "fresh"}}, nil)
	m.applyPoll(r, 3, []model.MessageSummary{{ID: "older"}}, nil)
	require.Len(t, m.Snapshot().Messages, 1)
	assert.Equal(t, "fresh", m.Snapshot().Messages[0].ID)

	_, err = m.Generate(context.Background())
	require.NoError(t, err)
	m.applyPoll(r, 99, []model.MessageSummary{{ID: "previous session"}}, nil)
	for _, msg := range m.Snapshot().Messages {
		assert.NotEqual(t, "previous session", msg.ID)
	}
}

func TestInFlightPollOfReplacedSessionIsDropped(t *testing.T) {
	p := fake.NewProvider()
	p.Deliver("box1@fake.test", model.MessageSummary{ID: "old"}, model.MessageDetail{ID: "old"})

	entered := make(chan struct{}, 1)
	p.SetListHook(func(ctx context.Context, s *model.Session) {
		if s.Address != "box1@fake.test" {
			return
		}
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
	})

	m := New(p, fastConfig())
	record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	<-entered

	_, err = m.Generate(context.Background())
	require.NoError(t, err)

	lists := p.Lists()
	require.Eventually(t, func() bool { return p.Lists() > lists+1 }, waitFor, tick)
	assert.Empty(t, m.Snapshot().Messages)
}

func TestOpenMessage(t *testing.T) {
	p := fake.NewProvider()
	m := New(p, fastConfig())
	record(t, m)

	_, err := m.OpenMessage(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNoSession)

	p.Deliver("box1@fake.test",
		model.MessageSummary{ID: "1", Subject: "hi"},
		model.MessageDetail{ID: "1", Subject: "hi", Text: "body"},
	)
	_, err = m.Generate(context.Background())
	require.NoError(t, err)

	d, err := m.OpenMessage(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "body", d.Text)

	_, err = m.OpenMessage(context.Background(), "missing")
	assert.ErrorIs(t, err, fake.ErrNotFound)
	assert.Equal(t, Active, m.Snapshot().State, "detail failures leave the session alone")
}

func TestRefreshPollsImmediately(t *testing.T) {
	p := fake.NewProvider()
	cfg := fastConfig()
	cfg.PollInterval = time.Hour
	m := New(p, cfg)
	record(t, m)

	_, err := m.Generate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.Lists() == 1 }, waitFor, tick)

	m.Refresh()
	require.Eventually(t, func() bool { return p.Lists() == 2 }, waitFor, tick)
}

type memoryHistory struct {
	mu      sync.Mutex
	records []model.MailboxRecord
	counts  map[string]int
}

func (h *memoryHistory) RecordMailbox(_ context.Context, rec *model.MailboxRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, *rec)
	return nil
}

func (h *memoryHistory) UpdateMessageCount(_ context.Context, address string, count int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[address] = count
	return nil
}

func (h *memoryHistory) count(address string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[address]
}

func TestHistoryIsRecorded(t *testing.T) {
	p := fake.NewProvider()
	h := &memoryHistory{counts: make(map[string]int)}
	m := New(p, fastConfig(), WithHistory(h))
	record(t, m)

	p.Deliver("box1@fake.test", model.MessageSummary{ID: "1"}, model.MessageDetail{ID: "1"})

	_, err := m.Generate(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.count("box1@fake.test") == 1 }, waitFor, tick)
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.records, 1)
	assert.Equal(t, model.ProviderMailGW, h.records[0].Provider)
}
