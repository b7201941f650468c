package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// MockStateStore implements the StateStore interface for testing
type MockStateStore struct {
	mu      sync.Mutex
	ticks   map[string]time.Time
	history map[string][]time.Time
}

var _ StateStore = (*MockStateStore)(nil)

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{
		ticks:   make(map[string]time.Time),
		history: make(map[string][]time.Time),
	}
}

func (m *MockStateStore) JobState(ctx context.Context, jobID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.ticks[jobID]
	return last, ok, nil
}

func (m *MockStateStore) SetJobState(ctx context.Context, jobID string, last time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[jobID] = last
	m.history[jobID] = append(m.history[jobID], last)
	return nil
}

func (m *MockStateStore) LastTick(jobID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.ticks[jobID]
	return last, ok
}

func (m *MockStateStore) Anchors(jobID string) []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.history[jobID]...)
}

// MockRunLogger implements the RunLogger interface for testing
type MockRunLogger struct {
	mu   sync.Mutex
	rows []mockRunRow
}

type mockRunRow struct {
	scope      string
	provenance string
	found      int
	errText    string
	success    bool
}

var _ RunLogger = (*MockRunLogger)(nil)

func (m *MockRunLogger) Log(ctx context.Context, scope, provenance string, found, upserted int, errText string, startedAt, finishedAt time.Time, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, mockRunRow{scope: scope, provenance: provenance, found: found, errText: errText, success: success})
	return nil
}

func (m *MockRunLogger) Rows() []mockRunRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockRunRow(nil), m.rows...)
}

func TestNextTick(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		last     time.Time
		interval time.Duration
		grace    time.Duration
		now      time.Time
		want     time.Time
	}{
		{
			name:     "on schedule",
			last:     base,
			interval: time.Hour,
			grace:    time.Hour,
			now:      base.Add(10 * time.Minute),
			want:     base.Add(time.Hour),
		},
		{
			name:     "overdue within grace still fires",
			last:     base,
			interval: time.Hour,
			grace:    time.Hour,
			now:      base.Add(time.Hour + 30*time.Minute),
			want:     base.Add(time.Hour),
		},
		{
			name:     "tick past grace is skipped",
			last:     base,
			interval: time.Hour,
			grace:    time.Hour,
			now:      base.Add(2*time.Hour + 5*time.Minute),
			want:     base.Add(2 * time.Hour),
		},
		{
			name:     "long outage skips every missed tick",
			last:     base,
			interval: time.Hour,
			grace:    0,
			now:      base.Add(2*time.Hour + 5*time.Minute),
			want:     base.Add(3 * time.Hour),
		},
		{
			name:     "exactly at grace boundary still fires",
			last:     base,
			interval: time.Hour,
			grace:    time.Hour,
			now:      base.Add(2 * time.Hour),
			want:     base.Add(time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextTick(tt.last, tt.interval, tt.grace, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleValidation(t *testing.T) {
	s := New(NewMockStateStore(), &MockRunLogger{})

	assert.Error(t, s.Schedule(Job{Interval: time.Hour, Work: func(context.Context) error { return nil }}))
	assert.Error(t, s.Schedule(Job{ID: "job", Work: func(context.Context) error { return nil }}))
	assert.Error(t, s.Schedule(Job{ID: "job", Interval: time.Hour}))

	ok := Job{ID: "job", Interval: time.Hour, Work: func(context.Context) error { return nil }}
	assert.NoError(t, s.Schedule(ok))
	assert.Error(t, s.Schedule(ok), "duplicate job id should be rejected")
}

func TestSchedulerRunsJobRepeatedly(t *testing.T) {
	state := NewMockStateStore()
	s := New(state, &MockRunLogger{})

	var runs atomic.Int32
	err := s.Schedule(Job{
		ID:       "fast",
		Interval: 20 * time.Millisecond,
		Work: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	s.Start(context.Background())
	defer s.Shutdown()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "job should tick repeatedly")

	// Each taken tick is persisted as the misfire anchor
	_, ok := state.LastTick("fast")
	assert.True(t, ok)
}

func TestSchedulerStartupDelay(t *testing.T) {
	s := New(NewMockStateStore(), &MockRunLogger{})

	var runs atomic.Int32
	err := s.Schedule(Job{
		ID:           "delayed",
		DisplayName:  "Delayed refresh",
		Interval:     time.Hour,
		StartupDelay: 5 * time.Second,
		Work: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	s.Start(context.Background())
	defer s.Shutdown()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, runs.Load(), "job should still be in its startup delay")

	status := s.Jobs()
	assert.Len(t, status, 1)
	assert.Equal(t, "Delayed refresh", status[0].DisplayName)
	assert.Equal(t, "every 1h0m0s", status[0].Trigger)
	assert.False(t, status[0].Running)
	assert.False(t, status[0].NextTick.IsZero())
	assert.False(t, s.Running())
}

func TestSchedulerRecordsFailedRuns(t *testing.T) {
	runLog := &MockRunLogger{}
	s := New(NewMockStateStore(), runLog)

	err := s.Schedule(Job{
		ID:         "failing",
		Provenance: "structured",
		Interval:   time.Hour,
		Work: func(ctx context.Context) error {
			return errors.New("all sources down")
		},
	})
	assert.NoError(t, err)

	s.Start(context.Background())
	defer s.Shutdown()

	assert.Eventually(t, func() bool {
		return len(runLog.Rows()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	rows := runLog.Rows()
	assert.Equal(t, "all", rows[0].scope)
	assert.Equal(t, "structured", rows[0].provenance)
	assert.Zero(t, rows[0].found)
	assert.False(t, rows[0].success)
	assert.Contains(t, rows[0].errText, "all sources down")

	// A failed run does not stop the loop, it just surfaces in the status
	assert.Eventually(t, func() bool {
		for _, st := range s.Jobs() {
			if st.ID == "failing" && st.LastError != "" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	runLog := &MockRunLogger{}
	s := New(NewMockStateStore(), runLog)

	err := s.Schedule(Job{
		ID:         "panicking",
		Provenance: "aggregator",
		Interval:   time.Hour,
		Work: func(ctx context.Context) error {
			panic("selector blew up")
		},
	})
	assert.NoError(t, err)

	s.Start(context.Background())
	defer s.Shutdown()

	assert.Eventually(t, func() bool {
		return len(runLog.Rows()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	rows := runLog.Rows()
	assert.False(t, rows[0].success)
	assert.Contains(t, rows[0].errText, "selector blew up")
}

func TestSchedulerDropsOverlappedTicks(t *testing.T) {
	state := NewMockStateStore()
	s := New(state, &MockRunLogger{})

	// Work runs several intervals long; every tick that came due during a
	// run would overlap it and must be dropped, not queued for catch-up.
	interval := 50 * time.Millisecond
	err := s.Schedule(Job{
		ID:           "slow",
		Interval:     interval,
		MisfireGrace: 10 * time.Second,
		Work: func(ctx context.Context) error {
			time.Sleep(160 * time.Millisecond)
			return nil
		},
	})
	assert.NoError(t, err)

	s.Start(context.Background())

	assert.Eventually(t, func() bool {
		return len(state.Anchors("slow")) >= 3
	}, 5*time.Second, 10*time.Millisecond)
	s.Shutdown()

	anchors := state.Anchors("slow")
	for i := 1; i < len(anchors); i++ {
		gap := anchors[i].Sub(anchors[i-1])
		assert.GreaterOrEqual(t, gap, 2*interval,
			"tick %d replayed an overlapped tick instead of dropping it", i)
	}
}

func TestSchedulerResumesFromPersistedTick(t *testing.T) {
	state := NewMockStateStore()
	// The anchor is recent enough that the next on-schedule tick is an hour out
	assert.NoError(t, state.SetJobState(context.Background(), "resumed", time.Now()))

	s := New(state, &MockRunLogger{})

	var runs atomic.Int32
	err := s.Schedule(Job{
		ID:           "resumed",
		Interval:     time.Hour,
		MisfireGrace: time.Hour,
		Work: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	assert.NoError(t, err)

	s.Start(context.Background())
	defer s.Shutdown()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, runs.Load(), "persisted anchor should defer the first run to the next interval")
}
