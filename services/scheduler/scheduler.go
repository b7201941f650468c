package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sjsage522/pricecatalog/logger"
)

// RunLogger writes the failed audit row when a job's work errors or panics.
// Successful runs write their own row inside the work function.
type RunLogger interface {
	Log(ctx context.Context, scope, provenance string, found, upserted int, errText string, startedAt, finishedAt time.Time, success bool) error
}

// StateStore persists each job's last scheduled tick across restarts.
type StateStore interface {
	JobState(ctx context.Context, jobID string) (last time.Time, ok bool, err error)
	SetJobState(ctx context.Context, jobID string, last time.Time) error
}

// Job is one periodically executed unit of work. Runs of the same job never
// overlap; a tick arriving while the previous run is still executing is
// skipped.
type Job struct {
	ID           string
	DisplayName  string
	Provenance   string
	Interval     time.Duration
	StartupDelay time.Duration
	MisfireGrace time.Duration
	Work         func(ctx context.Context) error
}

// JobStatus is a point-in-time view of one job for the status surface.
type JobStatus struct {
	ID          string
	DisplayName string
	Trigger     string
	Running     bool
	LastTick    time.Time
	NextTick    time.Time
	LastError   string
}

type jobState struct {
	job       Job
	running   bool
	lastTick  time.Time
	nextTick  time.Time
	lastError string
}

// Scheduler drives each registered job on its own interval loop.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*jobState
	store   StateStore
	runLog  RunLogger
	logger  *logger.Logger
	now     func() time.Time
	cancel  context.CancelFunc
	done    sync.WaitGroup
	started bool
}

// New creates a scheduler that persists tick anchors in store and records
// failed runs through runLog.
func New(store StateStore, runLog RunLogger) *Scheduler {
	return &Scheduler{
		store:  store,
		runLog: runLog,
		logger: logger.ForScheduler(),
		now:    time.Now,
	}
}

// Schedule registers a job. Must be called before Start.
func (s *Scheduler) Schedule(job Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive", job.ID)
	}
	if job.Work == nil {
		return fmt.Errorf("job %q: work function is required", job.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("job %q: scheduler already started", job.ID)
	}
	for _, existing := range s.jobs {
		if existing.job.ID == job.ID {
			return fmt.Errorf("job %q: already scheduled", job.ID)
		}
	}
	s.jobs = append(s.jobs, &jobState{job: job})
	return nil
}

// Start launches one goroutine per registered job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, state := range s.jobs {
		s.done.Add(1)
		go s.runLoop(runCtx, state)
		s.logger.Info().
			Str("job", state.job.ID).
			Dur("interval", state.job.Interval).
			Msg("Job scheduled")
	}
}

// Shutdown stops ticking and waits for in-flight runs to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.done.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// Jobs returns a snapshot of every job's status.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, state := range s.jobs {
		out = append(out, JobStatus{
			ID:          state.job.ID,
			DisplayName: state.job.DisplayName,
			Trigger:     "every " + state.job.Interval.String(),
			Running:     state.running,
			LastTick:    state.lastTick,
			NextTick:    state.nextTick,
			LastError:   state.lastError,
		})
	}
	return out
}

// Running reports whether any job is executing right now.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, state := range s.jobs {
		if state.running {
			return true
		}
	}
	return false
}

// runLoop drives one job serially. The first tick comes from the persisted
// anchor when one exists, otherwise from the startup delay; later ticks are
// computed from the anchor so a slow run does not drift the schedule.
func (s *Scheduler) runLoop(ctx context.Context, state *jobState) {
	defer s.done.Done()
	job := state.job
	log := s.logger.WithField("job", job.ID)

	last, ok, err := s.store.JobState(ctx, job.ID)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load persisted tick, falling back to startup delay")
		ok = false
	}

	var next time.Time
	if ok {
		next = nextTick(last, job.Interval, job.MisfireGrace, s.now())
	} else {
		next = s.now().Add(job.StartupDelay)
	}

	for {
		s.mu.Lock()
		state.nextTick = next
		s.mu.Unlock()

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		tick := next
		// The anchor is persisted before the run so a crash mid-run counts
		// the tick as taken and misfire grace applies on restart.
		if err := s.store.SetJobState(ctx, job.ID, tick); err != nil {
			log.Warn().Err(err).Msg("Could not persist tick anchor")
		}

		s.execute(ctx, state, tick)

		// Ticks that came due while the run was executing would overlap it;
		// they are dropped outright, grace applies only across restarts.
		next = nextTick(tick, job.Interval, 0, s.now())
	}
}

// execute runs the job once, converting panics and errors into a failed
// audit row.
func (s *Scheduler) execute(ctx context.Context, state *jobState, tick time.Time) {
	job := state.job
	log := s.logger.WithField("job", job.ID)

	s.mu.Lock()
	state.running = true
	state.lastTick = tick
	s.mu.Unlock()

	startedAt := s.now()
	err := s.runWork(ctx, job)
	finishedAt := s.now()

	s.mu.Lock()
	state.running = false
	if err != nil {
		state.lastError = err.Error()
	} else {
		state.lastError = ""
	}
	s.mu.Unlock()

	if err == nil {
		log.Debug().Msg("Job run finished")
		return
	}

	log.Error().Err(err).Msg("Job run failed")
	logErr := s.runLog.Log(ctx, "all", job.Provenance, 0, 0, err.Error(), startedAt, finishedAt, false)
	if logErr != nil {
		log.Error().Err(logErr).Msg("Could not record failed run")
	}
}

func (s *Scheduler) runWork(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Work(ctx)
}

// nextTick returns the first on-schedule tick after last that is either in
// the future or overdue by no more than grace. Ticks missed by more than the
// grace window are skipped rather than replayed in a burst.
func nextTick(last time.Time, interval, grace time.Duration, now time.Time) time.Time {
	next := last.Add(interval)
	for now.Sub(next) > grace {
		next = next.Add(interval)
	}
	return next
}
