// Package scheduler runs periodic maintenance jobs such as the match
// auto-lock sweep on top of gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is a named task run every Interval. Run reports how many items it touched.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Locker is the service operation behind the auto-lock job.
type Locker interface {
	AutoLockStartingMatches(ctx context.Context, minutesBefore int) (int, error)
}

// AutoLockJob locks matches starting within minutesBefore minutes.
func AutoLockJob(l Locker, interval time.Duration, minutesBefore int) Job {
	return Job{
		Name:     "auto_lock",
		Interval: interval,
		Run: func(ctx context.Context) (int, error) {
			return l.AutoLockStartingMatches(ctx, minutesBefore)
		},
	}
}

// Scorer is the service operation behind the scoring sweep.
type Scorer interface {
	ScorePendingMatches(ctx context.Context) (int, error)
}

// ScoreSweepJob settles predictions left unscored on finished matches.
func ScoreSweepJob(s Scorer, interval time.Duration) Job {
	return Job{Name: "score_sweep", Interval: interval, Run: s.ScorePendingMatches}
}

// Scheduler owns a gocron scheduler and its registered jobs.
type Scheduler struct {
	mu     sync.Mutex
	sched  gocron.Scheduler
	jobs   map[string]gocron.Job
	logger logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a stopped scheduler.
func New(opts ...Option) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler.new: %w", err)
	}
	s := &Scheduler{sched: sched, jobs: make(map[string]gocron.Job), logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Add registers j. Runs of one job never overlap; a run that would start
// while the previous one is still going is rescheduled.
func (s *Scheduler) Add(ctx context.Context, j Job) error {
	if j.Interval <= 0 || j.Run == nil || j.Name == "" {
		return fmt.Errorf("scheduler.add: invalid job %q", j.Name)
	}
	job, err := s.sched.NewJob(
		gocron.DurationJob(j.Interval),
		gocron.NewTask(s.run, ctx, j),
		gocron.WithName(j.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler.add %s: %w", j.Name, err)
	}
	s.mu.Lock()
	s.jobs[j.Name] = job
	s.mu.Unlock()
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// RunNow triggers the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job.RunNow()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	n, err := j.Run(ctx)
	if err != nil {
		metrics.RecordSchedulerRun(j.Name, "error")
		s.logger.Error(ctx, "scheduled job failed", logger.String("job", j.Name), logger.Error(err))
		return
	}
	metrics.RecordSchedulerRun(j.Name, "ok")
	s.logger.Debug(ctx, "scheduled job done",
		logger.String("job", j.Name),
		logger.Int("affected", n),
		logger.Duration("took", time.Since(start)),
	)
}
