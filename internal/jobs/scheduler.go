// AngelaMos | 2026
// scheduler.go

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Recorder interface {
	JobRun(job string, d time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) JobRun(string, time.Duration, error) {}

// Scheduler runs each job on its own ticker. A job never overlaps with
// itself: a tick that arrives while the previous run is still going is
// dropped.
type Scheduler struct {
	jobs     []Job
	logger   *slog.Logger
	recorder Recorder
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewScheduler(logger *slog.Logger, recorder Recorder) *Scheduler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Scheduler{
		logger:   logger,
		recorder: recorder,
		timeout:  5 * time.Minute,
	}
}

func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("add job: name and run func are required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("add job %s: interval must be positive", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches one goroutine per job. Each job runs once immediately,
// then on every tick until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until every job goroutine has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("job stopped", "job", job.Name)
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context, job Job) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.safeRun(runCtx, job)
	elapsed := time.Since(start)

	s.recorder.JobRun(job.Name, elapsed, err)

	if err != nil {
		s.logger.Error("job failed",
			"job", job.Name,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	s.logger.Debug("job finished",
		"job", job.Name,
		"duration", elapsed,
	)
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, p)
		}
	}()
	return job.Run(ctx)
}
