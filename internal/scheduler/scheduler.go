package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/helion-data/scanflow/pkg/schema"
)

// WorkflowRunner is the interface the scheduler uses to run workflows.
// Satisfied by the engine (avoids import cycle).
type WorkflowRunner interface {
	RunScheduled(ctx context.Context, wf *schema.Workflow, inputs map[string]any) error
}

// Job is a recurring workflow run driven by a cron expression.
type Job struct {
	ID       string           `json:"id"`
	CronExpr string           `json:"cron_expr"`
	Workflow *schema.Workflow `json:"workflow"`
	Inputs   map[string]any   `json:"inputs,omitempty"`
	Enabled  bool             `json:"enabled"`

	NextRunAt     time.Time `json:"next_run_at"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
	LastRunStatus string    `json:"last_run_status,omitempty"`
}

// Scheduler keeps an in-memory job table and runs due jobs on a fixed tick.
type Scheduler struct {
	runner WorkflowRunner
	parser cron.Parser
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	jobsMu sync.Mutex
	jobs   map[string]*Job

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job IDs currently executing (dedup)
}

// New creates a Scheduler over the given runner.
func New(runner WorkflowRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		jobs:     make(map[string]*Job),
		inflight: make(map[string]struct{}),
	}
}

// Add registers or replaces a job. The next run time is computed from now.
func (s *Scheduler) Add(job *Job) error {
	if job == nil || job.ID == "" {
		return schema.NewError(schema.ErrKindValidation, "scheduled job has no id")
	}
	if job.Workflow == nil {
		return schema.NewError(schema.ErrKindValidation, "scheduled job has no workflow")
	}

	next, err := s.CalculateNextRun(job.CronExpr, time.Now().UTC())
	if err != nil {
		return err
	}
	job.NextRunAt = next

	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()
	return nil
}

// Remove drops a job from the table. Unknown ids are a no-op.
func (s *Scheduler) Remove(id string) {
	s.jobsMu.Lock()
	delete(s.jobs, id)
	s.jobsMu.Unlock()
}

// Jobs returns a snapshot of the registered jobs.
func (s *Scheduler) Jobs() []*Job {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		copied := *j
		out = append(out, &copied)
	}
	return out
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks all enabled jobs and runs those that are due.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()

	s.jobsMu.Lock()
	due := make([]*Job, 0)
	for _, job := range s.jobs {
		if job.Enabled && !job.NextRunAt.After(now) {
			due = append(due, job)
		}
	}
	s.jobsMu.Unlock()

	for _, job := range due {
		if !s.tryAcquire(job.ID) {
			continue // already running (dedup)
		}
		go func(job *Job) {
			defer s.release(job.ID)
			s.runJob(ctx, job, now)
		}(job)
	}
}

// runJob executes a due job and updates its timestamps.
func (s *Scheduler) runJob(ctx context.Context, job *Job, now time.Time) {
	s.logger.Info("running scheduled job",
		slog.String("job_id", job.ID),
		slog.String("workflow", job.Workflow.ID),
	)

	err := s.runner.RunScheduled(ctx, job.Workflow, job.Inputs)
	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("scheduled job execution failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}

	next, nerr := s.CalculateNextRun(job.CronExpr, now)

	s.jobsMu.Lock()
	if cur, ok := s.jobs[job.ID]; ok {
		cur.LastRunAt = now
		cur.LastRunStatus = status
		if nerr == nil {
			cur.NextRunAt = next
		} else {
			// Unparseable expression after an edit; disable instead of spinning.
			cur.Enabled = false
		}
	}
	s.jobsMu.Unlock()
}

// tryAcquire returns true and marks the job as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(jobID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[jobID]; ok {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

// release removes the job from the in-flight set.
func (s *Scheduler) release(jobID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, jobID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
