package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/granitehq/granite/internal/artifact"
	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
)

// ErrQueueFull is returned by Submit when the job queue is saturated.
// The job stays queued in the store; it is not lost.
var ErrQueueFull = errors.New("job queue is full")

// Orchestrator drives jobs through the pipeline over a bounded worker
// pool. Stage handlers block a worker for the duration of expensive
// rendering and synthesis work; the pool caps how many run at once.
type Orchestrator struct {
	store     jobstore.Store
	artifacts *artifact.Store
	def       *Definition
	logger    *logger.Logger

	queue        chan string
	workers      int
	stageTimeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// OrchestratorConfig holds tuning for the worker pool.
type OrchestratorConfig struct {
	// Workers is the number of jobs processed concurrently.
	Workers int

	// QueueSize bounds how many submitted jobs can wait for a worker.
	QueueSize int

	// StageTimeout bounds each stage invocation; zero disables the
	// bound. An exceeded timeout fails the job like any stage error.
	StageTimeout time.Duration
}

// NewOrchestrator creates an orchestrator. Call Start before Submit.
func NewOrchestrator(
	store jobstore.Store,
	artifacts *artifact.Store,
	def *Definition,
	log *logger.Logger,
	cfg *OrchestratorConfig,
) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:        store,
		artifacts:    artifacts,
		def:          def,
		logger:       log,
		queue:        make(chan string, queueSize),
		workers:      workers,
		stageTimeout: cfg.StageTimeout,
		baseCtx:      ctx,
		cancel:       cancel,
	}
}

// Start launches the worker pool.
func (o *Orchestrator) Start() {
	o.startOnce.Do(func() {
		for i := 0; i < o.workers; i++ {
			o.wg.Add(1)
			go func() {
				defer o.wg.Done()
				for jobID := range o.queue {
					o.run(jobID)
				}
			}()
		}
	})
}

// Submit enqueues a job for asynchronous execution and returns without
// waiting for any stage to run.
func (o *Orchestrator) Submit(jobID string) error {
	select {
	case o.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains the queue and waits for in-flight jobs until ctx expires,
// then cancels their stage contexts.
func (o *Orchestrator) Stop(ctx context.Context) error {
	var err error
	o.stopOnce.Do(func() {
		close(o.queue)

		done := make(chan struct{})
		go func() {
			o.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			o.cancel()
			<-done
			err = ctx.Err()
		}
	})
	return err
}

// Recover reconciles persisted jobs after a restart: jobs that were
// running when the process died are failed (their worker is gone), and
// jobs still queued are re-enqueued.
func (o *Orchestrator) Recover(ctx context.Context) error {
	running, err := o.store.ListByStatus(ctx, domain.JobStatusRunning, 0)
	if err != nil {
		return fmt.Errorf("failed to list running jobs: %w", err)
	}
	for _, job := range running {
		if _, err := o.store.Update(ctx, job.ID, func(j *domain.Job) error {
			j.Status = domain.JobStatusFailed
			j.Error = "generation was interrupted by a server restart"
			j.Message = "Generation interrupted"
			return nil
		}); err != nil {
			o.logger.WithField(logger.FieldJobID, job.ID).WithError(err).
				Error("Failed to mark interrupted job")
		}
	}

	queued, err := o.store.ListByStatus(ctx, domain.JobStatusQueued, 0)
	if err != nil {
		return fmt.Errorf("failed to list queued jobs: %w", err)
	}
	for _, job := range queued {
		if err := o.Submit(job.ID); err != nil {
			o.logger.WithField(logger.FieldJobID, job.ID).WithError(err).
				Warn("Could not re-enqueue job after restart")
		}
	}
	return nil
}

// run executes the full stage sequence for one job. Each job is
// processed by exactly one worker at a time; stages execute strictly in
// pipeline order and each sees only its predecessor's output.
func (o *Orchestrator) run(jobID string) {
	ctx := logger.SetJobID(o.baseCtx, jobID)
	ctx = logger.SetComponent(ctx, "orchestrator")

	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		logger.CtxError(ctx, "Submitted job not found in store: %v", err)
		return
	}
	if job.Status != domain.JobStatusQueued {
		logger.CtxWarn(ctx, "Skipping job in unexpected status %s", job.Status)
		return
	}

	start := time.Now()
	stages := o.def.Stages()
	out := &Output{Text: job.Concept}

	for i, st := range stages {
		progress := i * 100 / len(stages)
		job, err = o.store.Update(ctx, jobID, func(j *domain.Job) error {
			if j.Status.IsTerminal() {
				return fmt.Errorf("job is already %s", j.Status)
			}
			j.Status = domain.JobStatusRunning
			j.CurrentStage = st
			j.Progress = progress
			j.Message = messageFor(st)
			return nil
		})
		if err != nil {
			logger.CtxError(ctx, "Failed to advance job to stage %s: %v", st, err)
			o.fail(ctx, jobID, fmt.Errorf("internal error while starting stage %s", st))
			return
		}

		stageCtx := logger.SetStage(ctx, string(st))
		logger.CtxInfo(stageCtx, "Stage started")

		out, err = o.runStage(stageCtx, st, out, job)
		if err != nil {
			logger.CtxError(stageCtx, "Stage failed: %v", err)
			o.fail(ctx, jobID, err)
			return
		}
		logger.CtxInfo(stageCtx, "Stage completed")
	}

	if out == nil || len(out.Video) == 0 {
		o.fail(ctx, jobID, errors.New("pipeline produced no video"))
		return
	}

	key, err := o.artifacts.Save(ctx, jobID, out.Video)
	if err != nil {
		logger.CtxError(ctx, "Failed to save artifact: %v", err)
		o.fail(ctx, jobID, errors.New("internal error while saving the video"))
		return
	}

	if _, err := o.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.ArtifactKey = key
		j.Message = "Video ready"
		return nil
	}); err != nil {
		logger.CtxError(ctx, "Failed to mark job completed: %v", err)
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldSize:       len(out.Video),
	}).Info(ctx, "Job completed")
}

// runStage invokes one handler under the configured stage timeout.
func (o *Orchestrator) runStage(ctx context.Context, st domain.Stage, in *Output, job *domain.Job) (*Output, error) {
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}

	out, err := o.def.Handler(st).Run(ctx, in, job)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("stage %s timed out after %s", st, o.stageTimeout)
		}
		return nil, err
	}
	return out, nil
}

// fail marks a job failed, leaving CurrentStage at the failing stage.
// A stage failure is terminal for the job; there is no cross-job retry.
func (o *Orchestrator) fail(ctx context.Context, jobID string, cause error) {
	if _, err := o.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("job is already %s", j.Status)
		}
		j.Status = domain.JobStatusFailed
		j.Error = cause.Error()
		j.Message = "Generation failed"
		return nil
	}); err != nil {
		logger.CtxError(ctx, "Failed to mark job failed: %v", err)
	}
}
