package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/snakefit/internal/fit"
	"github.com/cwbudde/snakefit/internal/snake"
	"golang.org/x/time/rate"
)

// progressInterval is the minimum spacing of live progress events per job.
const progressInterval = 250 * time.Millisecond

// runJob executes a snake fit in the background. Cancelling ctx stops the
// optimizer at its next energy evaluation; the best configuration reached so
// far is kept on the job.
func runJob(ctx context.Context, jm *JobManager, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}
	jobsRunning.Inc()
	defer jobsRunning.Dec()

	slog.Info("Starting job", "job_id", jobID, "nodes", len(job.Config.Contour.Nodes))

	c, err := job.Config.Contour.Build()
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("invalid contour: %w", err))
		return err
	}

	cfg := fit.DefaultConfig()
	cfg.MaxCycles = job.Config.MaxCycles
	if job.Config.PreSearch {
		cfg.PreSearch.Enabled = true
		if job.Config.PreSearchIters > 0 {
			cfg.PreSearch.Iters = job.Config.PreSearchIters
		}
		if job.Config.PopSize > 0 {
			cfg.PreSearch.PopSize = job.Config.PopSize
		}
		if job.Config.Seed != 0 {
			cfg.PreSearch.Seed = job.Config.Seed
		}
	}
	throttle := rate.Sometimes{Interval: progressInterval}
	cfg.Progress = func(step snake.Step) {
		var event ProgressEvent
		jm.UpdateJob(jobID, func(j *Job) {
			j.Nodes = step.Nodes
			j.Energy = step.Energy
			j.Steps++
			event = progressEvent(*j)
		})
		throttle.Do(func() {
			jm.broadcaster.Broadcast(event)
		})
	}

	initialEnergy := c.Energy()
	jm.UpdateJob(jobID, func(j *Job) {
		j.InitialEnergy = initialEnergy
		j.Energy = initialEnergy
	})

	start := time.Now()
	result, err := fit.Run(ctx, c, nil, cfg)
	jobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	evaluationsTotal.Add(float64(result.Stats.Evaluations))

	state := StateCompleted
	if result.Cancelled {
		state = StateCancelled
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = state
		j.Nodes = result.Nodes
		j.Energy = result.Energy
		j.InitialEnergy = result.InitialEnergy
		j.Converged = result.Converged
		j.Stats = result.Stats
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}
	jobsTotal.WithLabelValues(string(state)).Inc()

	final, _ := jm.GetJob(jobID)
	jm.broadcaster.Broadcast(progressEvent(final))

	if state == StateCancelled {
		slog.Info("Job cancelled", "job_id", jobID, "energy", result.Energy)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return context.Canceled
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", result.Elapsed,
		"initial_energy", result.InitialEnergy,
		"energy", result.Energy,
		"converged", result.Converged,
		"evaluations", result.Stats.Evaluations,
	)
	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jobsTotal.WithLabelValues(string(StateFailed)).Inc()
	slog.Error("Job failed", "job_id", jobID, "error", err)
}
