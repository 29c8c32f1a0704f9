package server

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/snakefit/internal/contour"
	"github.com/cwbudde/snakefit/internal/snake"
)

// ringConfig describes n nodes on a wobbly circle pulled onto the unit circle,
// differentiated numerically so the fit does real work.
func ringConfig(n int) JobConfig {
	nodes := make(snake.NodeSet, n)
	targets := make([]snake.Vec2, n)
	for i := range nodes {
		a := 2 * math.Pi * float64(i) / float64(n)
		r := 1.5 + 0.3*math.Sin(5*a)
		nodes[i] = snake.Node{X: r * math.Cos(a), Y: r * math.Sin(a)}
		targets[i] = snake.Vec2{X: math.Cos(a), Y: math.Sin(a)}
	}
	return JobConfig{
		Contour: contour.File{
			Nodes:      nodes,
			Targets:    targets,
			Elasticity: 0.5,
			Closed:     true,
			Numeric:    true,
		},
	}
}

func TestRunJob_Success(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(squareConfig())

	err := runJob(context.Background(), jm, job.ID)
	if err != nil {
		t.Errorf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}

	if !updated.Converged {
		t.Error("Job should converge on a quadratic energy")
	}

	if updated.Energy >= updated.InitialEnergy {
		t.Errorf("Energy should decrease: %f -> %f", updated.InitialEnergy, updated.Energy)
	}

	if updated.Stats.Evaluations == 0 {
		t.Error("Stats should be recorded")
	}

	if updated.Steps == 0 {
		t.Error("Progress steps should be recorded")
	}

	if len(updated.Nodes) != 4 {
		t.Errorf("Expected 4 nodes, got %d", len(updated.Nodes))
	}

	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
}

func TestRunJob_WithPreSearch(t *testing.T) {
	jm := NewJobManager()
	config := squareConfig()
	config.PreSearch = true
	config.PreSearchIters = 10
	config.PopSize = 20
	config.Seed = 7

	job := jm.CreateJob(config)

	if err := runJob(context.Background(), jm, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}
}

func TestRunJob_InvalidContour(t *testing.T) {
	jm := NewJobManager()
	config := squareConfig()
	config.Contour.Targets = config.Contour.Targets[:2]

	job := jm.CreateJob(config)

	err := runJob(context.Background(), jm, job.ID)
	if err == nil {
		t.Error("runJob should fail for mismatched targets")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}

	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunJob_NotFound(t *testing.T) {
	jm := NewJobManager()

	err := runJob(context.Background(), jm, "nonexistent")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestRunJob_CancelledBeforeStart(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(squareConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runJob(ctx, jm, job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("runJob should return context.Canceled, got %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}

	if updated.Converged {
		t.Error("Cancelled job should not be converged")
	}

	for i, n := range updated.Nodes {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			t.Errorf("Node %d is not finite after cancellation", i)
		}
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(ringConfig(200))

	ctx, cancel := context.WithCancel(context.Background())
	jm.attachCancel(job.ID, cancel)

	done := make(chan error)
	go func() {
		done <- runJob(ctx, jm, job.ID)
	}()

	// Give it time to start
	time.Sleep(20 * time.Millisecond)
	jm.CancelJob(job.ID)

	var err error
	select {
	case err = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("runJob did not stop after cancellation")
	}

	updated, _ := jm.GetJob(job.ID)
	// The fit may finish before the cancel lands
	switch updated.State {
	case StateCancelled:
		if err == nil {
			t.Error("runJob should return an error when cancelled")
		}
	case StateCompleted:
		if err != nil {
			t.Errorf("Completed job should not return an error: %v", err)
		}
	default:
		t.Errorf("Job should be cancelled or completed, got %s", updated.State)
	}

	if updated.Energy > updated.InitialEnergy {
		t.Errorf("Energy should never increase: %f -> %f", updated.InitialEnergy, updated.Energy)
	}
}
