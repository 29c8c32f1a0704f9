package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// jobSummary is the subset of a job the list view prints
type jobSummary struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	Energy        float64   `json:"energy"`
	InitialEnergy float64   `json:"initialEnergy"`
	Steps         int       `json:"steps"`
	Nodes         []any     `json:"nodes"`
	StartTime     time.Time `json:"startTime"`
}

func listJobs(out io.Writer, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []jobSummary
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Nodes: %d\n", len(job.Nodes))
		if job.Steps > 0 {
			fmt.Fprintf(out, "  Energy: %.6g -> %.6g (%d steps)\n", job.InitialEnergy, job.Energy, job.Steps)
		}
		fmt.Fprintln(out)
	}

	return nil
}

// jobStatus mirrors the status endpoint's response
type jobStatus struct {
	ID             string  `json:"id"`
	State          string  `json:"state"`
	Energy         float64 `json:"energy"`
	InitialEnergy  float64 `json:"initialEnergy"`
	Steps          int     `json:"steps"`
	Converged      bool    `json:"converged"`
	Evaluations    int     `json:"evaluations"`
	Cycles         int     `json:"cycles"`
	Elapsed        float64 `json:"elapsed"`
	EvalsPerSecond float64 `json:"evalsPerSecond"`
	Error          string  `json:"error"`
}

func getJobStatus(out io.Writer, url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Initial Energy: %.6g\n", status.InitialEnergy)
	fmt.Fprintf(out, "  Energy: %.6g\n", status.Energy)
	if status.InitialEnergy > 0 {
		improvement := status.InitialEnergy - status.Energy
		fmt.Fprintf(out, "  Improvement: %.6g (%.1f%%)\n", improvement, improvement/status.InitialEnergy*100)
	}
	fmt.Fprintf(out, "  Steps: %d\n", status.Steps)
	fmt.Fprintf(out, "  Converged: %v\n", status.Converged)

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.Evaluations > 0 {
		fmt.Fprintf(out, "  Evaluations: %d (%.0f/sec, %d cycles)\n", status.Evaluations, status.EvalsPerSecond, status.Cycles)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}

	return nil
}
