package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel job-id",
	Short: "Stop a running job on the server",
	Long: `Asks the server to stop a job. The job keeps the best configuration it
reached and ends in the cancelled state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cancelJob(cmd.OutOrStdout(), serverURL, args[0])
	},
}

func init() {
	cancelCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(cancelCmd)
}

func cancelJob(out io.Writer, baseURL, jobID string) error {
	url := fmt.Sprintf("%s/api/v1/jobs/%s/cancel", baseURL, jobID)
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Fprintf(out, "Cancellation requested for %s\n", jobID)
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("job not found: %s", jobID)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}
}
