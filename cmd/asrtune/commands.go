package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// --- optimize ---

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Start an optimization run for a user's transcripts",
	Long: `Start an optimization run for a user's transcripts.

Examples:
  asrtune optimize --project 6789abcd --user +15550001111 --vf-api-key VF.DM.xxx
  asrtune optimize --project 6789abcd --user +15550001111 --vf-api-key VF.DM.xxx --no-split --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		user, _ := cmd.Flags().GetString("user")
		vfAPIKey, _ := cmd.Flags().GetString("vf-api-key")
		noSplit, _ := cmd.Flags().GetBool("no-split")
		wait, _ := cmd.Flags().GetBool("wait")

		if project == "" || user == "" || vfAPIKey == "" {
			return fmt.Errorf("--project, --user, and --vf-api-key are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"projectID": project,
			"userID":    user,
			"vfApiKey":  vfAPIKey,
		}
		if noSplit {
			req["splitByLaunch"] = false
		}

		resp, err := client.post(cmd.Context(), "/optimize", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Optimization started for %s", result["userID"])
		if !wait {
			return nil
		}

		printStep("Waiting for results...")
		return pollResults(cmd, client, result["userID"])
	},
}

func pollResults(cmd *cobra.Command, client *apiClient, userID string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(2 * time.Second):
		}

		resp, err := client.get(cmd.Context(), "/results?userID="+url.QueryEscape(userID))
		if err != nil {
			return err
		}

		var job struct {
			Status string          `json:"status"`
			Result json.RawMessage `json:"result"`
		}
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}
		if job.Status == "pending" {
			continue
		}

		return printJSON(job.Result)
	}
	return fmt.Errorf("timed out after %s waiting for results", timeout)
}

func init() {
	optimizeCmd.Flags().String("project", "", "transcript provider project ID")
	optimizeCmd.Flags().String("user", "", "user identifier (phone number)")
	optimizeCmd.Flags().String("vf-api-key", "", "transcript provider API key")
	optimizeCmd.Flags().Bool("no-split", false, "analyze all transcripts as one conversation")
	optimizeCmd.Flags().Bool("wait", false, "poll until the run finishes and print the result")
	optimizeCmd.Flags().Duration("timeout", 2*time.Minute, "how long to wait with --wait")
}

// --- results ---

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the latest optimization result for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			return fmt.Errorf("--user is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/results?userID="+url.QueryEscape(user))
		if err != nil {
			return err
		}

		var job any
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		return printJSON(job)
	},
}

func init() {
	resultsCmd.Flags().String("user", "", "user identifier (phone number)")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
