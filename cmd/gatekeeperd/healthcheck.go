/*
healthcheck subcommand: a one-shot liveness probe suitable for a
container HEALTHCHECK directive, grounded on getmockd-mockd's own
`health` subcommand shape (pkg/cli/health.go).
*/
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckAddr string

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe a running gatekeeperd instance's /mqtt/health endpoint",
	RunE:  runHealthcheck,
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckAddr, "addr", "http://localhost:8080", "Base URL of the running instance")
	rootCmd.AddCommand(healthcheckCmd)
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthcheckAddr + "/mqtt/health")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck failed: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
