/*
gatekeeperd is the MQTT broker authorization decision service: an
out-of-process HTTP backend for VerneMQ-style auth_on_register,
auth_on_publish, and auth_on_subscribe webhooks.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "gatekeeperd",
	Short:         "MQTT broker authorization decision service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
