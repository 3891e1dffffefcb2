// nocctl is the operator CLI: analyze telemetry files, browse tickets and
// ask the support router questions.
//
// Usage:
//
//	nocctl analyze --file=<telemetry.csv|json> [--period=24] [--create-tickets]
//	nocctl tickets list
//	nocctl tickets get <ticket-id>
//	nocctl ask "<query>"
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	storePath string
}

var rootCmd = &cobra.Command{
	Use:           "nocctl",
	Short:         "Telemetry anomaly analysis and incident tickets",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.storePath, "store", "", "ticket store file (overrides TICKET_STORE_PATH)")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
