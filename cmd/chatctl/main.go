// Command chatctl is the operator CLI for the storefront chat service: it runs the guardrails
// and the pipeline locally and inspects the SQLite state database.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	asJSON  bool
	verbose bool
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "chatctl",
		Short: "Operator tools for the storefront chat service",
		Long: `chatctl runs the chat guardrails and pipeline locally and inspects the
conversation state database.

Examples:
  chatctl classify "who won the arsenal match"
  chatctl detect "abeg how much be this bag"
  chatctl ask --fixtures stores.yaml --store acme "how much is the leather bag?"
  chatctl session show 4f1c... --db storefront-chat.db
  chatctl events --db storefront-chat.db --store acme --limit 20`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor || asJSON {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline internals to stderr")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		classifyCmd(),
		detectCmd(),
		askCmd(),
		sessionCmd(),
		eventsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cliLogger is silent unless --verbose is set.
func cliLogger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
