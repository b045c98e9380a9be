package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scriptforge",
	Short: "ScriptForge - short story to video script generator",
	Long: `ScriptForge turns a short story into a structured multi-speaker video
script by prompting a completion service and validating the response.

When the service is unreachable or keeps producing invalid output, a
deterministic offline generator produces a usable script instead.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
