// cmd/matchcore/main.go
// Entry point for the match core: match windows, reputation and ghosting detection

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/imadgeboyega/kiekky-matchcore/internal/config"
)

var version = "1.0.0"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:   "matchcore",
		Short: "Kiekky match core",
		Long: `Runs the dating match core of the Kiekky backend.

Match windows give a matched pair 24 hours to confirm interest.
Behavior on those windows and in the resulting conversations feeds
each user's reputation and trust level.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(detectGhostingCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads .env (if any) and the environment into a validated config
func loadConfig() (*config.Config, error) {
	log.Println("📁 Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	log.Printf("✅ Configuration loaded (environment: %s)", cfg.Environment)

	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("matchcore v%s\n", version)
		},
	}
}
