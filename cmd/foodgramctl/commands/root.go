package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
)

var (
	// Global flags
	logLevel string
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "foodgramctl",
	Short: "Administrative tasks for the Foodgram backend",
	Long: `foodgramctl runs maintenance tasks against the database configured for
the API server (environment, secrets directory or config file).

Commands:
  migrate  - Create or update the database schema
  seed     - Load demo users, tags and ingredients
  token    - Issue an access token for a user`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{Level: level, Format: "console"})
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// openDatabase loads the configuration and connects to its database.
func openDatabase() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
