package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dhc-casetracker/internal/config"
	"dhc-casetracker/internal/database"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates or updates the sqlite schema.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		db, err := database.Initialize(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
			os.Exit(1)
		}

		if err := database.Migrate(db); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("database ready at %s\n", cfg.DatabasePath)
	},
}
