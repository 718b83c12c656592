package cmd

import (
	"chromafm/config"
	"chromafm/db"
	"chromafm/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: cfg.LogLevel})

		if err := db.ConnectDB(cfg); err != nil {
			logger.Fatal("Failed to connect to database", logger.Err(err))
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			logger.Fatal("Failed to initialize database schema", logger.Err(err))
		}
		logger.Info("Schema migration complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
