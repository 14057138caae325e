package cmd

import (
	"fmt"

	"github.com/depin-orcha/orcha/app/database"
	"github.com/depin-orcha/orcha/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Apply all pending schema migrations to the database configured via DATABASE_PATH.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := database.Migrate(db)
		if err != nil {
			return err
		}

		if len(applied) == 0 {
			fmt.Println("database is up to date")
		} else {
			for _, version := range applied {
				fmt.Printf("applied: %s\n", version)
			}
			fmt.Printf("%d migration(s) applied\n", len(applied))
		}

		tables, err := database.ListTables(db)
		if err != nil {
			return err
		}
		for _, table := range tables {
			fmt.Printf("table: %s\n", table)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
