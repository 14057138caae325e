package cmd

import (
	"fmt"

	"github.com/depin-orcha/orcha/app/database"
	"github.com/depin-orcha/orcha/config"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show database tables and row counts",
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

		tables, err := database.ListTables(db)
		if err != nil {
			return err
		}

		if len(tables) == 0 {
			fmt.Printf("database %s has no tables; run migrate first\n", cfg.DatabasePath)
			return nil
		}

		fmt.Printf("database: %s\n", cfg.DatabasePath)
		for _, table := range tables {
			count, err := database.CountRows(db, table)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d row(s)\n", table, count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
