package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orcha",
	Short: "DePIN earnings service and admin tools",
	Long:  `The DePIN Orcha API service plus its administrative tooling: database migrations, database inspection, and API key management.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
