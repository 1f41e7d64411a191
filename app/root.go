// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lendkeeper",
	Short: "LendKeeper is an equipment-lending management backend",
	Long: `LendKeeper is the backend for a nonprofit equipment-lending service.
It tracks durable medical equipment, physical instances of each product,
loans to clients, volunteer activity and user permissions, and keeps an
append-only audit trail of every action.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
