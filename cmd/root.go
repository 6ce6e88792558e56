package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ordering",
	Short: "Cloud kitchen ordering service",
	Long:  `Backend for the cloud kitchen inventory ordering tool: delivery-date grouped carts, bulk quantity adjustments and order submission`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
