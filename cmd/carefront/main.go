package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "carefront",
		Short:        "StillCare form service and tools",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("env-file", "", "load configuration from this .env file")
	rootCmd.PersistentFlags().String("log-level", "", "override CAREFRONT_LOG_LEVEL")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(discloseCmd())
	rootCmd.AddCommand(fillCmd())
	rootCmd.AddCommand(recordsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
