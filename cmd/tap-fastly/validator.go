package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if _, err := loadConfig(configPath); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid!")
	return nil
}
