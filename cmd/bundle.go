/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tristendillon/dtsbundle/core/generator"
	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/report"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Bundles the declaration files of the project",
	Long:  `Discovers the configured .d.ts inputs and writes the bundle (output.file) or one output per input (output.dir).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("bundle called")
		wd, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		summary, err := generator.NewGenerator(wd, cfg).Run(cmd.Context())
		if summary != nil {
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary(summary))
		}
		if err != nil {
			return fmt.Errorf("failed to bundle declarations: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bundleCmd)
}
