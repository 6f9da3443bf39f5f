/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tristendillon/dtsbundle/core/generator"
	"github.com/tristendillon/dtsbundle/core/logger"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verifies that the generated bundle is up to date",
	Long: `Runs the bundler without writing anything and prints a diff for every
output that would change. Exits non-zero when any output is out of date.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("check called")
		wd, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		summary, err := generator.NewGenerator(wd, cfg, generator.WithCheck(cmd.OutOrStdout())).Run(cmd.Context())
		if err != nil {
			logger.Error("%v", err)
			return err
		}
		logger.Info("%d output(s) up to date", len(summary.Files))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
