/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/shared"
	"github.com/tristendillon/dtsbundle/core/template_engine"
)

var (
	force bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Writes a starter dtsbundle.yaml",
	Long:  `Creates a dtsbundle.yaml in dir (default the current directory) with names derived from the directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("init called")
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", dir, err)
		}

		target := filepath.Join(abs, config.FileNames[0])
		if _, err := os.Stat(target); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", target)
		}

		base := filepath.Base(abs)
		data := struct {
			ModuleName  string
			LibraryName string
			Root        string
			OutputFile  string
		}{
			ModuleName:  shared.ToPascal(base),
			LibraryName: shared.ToCamel(base),
			Root:        ".",
			OutputFile:  "dist/index.d.ts",
		}
		if overrides.IsSet("module_name") {
			data.ModuleName = overrides.GetString("module_name")
		}
		if overrides.IsSet("library_name") {
			data.LibraryName = overrides.GetString("library_name")
		}
		if overrides.IsSet("output.file") {
			data.OutputFile = overrides.GetString("output.file")
		}

		engine := template_engine.NewTemplateEngine()
		if err := engine.GenerateFile(template_engine.TEMPLATES.INIT.CONFIG, target, data); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logger.Info("Wrote %s", target)

		fmt.Fprintf(cmd.OutOrStdout(), "Next Steps:\n")
		if dir != "." {
			fmt.Fprintf(cmd.OutOrStdout(), "  - cd %s\n", dir)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  - dtsbundle bundle\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
}
