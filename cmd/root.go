/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "dtsbundle",
	Short: "Bundles TypeScript declaration files into one distributable .d.ts.",
	Long: `dtsbundle merges many .d.ts files into a single declaration bundle.
External imports are hoisted into one sorted, de-duplicated header, internal
imports are dropped, and the module wrapper is renamed, flattened or removed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)
		logger.SetNoColor(noColor)
		if logfile != "" {
			if err := logger.SetLogFile(logfile); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	},
}

var (
	configPath string
	logfile    string
	verbose    bool
	noColor    bool
)

// overrides collects DTSBUNDLE_* environment variables and the config
// flags below; anything set there wins over the config file.
var overrides = config.NewViper()

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to the config file (default ./dtsbundle.yaml)")
	flags.StringVar(&logfile, "logfile", "", "File to write logs to")
	flags.BoolVar(&verbose, "verbose", false, "Verbose output")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	flags.String("module-name", "", "Module name for the export directive and module wrapper")
	flags.String("library-name", "", "Global name for the namespace export")
	flags.String("out-file", "", "Write one bundle to this file")
	flags.String("out-dir", "", "Write one output per input under this directory")
	flags.String("mode", "", "Module wrapper handling: flatten, rename or unwrap")

	bindFlag(overrides, "module_name", "module-name")
	bindFlag(overrides, "library_name", "library-name")
	bindFlag(overrides, "output.file", "out-file")
	bindFlag(overrides, "output.dir", "out-dir")
	bindFlag(overrides, "wrapper.mode", "mode")
}

func bindFlag(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
	}
}

// loadConfig resolves the working directory and the effective config:
// flags, then environment, then the config file, then defaults.
func loadConfig() (string, *config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.Load(wd, configPath)
	if err != nil {
		return "", nil, err
	}
	cfg.ApplyOverrides(overrides)

	// An explicit --out-dir replaces the default single-file output.
	if overrides.IsSet("output.dir") && !overrides.IsSet("output.file") {
		cfg.Output.File = ""
	}

	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	return wd, cfg, nil
}
