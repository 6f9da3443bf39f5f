/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tristendillon/dtsbundle/core/cache"
	"github.com/tristendillon/dtsbundle/core/generator"
	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuilds the bundle whenever a declaration file changes",
	Long:  `Bundles once, then watches the input root and rebuilds after every burst of changes until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("watch called")
		wd, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rewriteCache, err := cache.NewRewriteCache(cfg.Cache.MaxEntries)
		if err != nil {
			return err
		}
		gen := generator.NewGenerator(wd, cfg, generator.WithCache(rewriteCache))
		walk := gen.Walker()

		fw, err := watcher.NewFileWatcher(walk.Root, gen.OutputPaths(), walk.Matches)
		if err != nil {
			return err
		}
		defer fw.Close()

		run := func() error {
			summary, err := gen.Run(cmd.Context())
			if summary != nil {
				logger.Info("Rebuilt %d output(s), %d failed", len(summary.Files), summary.Failed)
			}
			return err
		}
		fw.FileWatcher.AddOnStartFunc(run)
		fw.FileWatcher.AddOnChangeFunc(run)
		fw.FileWatcher.AddOnCloseFunc(func() error {
			logger.Info("Stopped watching %s", walk.Root)
			return nil
		})

		logger.Info("Watching %s for declaration changes", walk.Root)
		if err := fw.Watch(cmd.Context()); err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
