package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tweetpress/internal/fixtags"
	"tweetpress/pkg/config"
	"tweetpress/pkg/logger"
)

func newFixTagsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "fixtags",
		Short: "Demote truncated third-party retweets in an existing output tree to drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagSettings)
			if err != nil {
				return err
			}
			if cfg.Settings.LocalHandle == "" {
				return fmt.Errorf("local_handle must be set in the settings file for fixtags")
			}

			res, err := fixtags.Run(dir, cfg.Settings.LocalHandle)
			if err != nil {
				return err
			}
			logger.Get().Info("fixtags complete",
				zap.Int("examined", res.Examined),
				zap.Int("altered", res.Altered))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "content directory to process")
	cmd.MarkFlagRequired("dir")
	return cmd
}
