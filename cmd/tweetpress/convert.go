package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tweetpress/internal/archive"
	"tweetpress/internal/metadata"
	"tweetpress/internal/pipeline"
	"tweetpress/internal/render"
	"tweetpress/internal/resolve"
	"tweetpress/internal/transport"
	"tweetpress/pkg/config"
	"tweetpress/pkg/logger"
)

func newConvertCmd() *cobra.Command {
	var (
		inputPath string
		outputDir string
		userID    string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Reconstruct threads and render the archive into markdown documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Get()

			cfg, err := config.Load(flagSettings)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			store, err := archive.LoadFile(inputPath)
			if err != nil {
				return err
			}
			log.Info("loaded archive",
				zap.String("input", inputPath),
				zap.Int("posts", store.Len()))

			client := transport.NewClient(cfg.Settings.HTTPTimeout(), cfg.Settings.ProbeRatePerSec)

			var titler transport.Titler
			if cfg.Settings.FetchLinkTitles {
				titler = client
			}

			var completer metadata.Completer
			if cfg.LLMConfigured() {
				completer = metadata.NewOpenAICompleter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
				log.Info("text-generation service configured", zap.String("model", cfg.LLMModel))
			} else {
				log.Info("text-generation service not configured, using deterministic metadata")
			}

			cutoff, err := cfg.Settings.DraftCutoffTime()
			if err != nil {
				return err
			}

			counters, err := pipeline.Run(cmd.Context(), store, pipeline.Options{
				LocalAuthorID:  userID,
				OutputDir:      outputDir,
				RenderWorkers:  cfg.Settings.RenderWorkers,
				LLMConcurrency: cfg.Settings.LLMConcurrency,
				Resolver:       resolve.New(client),
				Renderer:       render.New(client, titler, cfg.Settings.SiteBaseURL),
				Generator:      metadata.NewGenerator(completer, metadata.DefaultPolicy(), cutoff),
			})
			if err != nil {
				return err
			}

			log.Info("conversion complete", zap.Int("documents", counters.Written))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to the archive JSON export")
	cmd.Flags().StringVar(&outputDir, "output", "", "output content directory")
	cmd.Flags().StringVar(&userID, "user-id", "", "archive owner's user id, used to detect self-threads")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("user-id")
	return cmd
}
