package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tweetpress/pkg/logger"
)

var (
	flagVerbose  bool
	flagSettings string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tweetpress",
		Short: "Convert a social-media archive export into a publishable Hugo content tree",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(flagVerbose); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagSettings, "config", "", "path to YAML settings file")

	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newFixTagsCmd())

	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
