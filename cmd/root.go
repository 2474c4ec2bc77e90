package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "legalchat",
	Short: "Jurisdiction-aware legal Q&A service",
	Long:  "Answers knife-law questions per country: detects referenced jurisdictions, retrieves indexed legislation chunks balanced across them, and produces a cited draft-then-refined answer.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
