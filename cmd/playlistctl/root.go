package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"playlist-rag-api/internal/config"
	einoobs "playlist-rag-api/internal/observability/eino"
	"playlist-rag-api/internal/wire"
	"playlist-rag-api/pkg/logger"
)

var (
	flagConfigDir string
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "playlistctl",
	Short:         "Ingest a video playlist and ask questions about it",
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "directory containing config.yaml (default ./configs)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level for diagnostics written to stderr")
}

// loadToolkit 加载配置并装配依赖；返回的 cleanup 必须调用
func loadToolkit(ctx context.Context) (*wire.Toolkit, func(), error) {
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if flagConfigDir != "" {
		cfg, err = config.LoadFrom(flagConfigDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger.InitWithWriter(rootCmd.ErrOrStderr(), flagLogLevel, "text")
	einoobs.Init()

	tk, cleanup, err := wire.InitializeToolkit(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	return tk, cleanup, nil
}
