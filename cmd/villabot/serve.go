package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/keepmind9/villabot/internal/api"
	"github.com/keepmind9/villabot/internal/core"
	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/internal/observability"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveConfig   string
	serveValidate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  "Load the configuration, register every bot with its reply rules and serve platform callbacks until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, err := findConfig(serveConfig)
		if err != nil {
			return err
		}
		cfg, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if serveValidate {
			return printValidation(cmd.OutOrStdout(), validate(configFile, cfg, nil), false)
		}

		if err := logger.InitLogger(logger.Config{
			Level:        cfg.Logging.Level,
			File:         cfg.Logging.File,
			MaxSize:      cfg.Logging.MaxSize,
			MaxBackups:   cfg.Logging.MaxBackups,
			MaxAge:       cfg.Logging.MaxAge,
			Compress:     cfg.Logging.Compress,
			EnableStdout: cfg.Logging.EnableStdout,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"config_file": configFile,
			"log_level":   cfg.Logging.Level,
			"log_file":    cfg.Logging.File,
		}).Info("logger-initialized")

		shutdownTracing, err := observability.Init(cfg.Tracing)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}

		if cfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		app, err := buildApp(cfg)
		if err != nil {
			_ = shutdownTracing(context.Background())
			return err
		}
		app.OnShutdown(shutdownTracing)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	},
}

// buildApp creates every configured bot, registers its reply rules and mounts it on a new App
func buildApp(cfg *core.Config) (*core.App, error) {
	app := core.NewApp(cfg.Server.Addr())

	var bots []*core.Bot
	fail := func(err error) (*core.App, error) {
		for _, b := range bots {
			b.Close()
		}
		return nil, err
	}

	for _, bc := range cfg.Bots {
		bot, err := core.NewBot(bc,
			core.WithAPIOptions(
				api.WithBaseURL(cfg.API.BaseURL),
				api.WithTimeout(cfg.API.TimeoutDuration()),
			),
			core.WithBucketConcurrency(cfg.Dispatch.BucketConcurrency),
			core.WithLookupCache(cfg.LookupCache.TTLDuration(), cfg.LookupCache.Capacity),
		)
		if err != nil {
			return fail(err)
		}
		bots = append(bots, bot)

		if err := core.RegisterReplies(bot, cfg.RepliesFor(bc.BotID)); err != nil {
			return fail(fmt.Errorf("bot %s: %w", bc.BotID, err))
		}
		if err := app.Register(bot); err != nil {
			return fail(err)
		}
		logger.WithFields(logrus.Fields{
			"bot_id":   bot.ID(),
			"handlers": bot.Registry().Len(),
		}).Info("bot-registered")
	}
	return app, nil
}

// findConfig returns path, or the first default location that exists when path is empty
func findConfig(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	for _, loc := range defaultConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}
	return "", fmt.Errorf("no configuration file found, specify one with --config")
}

func defaultConfigLocations() []string {
	locs := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		locs = append(locs, filepath.Join(home, ".config", "villabot", "config.yaml"))
	}
	return append(locs, "/etc/villabot/config.yaml")
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "", "Configuration file path")
	serveCmd.Flags().BoolVar(&serveValidate, "validate", false, "Validate configuration and exit")
}
