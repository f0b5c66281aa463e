// Package cmd runs a bot process: config, bootstrap, Telegram runtime, graceful shutdown.
package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
)

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigPath wins over the ConfigEnvVar lookup when set.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(cfg *coreconfig.Config) (TelegramApp, error)

	// Context is the parent of the signal-aware run context; nil means Background.
	Context context.Context

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the Telegram app, and runs the bot until
// SIGINT, SIGTERM or cancellation of opts.Context.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return errors.New("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return errors.New("cmd: Bootstrap is required")
	}

	cfgPath, err := configPath(opts)
	if err != nil {
		return err
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil {
		return errors.New("cmd: loaded config is empty")
	}

	startedAt := time.Now()
	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	withLifecycleLogs(&runOpts, startedAt)

	ctx, cancel := signal.NotifyContext(cmp.Or(opts.Context, context.Background()), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// configPath prefers opts.ConfigPath, then the environment variable, then the default.
func configPath(opts Options) (string, error) {
	env := cmp.Or(opts.ConfigEnvVar, "CONFIG_PATH")
	if path := cmp.Or(opts.ConfigPath, os.Getenv(env), opts.DefaultConfigPath); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

// withLifecycleLogs wraps the app hooks with the bot.started and shutdown lines.
func withLifecycleLogs(runOpts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := runOpts.OnStart, runOpts.OnStop

	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.Duration("startup_duration", time.Since(startedAt)),
		}
		if rt.Bot != nil && rt.Bot.Me != nil {
			attrs = append(attrs, slog.String("username", rt.Bot.Me.Username))
		}
		logger.Info(ctx, logger.ComponentApp, "bot.started", attrs...)
		return nil
	}

	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, logger.ComponentApp, "shutdown", slog.String("status", "ok"))
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
