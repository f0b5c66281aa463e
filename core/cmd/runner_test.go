package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
)

type stubApp struct {
	opts coretelegram.RunOptions
	err  error
}

func (s stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return s.opts, s.err }

func TestRunPrefersExplicitConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "from-env.yaml")

	var (
		loaded         string
		started        bool
		stopped        bool
		loggerShutdown bool
	)
	err := Run(Options{
		ConfigPath:        "explicit.yaml",
		DefaultConfigPath: "default.yaml",
		LoadConfig: func(path string) (*coreconfig.Config, error) {
			loaded = path
			return &coreconfig.Config{}, nil
		},
		Bootstrap: func(*coreconfig.Config) (TelegramApp, error) {
			return stubApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { started = true; return nil },
				OnStop:  func(context.Context, coretelegram.Runtime) error { stopped = true; return nil },
			}}, nil
		},
		ShutdownLogger: func() error { loggerShutdown = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit.yaml", loaded)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, loggerShutdown)
}

func TestConfigPathPrecedence(t *testing.T) {
	t.Setenv("LEADBOT_CONFIG", "env.yaml")
	path, err := configPath(Options{ConfigEnvVar: "LEADBOT_CONFIG", DefaultConfigPath: "default.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "env.yaml", path)

	path, err = configPath(Options{ConfigPath: "flag.yaml", ConfigEnvVar: "LEADBOT_CONFIG"})
	require.NoError(t, err)
	assert.Equal(t, "flag.yaml", path)

	t.Setenv("LEADBOT_CONFIG", "")
	path, err = configPath(Options{ConfigEnvVar: "LEADBOT_CONFIG", DefaultConfigPath: "default.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "default.yaml", path)

	t.Setenv("CONFIG_PATH", "")
	_, err = configPath(Options{})
	assert.ErrorContains(t, err, "CONFIG_PATH")
}

func TestRunPropagatesBootstrapFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		ConfigPath: "config.yaml",
		LoadConfig: func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap:  func(*coreconfig.Config) (TelegramApp, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
}
