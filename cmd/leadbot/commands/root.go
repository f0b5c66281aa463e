// Package commands defines the leadbot command line.
package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/m3rciful/leadbot/core/buildinfo"
)

const (
	envConfigPath     = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return NewRoot().Run(ctx, args)
}

// NewRoot builds the root command. Without a subcommand it runs the bot.
func NewRoot() *cli.Command {
	return &cli.Command{
		Name:    "leadbot",
		Usage:   "Telegram lead capture bot for amoCRM",
		Version: buildinfo.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars(envConfigPath),
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			authorizeCommand(),
			tokenCommand(),
		},
		Action: runAction,
	}
}
