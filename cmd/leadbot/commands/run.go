package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/m3rciful/leadbot/bots/leadbot"
	"github.com/m3rciful/leadbot/core/bootstrap"
	corecmd "github.com/m3rciful/leadbot/core/cmd"
	coreconfig "github.com/m3rciful/leadbot/core/config"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "run the Telegram bot until interrupted",
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	return corecmd.Run(corecmd.Options{
		Context:           ctx,
		ConfigPath:        cmd.String("config"),
		ConfigEnvVar:      envConfigPath,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig:        coreconfig.Load,
		Bootstrap:         bootstrapBot,
	})
}

func bootstrapBot(cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	app, err := leadbot.New(cfg, leadbot.Deps{Leads: res.Leads, Status: res.Auth})
	if err != nil {
		return nil, err
	}
	return app, nil
}
