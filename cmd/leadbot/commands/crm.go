package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/m3rciful/leadbot/core/bootstrap"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
)

func authorizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "authorize",
		Usage: "exchange a one-time amoCRM authorization code for the first token pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "code",
				Usage:    "authorization code from the amoCRM integration settings",
				Required: true,
			},
		},
		Action: authorizeAction,
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:   "token",
		Usage:  "show whether CRM credentials are stored and when the access token expires",
		Action: tokenAction,
	}
}

func authorizeAction(ctx context.Context, cmd *cli.Command) error {
	res, err := loadCRM(cmd, logger.InitLogger)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Shutdown() }()

	creds, err := res.Auth.Authorize(ctx, cmd.String("code"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "authorized, access token expires at %s\n", creds.ExpiresAt.Format(time.RFC3339))
	return err
}

func tokenAction(ctx context.Context, cmd *cli.Command) error {
	res, err := loadCRM(cmd, func(*coreconfig.Config) error { return nil })
	if err != nil {
		return err
	}
	st, err := res.Auth.Status(ctx)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	switch {
	case !st.Authorized:
		_, err = fmt.Fprintln(w, "not authorized, run: leadbot authorize --code <code>")
	case st.Expired:
		_, err = fmt.Fprintf(w, "authorized, access token expired at %s and is refreshed on next use\n", st.ExpiresAt.Format(time.RFC3339))
	default:
		_, err = fmt.Fprintf(w, "authorized, access token expires at %s\n", st.ExpiresAt.Format(time.RFC3339))
	}
	return err
}

func loadCRM(cmd *cli.Command, loggerInit func(*coreconfig.Config) error) (*bootstrap.Result, error) {
	cfg, err := coreconfig.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	return bootstrap.Run(bootstrap.Options{Config: cfg, LoggerInit: loggerInit})
}
