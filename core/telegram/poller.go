package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// DefaultLongPollTimeout applies when the configured timeout is zero.
const DefaultLongPollTimeout = 10 * time.Second

// AllowedUpdates are the update kinds the bot subscribes to; the rest are
// filtered out by Telegram.
var AllowedUpdates = []string{"message", "callback_query"}

// BuildPoller picks the update source for cfg.Telegram.RunMode. The config is
// expected to have passed config.Normalize.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		wh := cfg.Webhook
		return &tele.Webhook{
			Listen:         net.JoinHostPort(wh.Listen, strconv.Itoa(wh.Port)),
			SecretToken:    wh.SecretToken,
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: wh.URL},
		}
	}

	timeout := DefaultLongPollTimeout
	if secs := cfg.Telegram.LongPollTimeoutSeconds; secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout, AllowedUpdates: AllowedUpdates}
}
