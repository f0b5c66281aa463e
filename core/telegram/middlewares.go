package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the chain shared by every update, outermost first:
// recover, receipt logger, per-user rate limit (when configured), metrics.
// onLimited answers updates dropped by the rate limiter and may be nil.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if cfg != nil {
		if opts, ok := rateLimitOptions(cfg.RateLimit, onLimited); ok {
			mws = append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(opts)})
		}
	}
	return append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}

// rateLimitOptions expects ExcludeUpdates already lower-cased by config.Normalize.
func rateLimitOptions(cfg coreconfig.RateLimitConfig, onLimited tele.HandlerFunc) (middleware.RateLimitOptions, bool) {
	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	exclude := make(map[string]struct{}, len(cfg.ExcludeUpdates))
	for _, kind := range cfg.ExcludeUpdates {
		exclude[kind] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  interval,
		Exclude:   exclude,
		OnLimited: onLimited,
	}, true
}
