// Package logger writes structured, one-line logs for the bot and the CRM client.
// Every line carries a component and an event; secrets and phone numbers are
// redacted by the handler before anything reaches a sink.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/leadbot/core/buildinfo"
	coreconfig "github.com/m3rciful/leadbot/core/config"
)

// Component names carried in the "component" attribute.
const (
	ComponentApp    = "app"
	ComponentBot    = "bot"
	ComponentTG     = "tg"
	ComponentWire   = "tg.wire"
	ComponentSender = "tg.sender"
	ComponentAuth   = "crm.auth"
	ComponentLeads  = "crm.leads"
	ComponentStore  = "crm.store"
)

const defaultDebugSample = 50

var (
	initOnce sync.Once

	closeMu sync.Mutex
	closed  bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, defaultDebugSample)
	traceOverride bool

	// base is nil until InitLogger runs; the Event helpers are no-ops before that.
	base *slog.Logger

	// TG logs Telegram transport events. Discards until InitLogger runs.
	TG = slog.New(slog.DiscardHandler)
	// TWire logs Telegram wiring steps (commands, callbacks, routes).
	TWire = slog.New(slog.DiscardHandler)
)

// settings is the logging configuration resolved from the config file.
type settings struct {
	format    logFormat
	keyOrder  []string
	level     slog.Level
	sampleNum int
	sampleDen int
	profile   string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		sampleNum: 1,
		sampleDen: defaultDebugSample,
		profile:   "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		// "0" or garbage turns sampling off; only positive ratios override the default
		switch num, den := parseRatioSpec(spec); {
		case num == 0 && den == 0:
			s.sampleNum, s.sampleDen = 0, 0
		case num > 0 && den > 0:
			s.sampleNum, s.sampleDen = num, den
		}
	}
	return s
}

// splitKeys parses logging.keys_order; empty and "default" keep the built-in order.
func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger configures the global structured logger. Calls after the first are ignored.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleNum, s.sampleDen)
		traceOverride = envEnabled("TRACE") || envEnabled("LOG_TRACE")

		outputs, closers := openOutputs(cfg)
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)

		base = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(base)

		TG = component(ComponentTG)
		TWire = component(ComponentWire)

		logStartup(cfg, s)
	})
	return nil
}

func logStartup(cfg *coreconfig.Config, s settings) {
	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("crm_domain", cfg.CRM.Domain),
			slog.String("credentials", cfg.CRM.Credentials.Backend),
		)
	}
	Info(context.Background(), ComponentApp, "startup", attrs...)
}

// Shutdown flushes buffered output and closes the log file. Only the first call does work.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	for _, c := range logClosers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// openOutputs always writes to stdout, plus logging.dir/logging.bot_file when
// both are set. A file that cannot be opened is reported on the standard
// logger and skipped.
func openOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	if cfg == nil {
		return writers, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	file := strings.TrimSpace(cfg.Logging.BotFile)
	if dir == "" || file == "" {
		return writers, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return writers, nil
	}
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

func envEnabled(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func component(name string) *slog.Logger {
	if base == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return base
	}
	return base.With("component", name)
}

// LogEvent writes a record whose first attribute is the event name. A nil
// logger falls back to the context logger; without one the call is dropped.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs under the named component.
func Event(ctx context.Context, name string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, component(name), level, event, attrs...)
}

func Debug(ctx context.Context, name, event string, attrs ...slog.Attr) {
	Event(ctx, name, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, name, event string, attrs ...slog.Attr) {
	Event(ctx, name, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, name, event string, attrs ...slog.Attr) {
	Event(ctx, name, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, name, event string, attrs ...slog.Attr) {
	Event(ctx, name, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// TRACE=1 logs all of them.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
