package logger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders every record as one flat line: the keys listed in
// keyOrder first, the remaining keys sorted. Groups become dotted key prefixes.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	e := h.entry(ctx, r)
	keys := e.keys(h.cfg.keyOrder)

	line := make([]byte, 0, 256)
	if h.cfg.format == formatJSON {
		var err error
		if line, err = appendJSON(line, e, keys); err != nil {
			return err
		}
	} else {
		line = appendKV(line, e, keys)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	// attrs added after WithGroup belong to that group
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, prefixed(h.prefix, a))
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// entry builds the fields of one line. Record attrs override handler attrs;
// context metadata only fills keys nobody set.
func (h *structuredHandler) entry(ctx context.Context, r slog.Record) entry {
	isJSON := h.cfg.format == formatJSON
	e := make(entry, 16+r.NumAttrs())

	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = normalizeLevel(r.Level.String())
	if isJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		e.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.prefix, a)
		return true
	})
	e.fromContext(ctx)

	if rid := e.str("rid"); rid != "" {
		if short := CompactRID(rid); short != "" && short != rid {
			e["rid"] = short
			if isJSON {
				e.setDefault("rid_full", rid)
			}
		}
	}
	e["event"] = cmp.Or(e.str("event"), r.Message, "unknown")
	e["component"] = cmp.Or(e.str("component"), ComponentApp)
	if status := e.str("status"); status != "" {
		e["status"] = normalizeStatus(status)
	}
	e.prune()
	return e
}

// entry is one log line before encoding.
type entry map[string]any

func (e entry) str(key string) string {
	s, _ := e[key].(string)
	return s
}

func (e entry) setDefault(key string, val any) {
	if _, ok := e[key]; !ok {
		e[key] = val
	}
}

func (e entry) prune() {
	for k, v := range e {
		if v == nil || v == "" {
			delete(e, k)
		}
	}
}

// add flattens a into e under prefix, redacting secrets on the way.
func (e entry) add(prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := joinKey(prefix, a.Key)
	val := a.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		for _, child := range val.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	key, v, ok := plainValue(key, val)
	if !ok {
		return
	}
	if hidden, changed := redactValue(key, v); changed {
		v = hidden
	}
	e[key] = v
}

func (e entry) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		e.setDefault("rid", rid)
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		e.setDefault("update_id", id)
	}
	if id := UserIDFrom(ctx); id != 0 {
		e.setDefault("user_id", id)
	}
	if id := ChatIDFrom(ctx); id != 0 {
		e.setDefault("chat_id", id)
	}
	if name := HandlerFrom(ctx); name != "" {
		e.setDefault("handler", name)
	}
}

func prefixed(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	if a.Value.Kind() == slog.KindGroup && a.Key == "" {
		return slog.Attr{Key: prefix, Value: a.Value}
	}
	return slog.Attr{Key: joinKey(prefix, a.Key), Value: a.Value}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// plainValue converts v into a value the encoders handle. Durations are logged
// as whole milliseconds under a *_ms key.
func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}

	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
