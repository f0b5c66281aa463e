package logger

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// keys lists e's keys: those named in order first, in that order, then the rest sorted.
func (e entry) keys(order []string) []string {
	keys := make([]string, 0, len(e))
	fixed := make(map[string]struct{}, len(order))
	for _, k := range order {
		if _, dup := fixed[k]; dup {
			continue
		}
		fixed[k] = struct{}{}
		if _, ok := e[k]; ok {
			keys = append(keys, k)
		}
	}
	rest := make([]string, 0, len(e)-len(keys))
	for k := range e {
		if _, ok := fixed[k]; !ok {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func appendJSON(dst []byte, e entry, keys []string) ([]byte, error) {
	dst = append(dst, '{')
	for i, k := range keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("logger: encode key %q: %w", k, err)
		}
		val, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		dst = append(dst, name...)
		dst = append(dst, ':')
		dst = append(dst, val...)
	}
	return append(dst, '}'), nil
}

func appendKV(dst []byte, e entry, keys []string) []byte {
	for i, k := range keys {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = append(dst, k...)
		dst = append(dst, '=')
		dst = appendKVValue(dst, e[k])
	}
	return dst
}

func appendKVValue(dst []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return appendMaybeQuoted(dst, x)
	case bool:
		return strconv.AppendBool(dst, x)
	case int:
		return strconv.AppendInt(dst, int64(x), 10)
	case int64:
		return strconv.AppendInt(dst, x, 10)
	case uint64:
		return strconv.AppendUint(dst, x, 10)
	case float64:
		return strconv.AppendFloat(dst, x, 'g', -1, 64)
	default:
		return appendMaybeQuoted(dst, fmt.Sprint(x))
	}
}

func appendMaybeQuoted(dst []byte, s string) []byte {
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.AppendQuote(dst, s)
	}
	return append(dst, s...)
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
