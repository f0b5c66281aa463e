package logger

import "strings"

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"expired":      {},
	"rate_limited": {},
	"cancelled":    {},
}

// secretKeys are replaced wholesale; credentials must never reach a sink.
var secretKeys = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"client_secret": {},
	"auth_code":     {},
	"authorization": {},
	"token":         {},
	"secret_token":  {},
}

// maskedKeys keep only their last two characters.
var maskedKeys = map[string]struct{}{
	"phone": {},
}

const redacted = "[redacted]"

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// normalizeStatus lower-cases known statuses; unknown ones are kept verbatim.
func normalizeStatus(status string) string {
	lowered := strings.ToLower(strings.TrimSpace(status))
	if _, ok := allowedStatus[lowered]; ok {
		return lowered
	}
	return status
}

// redactValue hides secrets and masks personal values by key.
func redactValue(key string, val any) (any, bool) {
	leaf := key
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		leaf = key[i+1:]
	}
	leaf = strings.ToLower(leaf)
	if _, ok := secretKeys[leaf]; ok {
		return redacted, true
	}
	if _, ok := maskedKeys[leaf]; ok {
		s, _ := val.(string)
		r := []rune(s)
		if len(r) <= 2 {
			return redacted, true
		}
		return strings.Repeat("*", len(r)-2) + string(r[len(r)-2:]), true
	}
	return val, false
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"duration_ms",
	"messages",
	"answers",
	"kb",
	"state",
	"age",
	"lead_id",
	"http_code",
	"expires_at",
	"backend",
	"path",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"err",
	"err_code",
	"attempts",
}
