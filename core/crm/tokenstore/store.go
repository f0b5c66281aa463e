package tokenstore

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// Credentials is the persisted OAuth2 credential record.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token must no longer be used at now.
// The expiry instant itself counts as expired.
func (c Credentials) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Store loads and saves the credential record.
type Store interface {
	// Load re-reads the record on every call. ok is false when no usable record exists.
	Load(ctx context.Context) (creds Credentials, ok bool, err error)
	// Save replaces the whole record.
	Save(ctx context.Context, creds Credentials) error
}

// record mirrors the on-disk document. Pointer fields detect missing keys.
type record struct {
	AccessToken  *string  `json:"access_token"`
	RefreshToken *string  `json:"refresh_token"`
	ExpiresIn    *float64 `json:"expires_in"`
}

// Marshal encodes creds into the persisted document.
func Marshal(creds Credentials) ([]byte, error) {
	access, refresh := creds.AccessToken, creds.RefreshToken
	expires := unixSeconds(creds.ExpiresAt)
	return json.Marshal(record{
		AccessToken:  &access,
		RefreshToken: &refresh,
		ExpiresIn:    &expires,
	})
}

// Unmarshal decodes a persisted document. ok is false when the document does not
// parse, misses a key or carries an empty token.
func Unmarshal(data []byte) (Credentials, bool) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Credentials{}, false
	}
	if rec.AccessToken == nil || rec.RefreshToken == nil || rec.ExpiresIn == nil {
		return Credentials{}, false
	}
	if *rec.AccessToken == "" || *rec.RefreshToken == "" {
		return Credentials{}, false
	}
	return Credentials{
		AccessToken:  *rec.AccessToken,
		RefreshToken: *rec.RefreshToken,
		ExpiresAt:    fromUnixSeconds(*rec.ExpiresIn),
	}, true
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMicro()) / 1e6
}

func fromUnixSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}
