package tokenstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalLegacyDocument(t *testing.T) {
	// document as written by earlier deployments: fractional absolute expiry under "expires_in"
	data := []byte(`{"access_token":"A","refresh_token":"R","expires_in":1700000000.25}`)

	creds, ok := Unmarshal(data)
	require.True(t, ok)
	assert.Equal(t, "A", creds.AccessToken)
	assert.Equal(t, "R", creds.RefreshToken)
	assert.Equal(t, time.Unix(1700000000, int64(250*time.Millisecond)), creds.ExpiresAt)
}

func TestUnmarshalRejectsIncompleteRecords(t *testing.T) {
	tests := map[string]string{
		"not json":        `{"access_token":`,
		"missing expiry":  `{"access_token":"A","refresh_token":"R"}`,
		"missing refresh": `{"access_token":"A","expires_in":1}`,
		"missing access":  `{"refresh_token":"R","expires_in":1}`,
		"empty access":    `{"access_token":"","refresh_token":"R","expires_in":1}`,
		"wrong type":      `{"access_token":"A","refresh_token":"R","expires_in":"soon"}`,
		"array":           `[]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := Unmarshal([]byte(doc))
			assert.False(t, ok)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC),
	}
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expires_in":`)

	out, ok := Unmarshal(data)
	require.True(t, ok)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt), "want %s, got %s", in.ExpiresAt, out.ExpiresAt)
}

func TestCredentialsExpired(t *testing.T) {
	at := time.Unix(1000, 0)
	c := Credentials{ExpiresAt: at}
	assert.False(t, c.Expired(at.Add(-time.Nanosecond)))
	assert.True(t, c.Expired(at))
	assert.True(t, c.Expired(at.Add(time.Second)))
}
