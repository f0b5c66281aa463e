package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/core/crm/tokenstore"
)

func writeConfig(t *testing.T, dir string) (configPath, tokensPath string) {
	t.Helper()
	tokensPath = filepath.Join(dir, "tokens.json")
	configPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`telegram:
  token: "42:TEST"
crm:
  domain: example.amocrm.ru
  client_id: id
  client_secret: secret
  credentials:
    backend: file
    path: %q
`, tokensPath)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return configPath, tokensPath
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot()
	root.Writer = &out
	err := root.Run(t.Context(), append([]string{"leadbot"}, args...))
	return out.String(), err
}

func TestTokenCommandWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg, _ := writeConfig(t, dir)

	out, err := runRoot(t, "--config", cfg, "token")
	require.NoError(t, err)
	assert.Contains(t, out, "not authorized")
}

func TestTokenCommandReportsExpiry(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg, tokens := writeConfig(t, dir)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	data, err := tokenstore.Marshal(tokenstore.Credentials{AccessToken: "secret-access", RefreshToken: "secret-refresh", ExpiresAt: expires})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tokens, data, 0o600))

	out, err := runRoot(t, "--config", cfg, "token")
	require.NoError(t, err)
	assert.Contains(t, out, "expires at "+expires.Format(time.RFC3339))
	assert.NotContains(t, out, "secret-access")
	assert.NotContains(t, out, "secret-refresh")
}

func TestAuthorizeRequiresCode(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg, _ := writeConfig(t, dir)

	_, err := runRoot(t, "--config", cfg, "authorize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code")
}

func TestConfigFlagFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg, _ := writeConfig(t, dir)
	t.Setenv(envConfigPath, cfg)

	out, err := runRoot(t, "token")
	require.NoError(t, err)
	assert.Contains(t, out, "not authorized")
}
