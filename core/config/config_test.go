package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `telegram:
  token: "42:TEST"
crm:
  domain: https://example.amocrm.ru/
  client_id: id
  client_secret: secret
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "example.amocrm.ru", cfg.CRM.Domain)
	assert.Equal(t, "https://example.amocrm.ru", cfg.CRM.BaseURL())
	assert.Equal(t, DefaultRedirectURI, cfg.CRM.RedirectURI)
	assert.Equal(t, DefaultCRMTimeoutSeconds, cfg.CRM.TimeoutSeconds)
	assert.Equal(t, CredentialsFile, cfg.CRM.Credentials.Backend)
	assert.Equal(t, DefaultCredentialsPath, cfg.CRM.Credentials.Path)
	assert.Equal(t, FieldsConfig{Phone: DefaultPhoneFieldID, Age: DefaultAgeFieldID, Handle: DefaultHandleFieldID}, cfg.CRM.Fields)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", minimalYAML)

	t.Setenv("AMOCRM_DOMAIN", "other.amocrm.ru")
	t.Setenv("CLIENT_SECRET", "from-env")
	t.Setenv("REDIRECT_URI", "https://example.com/cb")
	t.Setenv("CRM_FIELD_AGE", "1001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.amocrm.ru", cfg.CRM.Domain)
	assert.Equal(t, "from-env", cfg.CRM.ClientSecret)
	assert.Equal(t, "https://example.com/cb", cfg.CRM.RedirectURI)
	assert.Equal(t, int64(1001), cfg.CRM.Fields.Age)
	assert.Equal(t, "id", cfg.CRM.ClientID)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", `telegram:
  token: "42:TEST"
crm:
  domain: example.amocrm.ru
`)
	writeFile(t, dir, ".env", "CLIENT_ID=dotenv-id\nCLIENT_SECRET=dotenv-secret\n")
	t.Setenv("CLIENT_ID", "process-id")
	// registers the restore of CLIENT_SECRET, which godotenv exports below
	t.Setenv("CLIENT_SECRET", "")
	require.NoError(t, os.Unsetenv("CLIENT_SECRET"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "process-id", cfg.CRM.ClientID)
	assert.Equal(t, "dotenv-secret", cfg.CRM.ClientSecret)
}

func TestNormalizeRejectsInvalidCRM(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "42:TEST"},
			CRM:      CRMConfig{Domain: "example.amocrm.ru", ClientID: "id", ClientSecret: "secret"},
		}
	}
	require.NoError(t, Normalize(base()))

	cases := map[string]func(*Config){
		"missing domain":  func(c *Config) { c.CRM.Domain = "" },
		"missing secret":  func(c *Config) { c.CRM.ClientSecret = "" },
		"bad redirect":    func(c *Config) { c.CRM.RedirectURI = "not a url" },
		"bad backend":     func(c *Config) { c.CRM.Credentials.Backend = "vault" },
		"negative field":  func(c *Config) { c.CRM.Fields.Phone = -1 },
		"bad channel url": func(c *Config) { c.Bot.ChannelURL = "t.me" },
		"negative ttl":    func(c *Config) { c.Bot.SessionTTLMinutes = -1 },
		"missing token":   func(c *Config) { c.Telegram.Token = "" },
		"bad run mode":    func(c *Config) { c.Telegram.RunMode = "push" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizeKeyringDefaults(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "42:TEST"},
		CRM: CRMConfig{
			Domain: "example.amocrm.ru", ClientID: "id", ClientSecret: "secret",
			Credentials: CredentialsConfig{Backend: "KEYRING"},
		},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, CredentialsKeyring, cfg.CRM.Credentials.Backend)
	assert.Equal(t, DefaultKeyringService, cfg.CRM.Credentials.KeyringService)
	assert.Equal(t, DefaultKeyringUser, cfg.CRM.Credentials.KeyringUser)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCRMHost(t *testing.T) {
	tests := map[string]string{
		"example.amocrm.ru":               "example.amocrm.ru",
		" https://example.amocrm.ru/ ":    "example.amocrm.ru",
		"http://example.amocrm.ru":        "example.amocrm.ru",
		"https://example.amocrm.ru/leads": "example.amocrm.ru",
		"example.amocrm.ru/":              "example.amocrm.ru",
		"":                                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, crmHost(in), in)
	}

	cfg := &Config{
		Telegram: TelegramConfig{Token: "42:TEST"},
		CRM:      CRMConfig{Domain: "http://example.amocrm.ru", ClientID: "id", ClientSecret: "secret"},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "example.amocrm.ru", cfg.CRM.Domain)
}
