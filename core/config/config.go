package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// SecretToken is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token; empty disables the check.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// CredentialsFile keeps the credential record in a JSON file.
	CredentialsFile = "file"
	// CredentialsKeyring keeps the credential record in the OS keyring.
	CredentialsKeyring = "keyring"
)

const (
	DefaultRedirectURI       = "https://ya.ru"
	DefaultCRMTimeoutSeconds = 10
	DefaultCredentialsPath   = "tokens.json"
	DefaultKeyringService    = "leadbot"
	DefaultKeyringUser       = "amocrm"

	DefaultPhoneFieldID  int64 = 931725
	DefaultAgeFieldID    int64 = 931775
	DefaultHandleFieldID int64 = 932703
)

// CredentialsConfig selects where the CRM credential record lives.
type CredentialsConfig struct {
	Backend        string `yaml:"backend" envconfig:"CRM_CREDENTIALS_BACKEND" validate:"oneof=file keyring"`
	Path           string `yaml:"path" envconfig:"CRM_CREDENTIALS_PATH" validate:"required_if=Backend file"`
	KeyringService string `yaml:"keyring_service" validate:"required_if=Backend keyring"`
	KeyringUser    string `yaml:"keyring_user" validate:"required_if=Backend keyring"`
}

// FieldsConfig maps lead attributes to custom field ids registered in the CRM account.
type FieldsConfig struct {
	Phone  int64 `yaml:"phone" envconfig:"CRM_FIELD_PHONE" validate:"gt=0"`
	Age    int64 `yaml:"age" envconfig:"CRM_FIELD_AGE" validate:"gt=0"`
	Handle int64 `yaml:"handle" envconfig:"CRM_FIELD_HANDLE" validate:"gt=0"`
}

// CRMConfig holds amoCRM integration settings.
type CRMConfig struct {
	Domain         string            `yaml:"domain" envconfig:"AMOCRM_DOMAIN" validate:"required,hostname_port|fqdn"`
	ClientID       string            `yaml:"client_id" envconfig:"CLIENT_ID" validate:"required"`
	ClientSecret   string            `yaml:"client_secret" envconfig:"CLIENT_SECRET" validate:"required"`
	RedirectURI    string            `yaml:"redirect_uri" envconfig:"REDIRECT_URI" validate:"required,url"`
	TimeoutSeconds int               `yaml:"timeout_seconds" envconfig:"CRM_TIMEOUT_SECONDS" validate:"gte=0"`
	LeadNameFormat string            `yaml:"lead_name_format" envconfig:"CRM_LEAD_NAME_FORMAT"`
	Credentials    CredentialsConfig `yaml:"credentials"`
	Fields         FieldsConfig      `yaml:"fields"`
}

// BaseURL returns the account API root derived from Domain.
func (c CRMConfig) BaseURL() string {
	return "https://" + c.Domain
}

// BotConfig holds conversation content that differs between deployments.
type BotConfig struct {
	WelcomePhotoID string `yaml:"welcome_photo_id" envconfig:"BOT_WELCOME_PHOTO_ID"`
	ChannelURL     string `yaml:"channel_url" envconfig:"BOT_CHANNEL_URL" validate:"omitempty,url"`

	// SessionTTLMinutes resets unfinished conversations after this much inactivity; 0 never does.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" envconfig:"BOT_SESSION_TTL_MINUTES" validate:"gte=0"`
}

// Config aggregates the application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CRM       CRMConfig       `yaml:"crm"`
	Bot       BotConfig       `yaml:"bot"`
}

// Load reads configuration from a YAML file, an optional .env file next to the
// working directory, and environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv exports variables from a dotenv file without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	return normalizeCRM(cfg)
}

// crmHost reduces a domain that was pasted as a URL (any scheme, trailing
// slash or path) to its host.
func crmHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.Trim(raw, "/")
	}
	return u.Host
}

func normalizeCRM(cfg *Config) error {
	crm := &cfg.CRM
	crm.Domain = crmHost(crm.Domain)
	if strings.TrimSpace(crm.RedirectURI) == "" {
		crm.RedirectURI = DefaultRedirectURI
	}
	if crm.TimeoutSeconds == 0 {
		crm.TimeoutSeconds = DefaultCRMTimeoutSeconds
	}

	creds := &crm.Credentials
	creds.Backend = strings.ToLower(strings.TrimSpace(creds.Backend))
	if creds.Backend == "" {
		creds.Backend = CredentialsFile
	}
	if creds.Backend == CredentialsFile && strings.TrimSpace(creds.Path) == "" {
		creds.Path = DefaultCredentialsPath
	}
	if creds.Backend == CredentialsKeyring {
		if creds.KeyringService == "" {
			creds.KeyringService = DefaultKeyringService
		}
		if creds.KeyringUser == "" {
			creds.KeyringUser = DefaultKeyringUser
		}
	}

	if crm.Fields.Phone == 0 {
		crm.Fields.Phone = DefaultPhoneFieldID
	}
	if crm.Fields.Age == 0 {
		crm.Fields.Age = DefaultAgeFieldID
	}
	if crm.Fields.Handle == 0 {
		crm.Fields.Handle = DefaultHandleFieldID
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(crm); err != nil {
		return fmt.Errorf("invalid crm config: %w", err)
	}
	if err := validate.Struct(&cfg.Bot); err != nil {
		return fmt.Errorf("invalid bot config: %w", err)
	}
	return nil
}
