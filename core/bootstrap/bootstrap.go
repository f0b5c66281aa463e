// Package bootstrap builds the infrastructure shared by the bot and the CLI:
// logger, credential store, token manager and lead client.
package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/crm/auth"
	"github.com/m3rciful/leadbot/core/crm/leads"
	"github.com/m3rciful/leadbot/core/crm/tokenstore"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/netutil"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	OpenStore  func(coreconfig.CredentialsConfig) (tokenstore.Store, error)
	// HTTPClient is used for CRM calls; nil builds one with the configured timeout.
	HTTPClient *http.Client
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store tokenstore.Store
	Auth  *auth.Manager
	Leads *leads.Client
}

// Run initializes the logger, opens the credential store and builds the CRM clients.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	openStore := opts.OpenStore
	if openStore == nil {
		openStore = OpenStore
	}
	store, err := openStore(cfg.CRM.Credentials)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: credential store: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := time.Duration(cfg.CRM.TimeoutSeconds) * time.Second
		client = netutil.NewClient(netutil.CRMOptions(timeout))
	}

	manager, err := auth.New(auth.Config{
		BaseURL:      cfg.CRM.BaseURL(),
		ClientID:     cfg.CRM.ClientID,
		ClientSecret: cfg.CRM.ClientSecret,
		RedirectURI:  cfg.CRM.RedirectURI,
	}, store, auth.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: token manager: %w", err)
	}

	leadClient, err := leads.New(leads.Config{
		BaseURL: cfg.CRM.BaseURL(),
		Fields: leads.Fields{
			Phone:  cfg.CRM.Fields.Phone,
			Age:    cfg.CRM.Fields.Age,
			Handle: cfg.CRM.Fields.Handle,
		},
		NameFormat: cfg.CRM.LeadNameFormat,
	}, manager, leads.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: lead client: %w", err)
	}

	return &Result{Store: store, Auth: manager, Leads: leadClient}, nil
}

// OpenStore returns the credential backend selected by cfg.
func OpenStore(cfg coreconfig.CredentialsConfig) (tokenstore.Store, error) {
	switch cfg.Backend {
	case coreconfig.CredentialsKeyring:
		return tokenstore.NewKeyringStore(cfg.KeyringService, cfg.KeyringUser)
	case coreconfig.CredentialsFile, "":
		path := cfg.Path
		if path == "" {
			path = coreconfig.DefaultCredentialsPath
		}
		return tokenstore.NewFileStore(path)
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}
