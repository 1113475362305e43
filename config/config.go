// Package config loads and validates the YAML configuration file shared
// by all binaries: mailbox credentials, the account domain pool, and the
// remote service URLs.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reseat-project/reseat/interfaces"
)

// Protocol selects the mailbox retrieval protocol.
type Protocol string

const (
	ProtocolIMAP Protocol = "IMAP"
	ProtocolPOP3 Protocol = "POP3"
)

// Mailbox configures the verification-code mailbox.
type Mailbox struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Folder   string   `yaml:"folder"`
	Protocol Protocol `yaml:"protocol"`

	// NotifySender is the address the remote service sends verification
	// mail from. The POP3 strategy filters on it.
	NotifySender string `yaml:"notify_sender"`
}

// Service holds the remote service endpoints. These are opaque strings;
// the pipeline navigates to them without parsing.
type Service struct {
	LoginURL    string `yaml:"login_url"`
	SignupURL   string `yaml:"signup_url"`
	SettingsURL string `yaml:"settings_url"`
}

// Config is the root of the configuration file.
type Config struct {
	Mailbox Mailbox  `yaml:"mailbox"`
	Service Service  `yaml:"service"`
	Domains []string `yaml:"domains"`

	// IdentityDocPath overrides the platform-default location of the
	// client application's identity document.
	IdentityDocPath string `yaml:"identity_doc_path"`

	// ProductDocPath points at the client application's product document
	// for the advanced reset's update-URL rewrite. Optional.
	ProductDocPath string `yaml:"product_doc_path"`

	// Headless runs the browser without a visible window.
	Headless bool `yaml:"headless"`
}

// Defaults applied by Load for fields the file may omit.
const (
	DefaultFolder       = "INBOX"
	DefaultNotifySender = "no-reply@cursor.sh"
	DefaultLoginURL     = "https://authenticator.cursor.sh"
	DefaultSignupURL    = "https://authenticator.cursor.sh/sign-up"
	DefaultSettingsURL  = "https://www.cursor.com/settings"
)

// Load reads, fills in defaults for, and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mailbox.Folder == "" {
		c.Mailbox.Folder = DefaultFolder
	}
	if c.Mailbox.Protocol == "" {
		c.Mailbox.Protocol = ProtocolPOP3
	}
	c.Mailbox.Protocol = Protocol(strings.ToUpper(string(c.Mailbox.Protocol)))
	if c.Mailbox.NotifySender == "" {
		c.Mailbox.NotifySender = DefaultNotifySender
	}
	if c.Service.LoginURL == "" {
		c.Service.LoginURL = DefaultLoginURL
	}
	if c.Service.SignupURL == "" {
		c.Service.SignupURL = DefaultSignupURL
	}
	if c.Service.SettingsURL == "" {
		c.Service.SettingsURL = DefaultSettingsURL
	}
}

// Validate checks that every required field is present and well formed.
func (c *Config) Validate() error {
	mb := c.Mailbox
	switch {
	case strings.TrimSpace(mb.Server) == "":
		return fmt.Errorf("mailbox.server is required")
	case mb.Port <= 0 || mb.Port > 65535:
		return fmt.Errorf("mailbox.port %d is out of range", mb.Port)
	case strings.TrimSpace(mb.User) == "":
		return fmt.Errorf("mailbox.user is required")
	case strings.TrimSpace(mb.Password) == "":
		return fmt.Errorf("mailbox.password is required")
	}

	if mb.Protocol != ProtocolIMAP && mb.Protocol != ProtocolPOP3 {
		return fmt.Errorf("mailbox.protocol must be IMAP or POP3, got %q", mb.Protocol)
	}

	if len(c.Domains) == 0 {
		return fmt.Errorf("at least one account domain is required")
	}
	for _, d := range c.Domains {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("account domains must not be blank")
		}
	}
	return nil
}

// MailboxConfig converts the mailbox section into the connection
// parameters the poller's dialers take.
func (c *Config) MailboxConfig() interfaces.MailboxConfig {
	return interfaces.MailboxConfig{
		Server:   c.Mailbox.Server,
		Port:     c.Mailbox.Port,
		User:     c.Mailbox.User,
		Password: c.Mailbox.Password,
		Folder:   c.Mailbox.Folder,
	}
}
