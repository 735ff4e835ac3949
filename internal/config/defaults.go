package config

import "fmt"

// Default values shared by the appliers and Init.
const (
	DefaultSourceDir      = "."
	DefaultOutputDir      = "dist"
	DefaultServerPort     = 3000
	DefaultRelayPort      = 9000
	DefaultRelayPath      = "/contact"
	DefaultRecipientEmail = "your-email@example.com"
	DefaultSenderEmail    = "noreply@clickit.com"
	DefaultSMTPPort       = 587
	DefaultNATSURL        = "nats://127.0.0.1:4222"
	DefaultNATSSubject    = "clickit.mail"
	DefaultMetricsPath    = "/metrics"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier runs a fixed list of domain appliers in order.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier chain used by Load.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&SiteDefaultApplier{},
			&BrandDefaultApplier{},
			&ServerDefaultApplier{},
			&RelayDefaultApplier{},
			&MonitoringDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// GetApplierByDomain returns a specific domain applier.
func (c *CompositeDefaultApplier) GetApplierByDomain(domain string) DefaultApplier {
	for _, applier := range c.appliers {
		if applier.Domain() == domain {
			return applier
		}
	}
	return nil
}

// SiteDefaultApplier handles source and output directory defaults.
type SiteDefaultApplier struct{}

func (s *SiteDefaultApplier) Domain() string { return "site" }

func (s *SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.SourceDir == "" {
		cfg.Site.SourceDir = DefaultSourceDir
	}
	if cfg.Site.OutputDir == "" {
		cfg.Site.OutputDir = DefaultOutputDir
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	return nil
}

// BrandDefaultApplier fills unset brand fields from DefaultBrand.
type BrandDefaultApplier struct{}

func (b *BrandDefaultApplier) Domain() string { return "brand" }

func (b *BrandDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Brand = cfg.Brand.withDefaults(DefaultBrand())
	return nil
}

// ServerDefaultApplier handles development server defaults.
type ServerDefaultApplier struct{}

func (s *ServerDefaultApplier) Domain() string { return "server" }

func (s *ServerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	return nil
}

// RelayDefaultApplier handles contact relay defaults.
type RelayDefaultApplier struct{}

func (r *RelayDefaultApplier) Domain() string { return "relay" }

func (r *RelayDefaultApplier) ApplyDefaults(cfg *Config) error {
	relay := &cfg.Relay
	if relay.Port == 0 {
		relay.Port = DefaultRelayPort
	}
	if relay.Path == "" {
		relay.Path = DefaultRelayPath
	}
	if relay.AllowedOrigin == "" {
		relay.AllowedOrigin = "*"
	}
	if relay.RecipientEmail == "" {
		relay.RecipientEmail = DefaultRecipientEmail
	}
	if relay.SenderEmail == "" {
		relay.SenderEmail = DefaultSenderEmail
	}
	if relay.Provider == "" {
		relay.Provider = MailProviderSMTP
	} else {
		relay.Provider = NormalizeMailProvider(string(relay.Provider))
	}
	if relay.SMTP.Port == 0 {
		relay.SMTP.Port = DefaultSMTPPort
	}
	if relay.NATS.URL == "" {
		relay.NATS.URL = DefaultNATSURL
	}
	if relay.NATS.Subject == "" {
		relay.NATS.Subject = DefaultNATSSubject
	}
	return nil
}

// MonitoringDefaultApplier handles metrics and logging defaults.
type MonitoringDefaultApplier struct{}

func (m *MonitoringDefaultApplier) Domain() string { return "monitoring" }

func (m *MonitoringDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	return nil
}
