package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when no -c flag is given.
const DefaultPath = "clickit.yaml"

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1.0"

// Config is the complete clickit configuration. It is built once at startup
// and passed explicitly to every component that needs it.
type Config struct {
	Version    string           `yaml:"version"`
	Site       SiteConfig       `yaml:"site"`
	Brand      Brand            `yaml:"brand"`
	Build      BuildConfig      `yaml:"build"`
	Server     ServerConfig     `yaml:"server"`
	Relay      RelayConfig      `yaml:"relay"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// SiteConfig locates the source tree and the generated output tree.
type SiteConfig struct {
	SourceDir string `yaml:"source_dir"`
	OutputDir string `yaml:"output_dir"`
}

// BuildConfig controls optional build pipeline behavior.
type BuildConfig struct {
	// Verify enables the post-rewrite page verification stage. Nil means default (enabled).
	Verify     *bool  `yaml:"verify,omitempty"`
	ReportDir  string `yaml:"report_dir,omitempty"`  // Directory for build-report.json/.txt; empty disables persistence
	EventStore string `yaml:"event_store,omitempty"` // SQLite path for build history; empty disables
}

// VerifyEnabled reports whether the verification stage should run.
func (b BuildConfig) VerifyEnabled() bool {
	return b.Verify == nil || *b.Verify
}

// ServerConfig configures the development static server.
type ServerConfig struct {
	Port           int  `yaml:"port"`
	Watch          bool `yaml:"watch"`
	LiveReloadPort int  `yaml:"live_reload_port,omitempty"` // 0 mounts live reload on the main port
}

// RelayConfig configures the contact-form relay.
type RelayConfig struct {
	Port           int          `yaml:"port"`
	Path           string       `yaml:"path"`
	AllowedOrigin  string       `yaml:"allowed_origin"`
	RecipientEmail string       `yaml:"recipient_email"`
	SenderEmail    string       `yaml:"sender_email"`
	Provider       MailProvider `yaml:"provider"`
	SMTP           SMTPConfig   `yaml:"smtp"`
	NATS           NATSConfig   `yaml:"nats"`
	ArchivePath    string       `yaml:"archive_path,omitempty"` // SQLite path for submission archive; empty disables
}

// SMTPConfig holds SMTP submission settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// NATSConfig holds settings for publishing messages to an external mailer over NATS.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// MonitoringConfig represents monitoring and observability configuration.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration.
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringLogging represents logging configuration.
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	// The composite applier never fails on a zero config.
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}

// Load reads the configuration file at configPath. A missing file is not an
// error: the defaults apply. Environment files are loaded first so ${VAR}
// references in the YAML resolve against them.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
		cfg.Version = CurrentVersion
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := NewDefaultApplier().ApplyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	verify := true
	exampleConfig := Config{
		Version: CurrentVersion,
		Site:    SiteConfig{SourceDir: ".", OutputDir: "dist"},
		Brand:   DefaultBrand(),
		Build: BuildConfig{
			Verify:     &verify,
			ReportDir:  "dist/.clickit",
			EventStore: "clickit-events.db",
		},
		Server: ServerConfig{Port: 3000, Watch: true},
		Relay: RelayConfig{
			Port:           9000,
			Path:           "/contact",
			AllowedOrigin:  "*",
			RecipientEmail: "${RECIPIENT_EMAIL}",
			SenderEmail:    "${SENDER_EMAIL}",
			Provider:       MailProviderSMTP,
			SMTP: SMTPConfig{
				Host:     "smtp.example.com",
				Port:     587,
				Username: "${SMTP_USERNAME}",
				Password: "${SMTP_PASSWORD}",
			},
			NATS:        NATSConfig{URL: "nats://127.0.0.1:4222", Subject: "clickit.mail"},
			ArchivePath: "clickit-submissions.db",
		},
		Monitoring: MonitoringConfig{
			Metrics: MonitoringMetrics{Enabled: true, Path: "/metrics"},
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
