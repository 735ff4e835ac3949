package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validateServer(); err != nil {
		return err
	}
	if err := cv.validateRelay(); err != nil {
		return err
	}
	return cv.validateMonitoring()
}

// validateSite rejects output directories that would wipe the source tree.
func (cv *configurationValidator) validateSite() error {
	site := cv.config.Site
	if strings.TrimSpace(site.OutputDir) == "" {
		return errors.New("site.output_dir cannot be empty")
	}
	src, err := filepath.Abs(site.SourceDir)
	if err != nil {
		return fmt.Errorf("site.source_dir: %w", err)
	}
	out, err := filepath.Abs(site.OutputDir)
	if err != nil {
		return fmt.Errorf("site.output_dir: %w", err)
	}
	if src == out {
		return fmt.Errorf("site.output_dir (%s) must differ from site.source_dir", site.OutputDir)
	}
	if rel, err := filepath.Rel(out, src); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("site.output_dir (%s) must not contain site.source_dir", site.OutputDir)
	}
	return nil
}

func (cv *configurationValidator) validateServer() error {
	s := cv.config.Server
	if err := validatePort("server.port", s.Port); err != nil {
		return err
	}
	if s.LiveReloadPort != 0 {
		if err := validatePort("server.live_reload_port", s.LiveReloadPort); err != nil {
			return err
		}
		if s.LiveReloadPort == s.Port {
			return fmt.Errorf("server.live_reload_port must differ from server.port (%d)", s.Port)
		}
	}
	return nil
}

func (cv *configurationValidator) validateRelay() error {
	r := cv.config.Relay
	if err := validatePort("relay.port", r.Port); err != nil {
		return err
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("relay.path must start with '/': %q", r.Path)
	}
	switch r.Provider {
	case MailProviderSMTP:
		if err := validatePort("relay.smtp.port", r.SMTP.Port); err != nil {
			return err
		}
	case MailProviderNATS:
		if r.NATS.Subject == "" {
			return errors.New("relay.nats.subject cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported relay.provider (valid: %s)", strings.Join(ValidMailProviders(), ", "))
	}
	return nil
}

func (cv *configurationValidator) validateMonitoring() error {
	p := cv.config.Monitoring.Metrics.Path
	if cv.config.Monitoring.Metrics.Enabled && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("monitoring.metrics.path must start with '/': %q", p)
	}
	return nil
}

func validatePort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid %s: %d (must be 1-65535)", field, port)
	}
	return nil
}
