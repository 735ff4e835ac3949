package relay

import (
	"git.home.luguber.info/inful/clickit/internal/config"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
)

// NewSender returns the MailSender selected by cfg.Provider and a close
// function releasing its resources.
func NewSender(cfg config.RelayConfig) (MailSender, func() error, error) {
	switch cfg.Provider {
	case config.MailProviderNATS:
		s, err := NewNATSSender(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, nil, errors.WrapError(err, errors.CategoryNetwork, "connect mail transport").
				WithContext("url", cfg.NATS.URL).
				Build()
		}
		return s, s.Close, nil
	case config.MailProviderSMTP, "":
		return NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password), func() error { return nil }, nil
	default:
		return nil, nil, errors.ConfigError("unsupported mail provider").WithContext("provider", string(cfg.Provider)).Build()
	}
}
