package notification

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	defaultMu     sync.RWMutex
	defaultMailer *Mailer
)

// SetDefault installs the mailer used by Send.
func SetDefault(m *Mailer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMailer = m
}

func Default() *Mailer {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultMailer
}

// Send queues msg on the default mailer. Without one the message is only logged.
func Send(msg Message) bool {
	if m := Default(); m != nil {
		return m.Enqueue(msg)
	}
	log.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("no mailer configured, email dropped")
	return false
}

// NewSenderFromConfig returns an SMTP sender when host is set and a
// LogSender otherwise.
func NewSenderFromConfig(cfg SMTPConfig, logger zerolog.Logger) EmailSender {
	if cfg.Host == "" {
		return LogSender{Logger: logger}
	}
	return NewSMTPSender(cfg)
}
