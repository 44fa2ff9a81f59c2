// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional email.

The concrete backend is chosen once at startup from [config.MailConfig] and
passed to the services that need it. Nothing in this package is global.

Backends:

  - [SMTPSender]: Real delivery over SMTP (production).
  - [LogSender]: Writes a redacted record to the structured log (development).
  - [RateLimitedSender]: Decorates any sender with a token-bucket quota guard.
*/
package mail

import (
	stdctx "context"
	"fmt"
	"log/slog"

	"github.com/fugallabs/gatekeeper/internal/platform/config"
)

// Message is a single outbound email with both a plain-text and an HTML body.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message or returns an error.
type Sender interface {
	Send(context stdctx.Context, message Message) error
}

// New builds the configured sender, wrapped with the provider quota guard.
func New(cfg config.MailConfig, logger *slog.Logger) (Sender, error) {
	var sender Sender

	switch cfg.Provider {
	case config.MailProviderSMTP:
		sender = NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From)
	case config.MailProviderLog, "":
		sender = NewLogSender(logger)
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.Provider)
	}

	logger.Info("mail_provider_selected", slog.String("provider", cfg.Provider))

	return NewRateLimitedSender(sender, cfg.RatePerSecond, cfg.Burst), nil
}
