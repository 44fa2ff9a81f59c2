// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	stdctx "context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// dialer is the part of [gomail.Dialer] used for delivery.
type dialer interface {
	DialAndSend(messages ...*gomail.Message) error
}

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send builds a multipart message and hands it to the relay.
//
// gomail has no context support, so cancellation is only honored before dialing.
func (sender *SMTPSender) Send(context stdctx.Context, message Message) error {
	if err := context.Err(); err != nil {
		return err
	}

	envelope := gomail.NewMessage()
	envelope.SetHeader("From", sender.from)
	envelope.SetHeader("To", message.To)
	envelope.SetHeader("Subject", message.Subject)
	envelope.SetBody("text/plain", message.Text)
	if message.HTML != "" {
		envelope.AddAlternative("text/html", message.HTML)
	}

	if err := sender.dialer.DialAndSend(envelope); err != nil {
		return fmt.Errorf("mail: smtp delivery failed: %w", err)
	}

	return nil
}
