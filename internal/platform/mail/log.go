// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	stdctx "context"
	"log/slog"
	"strings"
)

// LogSender records outbound mail in the log instead of delivering it.
// Bodies are never logged since they carry one-time codes.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a development sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the subject and a masked recipient.
func (sender *LogSender) Send(context stdctx.Context, message Message) error {
	sender.logger.InfoContext(context, "mail_captured",
		slog.String("to", MaskAddress(message.To)),
		slog.String("subject", message.Subject),
		slog.Int("text_bytes", len(message.Text)),
		slog.Int("html_bytes", len(message.HTML)),
	)
	return nil
}

// MaskAddress hides the local part of an email address, keeping its first rune.
func MaskAddress(address string) string {
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		return "***"
	}

	local := []rune(address[:at])
	return string(local[0]) + "***" + address[at:]
}
