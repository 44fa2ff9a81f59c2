// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/fugallabs/gatekeeper/internal/platform/mail"
)

// emailSubject is the subject line of every OTP email.
const emailSubject = "Your Fugal Labs OTP Code"

var textBody = texttemplate.Must(texttemplate.New("otp_text").Parse(`Hello from Fugal Labs!

Your One-Time Password (OTP) is: {{.Code}}

This code is valid for {{.Minutes}} minutes. Please do not share this code with anyone.

If you did not request this, please ignore this email.

Thank you,
The Fugal Labs Team
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("otp_html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto;">
  <h2 style="color: #2d3748;">Fugal Labs Verification</h2>
  <p>Hello,</p>
  <p>Your One-Time Password (OTP) is:</p>
  <p style="font-size: 1.5em; font-weight: bold; color: #3182ce; letter-spacing: 2px;">{{.Code}}</p>
  <p>This code is valid for <strong>{{.Minutes}} minutes</strong>.</p>
  <p style="color: #e53e3e;">Do not share this code with anyone.</p>
  <hr style="margin: 24px 0; border: none; border-top: 1px solid #e2e8f0;" />
  <p style="font-size: 0.95em; color: #718096;">If you did not request this OTP, you can safely ignore this email.</p>
  <p style="margin-top: 24px;">Thank you,<br/>The Fugal Labs Team</p>
</div>
`))

type templateData struct {
	Code    string
	Minutes int
}

// renderEmail builds the OTP message for one recipient.
func renderEmail(to, code string) (mail.Message, error) {
	data := templateData{Code: code, Minutes: int(CodeTTL / time.Minute)}

	var text, html bytes.Buffer
	if err := textBody.Execute(&text, data); err != nil {
		return mail.Message{}, fmt.Errorf("otp: render text body: %w", err)
	}
	if err := htmlBody.Execute(&html, data); err != nil {
		return mail.Message{}, fmt.Errorf("otp: render html body: %w", err)
	}

	return mail.Message{
		To:      to,
		Subject: emailSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
