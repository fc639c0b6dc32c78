// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email over SMTP.

Bodies are rendered from the HTML templates in this package and sent with
gomail. The transport is behind [Sender] so tests can capture messages
without a live SMTP server.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Config holds the SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender is the SMTP transport. [*gomail.Dialer] satisfies it.
type Sender interface {
	DialAndSend(messages ...*gomail.Message) error
}

// Mailer builds and sends HTML messages.
type Mailer struct {
	sender Sender
	from   string
	logger *slog.Logger
}

// New returns a Mailer that dials the configured SMTP server for every send.
func New(cfg Config, logger *slog.Logger) *Mailer {
	return NewWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, logger)
}

// NewWithSender returns a Mailer on a custom transport.
func NewWithSender(sender Sender, from string, logger *slog.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, logger: logger}
}

/*
Send delivers one HTML email.

Parameters:
  - ctx: checked before dialing; gomail itself is not cancellable
  - to: recipient address
  - subject: subject line
  - htmlBody: rendered HTML body

Returns:
  - error: the context error or the wrapped SMTP failure
*/
func (mailer *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := gomail.NewMessage()
	message.SetHeader("From", mailer.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", htmlBody)

	if err := mailer.sender.DialAndSend(message); err != nil {
		mailer.logger.ErrorContext(ctx, "smtp_send_failed", slog.String("subject", subject), slog.Any("error", err))
		return fmt.Errorf("mailer: send %q: %w", subject, err)
	}

	mailer.logger.DebugContext(ctx, "email_sent", slog.String("subject", subject))
	return nil
}

// SendOTP renders and sends the one-time code email.
func (mailer *Mailer) SendOTP(ctx context.Context, to, code string) error {
	body, err := RenderOTP(code)
	if err != nil {
		return err
	}
	return mailer.Send(ctx, to, SubjectOTP, body)
}

// SendVerificationLink renders and sends the email verification link.
func (mailer *Mailer) SendVerificationLink(ctx context.Context, to, link string) error {
	body, err := RenderVerificationLink(link)
	if err != nil {
		return err
	}
	return mailer.Send(ctx, to, SubjectVerifyEmail, body)
}

// SendTOTPEnabled renders and sends the authenticator enrolment notice.
func (mailer *Mailer) SendTOTPEnabled(ctx context.Context, to, firstName string) error {
	body, err := RenderTOTPEnabled(firstName)
	if err != nil {
		return err
	}
	return mailer.Send(ctx, to, SubjectTOTPEnabled, body)
}
