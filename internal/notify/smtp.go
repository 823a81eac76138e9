// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a whole delivery. Zero means 10s.
	Timeout time.Duration
}

// Validate checks the settings needed to send mail.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return oops.Code("NOTIFY_CONFIG_INVALID").With("port", c.Port).Errorf("smtp port must be between 1 and 65535")
	}
	if _, err := mail.ParseAddress(c.From); err != nil {
		return oops.Code("NOTIFY_CONFIG_INVALID").With("from", c.From).Wrapf(err, "smtp from address is invalid")
	}
	return nil
}

func (c SMTPConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// sendFunc delivers a fully formatted message.
type sendFunc func(ctx context.Context, cfg SMTPConfig, to string, msg []byte) error

// SMTPNotifier delivers messages as plain-text email.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewSMTPNotifier creates an SMTPNotifier after validating cfg.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPNotifier{cfg: cfg, send: sendSMTP, now: time.Now}, nil
}

// Deliver sends msg to the email address destination.
func (n *SMTPNotifier) Deliver(ctx context.Context, destination string, msg auth.Message) error {
	to, err := mail.ParseAddress(destination)
	if err != nil {
		return oops.Code("NOTIFY_INVALID_DESTINATION").With("destination", destination).Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	if err := n.send(ctx, n.cfg, to.Address, n.format(to.Address, msg)); err != nil {
		return oops.With("smtp_host", n.cfg.Host).Wrap(err)
	}
	return nil
}

// format renders RFC 5322 headers and a CRLF-terminated body.
func (n *SMTPNotifier) format(to string, msg auth.Message) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", n.cfg.From)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", n.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}

// sendSMTP speaks SMTP to cfg.Host, upgrading to TLS when offered and
// authenticating when a username is set.
func sendSMTP(ctx context.Context, cfg SMTPConfig, to string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return oops.With("smtp_step", "dial").Wrap(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // a failed deadline surfaces as an I/O error
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return oops.With("smtp_step", "greeting").Wrap(err)
	}
	defer client.Close() //nolint:errcheck // Quit below reports the meaningful error

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return oops.With("smtp_step", "starttls").Wrap(err)
		}
	}
	if cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return oops.With("smtp_step", "auth").Wrap(err)
		}
	}

	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return oops.With("smtp_step", "from").Wrap(err)
	}
	if err := client.Mail(from.Address); err != nil {
		return oops.With("smtp_step", "mail").Wrap(err)
	}
	if err := client.Rcpt(to); err != nil {
		return oops.With("smtp_step", "rcpt").Wrap(err)
	}
	w, err := client.Data()
	if err != nil {
		return oops.With("smtp_step", "data").Wrap(err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return oops.With("smtp_step", "write").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return oops.With("smtp_step", "data close").Wrap(err)
	}
	if err := client.Quit(); err != nil {
		return oops.With("smtp_step", "quit").Wrap(err)
	}
	return nil
}

var _ auth.Notifier = (*SMTPNotifier)(nil)
