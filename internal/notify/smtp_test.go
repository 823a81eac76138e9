// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

func validSMTPConfig() SMTPConfig {
	return SMTPConfig{Host: "127.0.0.1", Port: 2525, From: "Accounts <no-reply@example.com>"}
}

func TestSMTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*SMTPConfig)
	}{
		{"missing host", func(c *SMTPConfig) { c.Host = "" }},
		{"zero port", func(c *SMTPConfig) { c.Port = 0 }},
		{"port too large", func(c *SMTPConfig) { c.Port = 70000 }},
		{"bad from", func(c *SMTPConfig) { c.From = "not an address" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSMTPConfig()
			tt.edit(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), "NOTIFY_CONFIG_INVALID")
		})
	}
	assert.NoError(t, validSMTPConfig().Validate())
}

func TestSMTPNotifier_Format(t *testing.T) {
	n, err := NewSMTPNotifier(validSMTPConfig())
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	raw := string(n.format("alice@example.com", auth.ResetCodeMessage("482913", 10*time.Minute)))

	headers, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok, "headers and body are separated by a blank line")
	assert.Contains(t, headers, "From: Accounts <no-reply@example.com>\r\n")
	assert.Contains(t, headers, "To: alice@example.com\r\n")
	assert.Contains(t, headers, "Subject: Password reset code\r\n")
	assert.Contains(t, headers, "Date: Sun, 01 Mar 2026 12:00:00 +0000")
	assert.Contains(t, body, "482913")
	assert.NotContains(t, strings.ReplaceAll(body, "\r\n", ""), "\n", "bare LF in body")
}

func TestSMTPNotifier_DeliverValidatesDestination(t *testing.T) {
	n, err := NewSMTPNotifier(validSMTPConfig())
	require.NoError(t, err)
	n.send = func(context.Context, SMTPConfig, string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err = n.Deliver(context.Background(), "not-an-email", auth.Message{Subject: "s", Body: "b"})
	errutil.AssertErrorCode(t, err, "NOTIFY_INVALID_DESTINATION")
}

func TestSMTPNotifier_DeliverWrapsSendErrors(t *testing.T) {
	n, err := NewSMTPNotifier(validSMTPConfig())
	require.NoError(t, err)
	sendErr := errors.New("421 service not available")
	n.send = func(ctx context.Context, _ SMTPConfig, to string, _ []byte) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.Equal(t, "alice@example.com", to)
		return sendErr
	}

	err = n.Deliver(context.Background(), "Alice <alice@example.com>", auth.Message{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, sendErr)
	errutil.AssertErrorContext(t, err, "smtp_host", "127.0.0.1")
}

// fakeSMTPServer accepts one session and records the envelope and data.
type fakeSMTPServer struct {
	ln   net.Listener
	wg   sync.WaitGroup
	mu   sync.Mutex
	from string
	rcpt string
	data string
}

func startFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTPServer{ln: ln}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // tcp listener
}

func (s *fakeSMTPServer) serve() {
	defer s.wg.Done()
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250-fake")
			_ = tp.PrintfLine("250 8BITMIME")
		case "MAIL":
			s.mu.Lock()
			s.from = line
			s.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "RCPT":
			s.mu.Lock()
			s.rcpt = line
			s.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = string(data)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPNotifier_DeliverOverSMTP(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := startFakeSMTPServer(t)
	cfg := validSMTPConfig()
	cfg.Port = server.port()
	cfg.Timeout = 5 * time.Second
	n, err := NewSMTPNotifier(cfg)
	require.NoError(t, err)

	err = n.Deliver(context.Background(), "alice@example.com", auth.ResetCodeMessage("482913", time.Minute))
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "MAIL FROM:<no-reply@example.com> BODY=8BITMIME", server.from)
	assert.Equal(t, "RCPT TO:<alice@example.com>", server.rcpt)
	assert.Contains(t, server.data, "Subject: Password reset code")
	assert.Contains(t, server.data, "482913")
}

func TestSMTPNotifier_DeliverUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // tcp listener
	require.NoError(t, ln.Close())

	cfg := validSMTPConfig()
	cfg.Port = port
	n, err := NewSMTPNotifier(cfg)
	require.NoError(t, err)

	err = n.Deliver(context.Background(), "alice@example.com", auth.Message{Subject: "s", Body: "b"})
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "smtp_step", "dial")
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}
