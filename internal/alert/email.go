// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/warden-dev/warden/internal/config"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// SubjectPrefix starts every alert email subject.
const SubjectPrefix = "Warden Alert: "

// emailTimeout bounds one SMTP session, including a server that never greets.
const emailTimeout = 30 * time.Second

// SendFunc delivers one prepared message. The default dials addr, upgrades
// with STARTTLS and authenticates with auth.
type SendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends HTML alert emails over SMTP.
type EmailNotifier struct {
	cfg     config.EmailConfig
	send    SendFunc
	now     func() time.Time
	timeout time.Duration
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, send: sendSTARTTLS, now: time.Now, timeout: emailTimeout}
}

func (e *EmailNotifier) Name() string { return "email" }

// Configured reports whether host, credentials and recipients are all set.
func (e *EmailNotifier) Configured() bool {
	c := e.cfg
	return c.Host != "" && c.User != "" && c.Password != "" && len(e.recipients()) > 0
}

func (e *EmailNotifier) recipients() []string {
	var to []string
	for _, addr := range strings.Split(e.cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return to
}

func (e *EmailNotifier) from() string {
	if e.cfg.From != "" {
		return e.cfg.From
	}
	return e.cfg.User
}

func (e *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if !e.Configured() {
		return wardenerr.New(wardenerr.CodeNotifyNotConfigured,
			"email alerting not configured (missing SMTP host, credentials or recipients)",
			wardenerr.Field("channel", e.Name()))
	}

	port := e.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(port))
	auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)
	to := e.recipients()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.send(ctx, addr, auth, e.from(), to, e.compose(msg, to)); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeNotifyDeliveryFailure, "sending alert email",
			wardenerr.Field("channel", e.Name()))
	}
	return nil
}

func (e *EmailNotifier) compose(msg Message, to []string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", e.from())
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", SubjectPrefix+msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// sendSTARTTLS refuses to authenticate over a connection the server will not
// upgrade.
func sendSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Unblock pending reads if ctx is cancelled before its deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("smtp server %s does not support STARTTLS", host)
	}
	if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
		return err
	}
	if err := c.Auth(auth); err != nil {
		return err
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
