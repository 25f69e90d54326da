// Package smtp sends outbound mail: compose an RFC 822 plain text message
// and deliver it through the account's submission server.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
)

// ErrNoSMTPConfig is returned when the account has no SMTP host configured.
// Surfaced before any network attempt.
var ErrNoSMTPConfig = errors.New("no SMTP configuration for account")

// SendConfig is the submission server and credentials for one send.
// UseTLS selects STARTTLS; plain TCP is for tests only.
type SendConfig struct {
	Host     string
	Port     int
	UseTLS   bool
	Email    string
	Password string
}

// Compose builds an RFC 822 plain text message with the given envelope
// headers. Non-ASCII subjects and names are encoded by the writer.
func Compose(from, to, subject, body string) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate Message-ID: %w", err)
	}

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize message: %w", err)
	}

	return buf.Bytes(), nil
}

// Send delivers a composed wire message. Delivery is MAIL/RCPT/DATA with
// PLAIN auth; QUIT is best-effort once the message is accepted.
func Send(ctx context.Context, cfg SendConfig, from, to string, wire []byte) error {
	if cfg.Host == "" {
		return ErrNoSMTPConfig
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var c *gosmtp.Client
	var err error
	if cfg.UseTLS {
		c, err = gosmtp.DialStartTLS(addr, &tls.Config{ServerName: cfg.Host})
	} else {
		c, err = gosmtp.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server %s: %w", addr, err)
	}
	defer c.Close()

	auth := sasl.NewPlainClient("", cfg.Email, cfg.Password)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed for %s: %w", cfg.Email, err)
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("SMTP MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("SMTP RCPT TO failed: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA failed: %w", err)
	}
	if _, err := w.Write(wire); err != nil {
		return fmt.Errorf("failed to write message data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message data: %w", err)
	}

	_ = c.Quit()
	return nil
}
