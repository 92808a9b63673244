// Package smtp implements the Mailer port over STARTTLS SMTP, the flow a
// Gmail app-password account expects.
package smtp

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/realikechukwu/cardiology-feed/internal/config"
	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
)

// Mailer sends the rendered digest to a fixed recipient list. Only the
// sender address appears in the To header; everyone else rides the envelope.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer builds a mailer from configuration.
func NewMailer(cfg config.EmailConfig) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		to:       cfg.To,
	}
}

// Send delivers one multipart/alternative message to all recipients. A nil
// return means the server accepted the message for at least one recipient.
func (m *Mailer) Send(ctx context.Context, msg domain.Email) error {
	if m.host == "" || m.username == "" || m.password == "" || m.from == "" || len(m.to) == 0 {
		return fmt.Errorf("smtp mailer misconfigured")
	}

	recipients := envelopeRecipients(m.from, m.to)
	payload := buildMessage(m.from, msg)

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}

	var accepted int
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err == nil {
			accepted++
		}
	}
	if accepted == 0 {
		return fmt.Errorf("no recipient accepted")
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return client.Quit()
}

// envelopeRecipients dedupes from+to while keeping the sender first.
func envelopeRecipients(from string, to []string) []string {
	seen := map[string]struct{}{from: {}}
	out := []string{from}
	for _, addr := range to {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

const boundary = "cardiology-feed-alt"

func buildMessage(from string, msg domain.Email) string {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + from + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n")
	sb.WriteString("\r\n")

	writePart(&sb, "text/plain", msg.TextBody)
	writePart(&sb, "text/html", msg.HTMLBody)
	sb.WriteString("--" + boundary + "--\r\n")
	return sb.String()
}

func writePart(sb *strings.Builder, contentType, body string) {
	sb.WriteString("--" + boundary + "\r\n")
	sb.WriteString("Content-Type: " + contentType + "; charset=utf-8\r\n")
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(body))))
	sb.WriteString("\r\n")
}

// wrapBase64 folds encoded bodies at the RFC 2045 76-column limit.
func wrapBase64(s string) string {
	var sb strings.Builder
	for len(s) > 76 {
		sb.WriteString(s[:76])
		sb.WriteString("\r\n")
		s = s[76:]
	}
	sb.WriteString(s)
	return sb.String()
}
