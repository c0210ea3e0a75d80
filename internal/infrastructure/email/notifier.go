package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/ports"
)

// Notifier delivers reminder messages over SMTP with STARTTLS.
type Notifier struct {
	sender   string
	password string
	host     string
	port     int
	send     func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers sender credentials and the SMTP endpoint.
func NewNotifier(cfg config.ReminderConfig) *Notifier {
	return &Notifier{
		sender:   cfg.Sender,
		password: cfg.Password,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		send:     smtp.SendMail,
	}
}

// Send posts one HTML message to a single recipient.
func (n *Notifier) Send(ctx context.Context, recipient, subject, body string) error {
	if n.sender == "" || n.password == "" || n.host == "" {
		return fmt.Errorf("email notifier misconfigured")
	}
	if recipient == "" {
		return fmt.Errorf("no recipient address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(n.sender, recipient, subject, body)
	auth := smtp.PlainAuth("", n.sender, n.password, n.host)
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	if err := n.send(addr, auth, n.sender, []string{recipient}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", recipient, err)
	}

	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
