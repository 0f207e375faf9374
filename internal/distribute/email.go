package distribute

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/ecomtrend/ecomtrend/internal/config"
)

// EmailSender delivers reports over SMTP. Each recipient gets an individual
// message so subscriber addresses never leak to each other.
type EmailSender struct {
	cfg  config.EmailConfig
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender constructs an SMTP sender from config.
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg, send: smtp.SendMail}
}

func (e *EmailSender) Name() string { return "email" }

// Configured reports whether the sender has enough config to deliver.
func (e *EmailSender) Configured() bool {
	return e != nil && e.cfg.Host != "" && e.cfg.From != ""
}

// Send delivers the message to every recipient, stopping at the first
// transport error.
func (e *EmailSender) Send(ctx context.Context, msg Message) error {
	if !e.Configured() {
		return fmt.Errorf("email sender is not configured")
	}
	if len(msg.Recipients) == 0 {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	for _, recipient := range msg.Recipients {
		if err := ctx.Err(); err != nil {
			return err
		}

		body := e.buildMessage(recipient, msg)
		if err := e.send(addr, auth, e.cfg.From, []string{recipient}, body); err != nil {
			return fmt.Errorf("send email to %s: %w", recipient, err)
		}
	}
	return nil
}

func (e *EmailSender) buildMessage(recipient string, msg Message) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + e.cfg.From + "\r\n")
	sb.WriteString("To: " + recipient + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML != "" {
		sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		sb.WriteString(msg.HTML)
	} else {
		sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		sb.WriteString(msg.Text)
	}
	return []byte(sb.String())
}
