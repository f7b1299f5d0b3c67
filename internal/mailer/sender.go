package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SendResult reports one delivery attempt.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Sender delivers one outbound message. Implementations make a single
// attempt; retry policy is deliberately not part of the contract.
type Sender interface {
	Send(ctx context.Context, to string, email Email) SendResult
}

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func NewSMTPSender(addr, from string, auth smtp.Auth) *SMTPSender {
	return &SMTPSender{Addr: addr, From: from, Auth: auth}
}

func (s *SMTPSender) Send(ctx context.Context, to string, email Email) SendResult {
	if err := ctx.Err(); err != nil {
		return SendResult{Error: err.Error()}
	}
	messageID := uuid.NewString()
	msg := buildMIME(s.From, to, messageID, email)
	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, msg); err != nil {
		return SendResult{Error: fmt.Sprintf("smtp send: %v", err)}
	}
	return SendResult{Success: true, MessageID: messageID}
}

func buildMIME(from, to, messageID string, email Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}
