package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/narrative"
)

// Sender delivers the rendered report via SMTP.
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

// NewSender creates an SMTP sender. to is the comma-separated recipient
// list.
func NewSender(host string, port int, username, password, from, to string) (*Sender, error) {
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if !strings.Contains(addr, "@") {
			return nil, fmt.Errorf("invalid recipient address %q", addr)
		}
		recipients = append(recipients, addr)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients configured")
	}
	if from == "" {
		return nil, fmt.Errorf("from address is required")
	}
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       recipients,
	}, nil
}

// SendReport renders and delivers the daily report email.
func (s *Sender) SendReport(report *aggregate.Report, analysis *narrative.Analysis, day time.Time) error {
	subject := fmt.Sprintf("Daily Report — %s", day.Format("Jan 2, 2006"))

	htmlBody, err := RenderHTML(report, analysis, day)
	if err != nil {
		return err
	}
	textBody := RenderText(report, analysis, day)

	msg := buildMessage(s.from, s.to, subject, textBody, htmlBody)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(addr, auth, s.from, s.to, msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}

	slog.Info("Report email sent", "recipients", strings.Join(s.to, ", "), "subject", subject)
	return nil
}

// buildMessage assembles a multipart/alternative MIME message with a
// plain-text part and an HTML part.
func buildMessage(from string, to []string, subject, textBody, htmlBody string) []byte {
	const boundary = "dailybrief-alt-boundary"

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
	msg.WriteString("\r\n")

	// Plain text first: clients pick the last part they can render.
	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(textBody)
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return []byte(msg.String())
}
