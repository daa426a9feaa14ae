package mailer

import (
	"fmt"
	"html"
	"strings"

	"rma-engine-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

// Message is one outgoing RMA e-mail.
type Message struct {
	To      []string
	Subject string
	Heading string
	Lines   []string
	LinkURL string
	LinkTxt string
}

type IEmailService interface {
	Send(msg Message) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail string, logger logger.ILogger) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		logger:      logger,
	}
}

func render(msg Message) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">`)
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(msg.Heading))
	for _, line := range msg.Lines {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(line))
	}
	if msg.LinkURL != "" {
		text := msg.LinkTxt
		if text == "" {
			text = msg.LinkURL
		}
		fmt.Fprintf(&b, `<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">%s</a>`,
			html.EscapeString(msg.LinkURL), html.EscapeString(text))
	}
	b.WriteString("</div>")
	return b.String()
}

func (s *emailService) Send(msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", render(msg))

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("NOTIFY", "Failed to send e-mail", map[string]interface{}{
			"to":      strings.Join(msg.To, ","),
			"subject": msg.Subject,
			"error":   err.Error(),
		})
		return err
	}

	s.logger.Info("NOTIFY", "E-mail sent", map[string]interface{}{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
	})
	return nil
}
