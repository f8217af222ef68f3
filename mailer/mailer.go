// Package mailer delivers outgoing mail.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"marketplace-backend/config"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when SMTP is configured and a logging sender otherwise.
func New(cfg *config.Config, log zerolog.Logger) Sender {
	if !cfg.SMTPEnabled() {
		log.Info().Msg("smtp not configured, mail is only logged")
		return NewLogSender(log)
	}
	var auth smtp.Auth
	if cfg.SMTP.User != "" {
		auth = smtp.PlainAuth("", cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.Host)
	}
	return &SMTPSender{
		addr: cfg.SMTP.Host + ":" + strconv.Itoa(cfg.SMTP.Port),
		from: cfg.SMTP.From,
		auth: auth,
		send: smtp.SendMail,
	}
}

type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail has no recipient")
	}
	return errors.Wrapf(s.send(s.addr, s.auth, s.from, []string{msg.To}, s.render(msg)), "send mail to %s", msg.To)
}

func (s *SMTPSender) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogSender writes mail to the log instead of delivering it.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail")
	return nil
}
