package mailer

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/config"
)

func TestNew_PicksSender(t *testing.T) {
	cfg := &config.Config{}
	assert.IsType(t, &LogSender{}, New(cfg, zerolog.Nop()))

	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Port = 587
	assert.IsType(t, &SMTPSender{}, New(cfg, zerolog.Nop()))
}

func TestSMTPSender_Send(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotBody string
	)
	s := &SMTPSender{
		addr: "smtp.example.com:587",
		from: "shop@example.com",
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotBody = addr, to, string(msg)
			return nil
		},
	}

	err := s.Send(context.Background(), Message{To: "buyer@example.com", Subject: "Order 7", Body: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Subject: Order 7\r\n")
	assert.Contains(t, gotBody, "\r\n\r\nthanks")

	assert.Error(t, s.Send(context.Background(), Message{Subject: "no recipient"}))
}
