package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTP_Send(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)

	s := NewSMTP(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "tienda@example.com", Password: "secret"})
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), "cliente@example.com", "¡Tu pago ha sido aprobado!", "<p>Hola</p>")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "tienda@example.com", gotFrom)
	assert.Equal(t, []string{"cliente@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "=?utf-8?q?")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>Hola</p>"))
}

func TestSMTP_SendError(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "localhost", Port: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.Send(context.Background(), "a@example.com", "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSMTP_CancelledContext(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "localhost", Port: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Send(ctx, "a@example.com", "x", "y"), context.Canceled)
}

func TestLog_Send(t *testing.T) {
	require.NoError(t, NewLog(zap.NewNop()).Send(context.Background(), "a@example.com", "x", "y"))
}
