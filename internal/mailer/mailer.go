// Package mailer отправляет HTML-письма через SMTP.
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender отправляет письмо.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig содержит параметры SMTP-сервера.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP отправляет письма через SMTP-сервер с аутентификацией PLAIN.
type SMTP struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP создаёт отправителя писем через SMTP.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail}
}

// Send отправляет письмо. Контекст проверяется только перед отправкой.
func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// Log записывает письма в журнал вместо отправки. Используется, когда SMTP не настроен.
type Log struct {
	logger *zap.Logger
}

// NewLog создаёт отправителя, пишущего письма в журнал.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, to, subject, _ string) error {
	l.logger.Info("email delivery skipped, SMTP is not configured",
		zap.String("to", to), zap.String("subject", subject))
	return nil
}
