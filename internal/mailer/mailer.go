// Package mailer delivers one-time login codes out of band.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"time"
)

// Mailer is the notification contract the login flow depends on. A delivery
// error fails the whole login attempt.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error
}

// SMTPMailer sends plain-text codes over SMTP with implicit TLS (port 465).
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error {
	const op = "mailer.SendOTP"

	body := fmt.Sprintf("Your one-time code is: %s\r\nThis code expires at: %s\r\nIf you did not request this, please ignore.",
		code, expiresAt.Format(time.RFC3339))

	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Your login code\r\n" +
		"\r\n" +
		body)

	if err := m.send(ctx, to, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *SMTPMailer) send(ctx context.Context, to string, msg []byte) error {
	addr := m.host + ":" + m.port

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(m.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}

	return w.Close()
}
