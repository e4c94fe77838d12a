package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"gopkg.in/gomail.v2"
)

// SMTPTransport delivers mail over SMTP using gomail. It dials per send;
// worker batches are small enough that connection reuse is not worth the
// stale-connection handling it would need.
type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPTransport constructs the transport.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{host: host, port: port, username: username, password: password}
}

// Send dispatches one message, honoring ctx cancellation. gomail has no
// context support of its own, so the dial-and-send runs in a goroutine and
// the ctx deadline converts into a transient timeout error.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	d := gomail.NewDialer(t.host, t.port, t.username, t.password)

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return NewTransientError(fmt.Errorf("smtp send: %w", ctx.Err()))
	case err := <-done:
		if err != nil {
			return classify(err)
		}
		return nil
	}
}

// classify maps SMTP failures onto the transient/permanent taxonomy.
// 4xx codes and network errors are retryable; 5xx codes are not.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransientError(err)
	}

	msg := err.Error()
	if code := leadingSMTPCode(msg); code != 0 {
		if code >= 400 && code < 500 {
			return NewTransientError(err)
		}
		if code >= 500 {
			return NewPermanentError(err)
		}
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout") {
		return NewTransientError(err)
	}
	return NewPermanentError(err)
}

func leadingSMTPCode(msg string) int {
	fields := strings.Fields(msg)
	for _, f := range fields {
		if len(f) == 3 && f[0] >= '2' && f[0] <= '5' && isDigits(f) {
			code := int(f[0]-'0')*100 + int(f[1]-'0')*10 + int(f[2]-'0')
			return code
		}
	}
	return 0
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
