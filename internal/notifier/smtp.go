package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
)

// SMTPNotifier delivers through a plain SMTP relay.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTP builds a notifier against the relay at addr (host:port). An empty
// username skips authentication, which is common for in-network relays.
func NewSMTP(addr, from, username, password string) *SMTPNotifier {
	n := &SMTPNotifier{addr: addr, from: from}
	if username != "" {
		host := addr
		if h, _, err := net.SplitHostPort(addr); err == nil {
			host = h
		}
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

func (n *SMTPNotifier) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.from, to, subject, body)
	if err := smtp.SendMail(n.addr, n.auth, n.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
