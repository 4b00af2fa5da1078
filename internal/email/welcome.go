package email

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

// Welcomer fires the welcome email when a brand-new user is provisioned.
// A nil *Welcomer is a valid no-op.
type Welcomer struct {
	sender  Sender
	service string
}

func NewWelcomer(sender Sender, serviceName string) *Welcomer {
	if sender == nil {
		return nil
	}
	if serviceName == "" {
		serviceName = "ssogate"
	}
	return &Welcomer{sender: sender, service: serviceName}
}

// SendWelcome delivers asynchronously; the login flow never waits on SMTP.
func (w *Welcomer) SendWelcome(ctx context.Context, to, name string) {
	if w == nil || to == "" {
		return
	}
	log := logger.From(ctx).With(logger.Component("email.welcome"))

	go func() {
		subject := fmt.Sprintf("Welcome to %s", w.service)
		greeting := name
		if greeting == "" {
			greeting = "there"
		}
		text := fmt.Sprintf("Hi %s,\n\nYour account was created after your first sign-in. "+
			"If this wasn't you, contact support.\n", greeting)
		html := fmt.Sprintf("<p>Hi %s,</p><p>Your account was created after your first sign-in. "+
			"If this wasn't you, contact support.</p>", greeting)

		if err := w.sender.Send(to, subject, html, text); err != nil {
			log.Warn("welcome email failed", logger.Email(to), logger.Err(err))
		}
	}()
}
