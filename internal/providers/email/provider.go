// Package email delivers transactional mail over SMTP with a branded HTML
// layout. Deployments without SMTP credentials get the no-op provider so
// account flows keep working, just without mail.
package email

import (
	"context"

	"go.uber.org/zap"
)

// Message kinds, used as the delivery metric label.
const (
	KindPasswordReset  = "password_reset"
	KindSetupInvite    = "setup_invite"
	KindApproved       = "account_approved"
	KindTicketAnswered = "ticket_answered"
)

// Message is one outgoing mail. The HTML body is rendered from the embedded
// layout; BodyLines become paragraphs and CTALabel/CTAURL an action button.
type Message struct {
	To        []string
	Subject   string
	Kind      string
	Title     string
	Subtitle  string
	BodyLines []string
	CTALabel  string
	CTAURL    string
	Footer    string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider drops messages, logging enough to debug flows locally.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	p.log.Debug("mail dropped, smtp not configured",
		zap.String("kind", msg.Kind),
		zap.String("subject", msg.Subject),
	)
	return nil
}
