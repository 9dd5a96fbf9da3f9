package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/locafrota/fleetsla/internal/observability/metrics"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
	log *zap.Logger
	obs *metrics.Metrics
}

func NewSMTP(cfg Config, log *zap.Logger, obs *metrics.Metrics) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, log: log.Named("email.smtp"), obs: obs}
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail needs at least one recipient")
	}

	body, err := Render(msg)
	if err != nil {
		p.obs.RecordMailDelivery(msg.Kind, "render_error")
		return err
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := net.JoinHostPort(p.cfg.Host, p.cfg.Port)

	var raw strings.Builder
	fmt.Fprintf(&raw, "From: %s\r\n", p.cfg.From)
	fmt.Fprintf(&raw, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&raw, "Subject: %s\r\n", msg.Subject)
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(body)

	if err := smtp.SendMail(addr, auth, p.cfg.From, msg.To, []byte(raw.String())); err != nil {
		p.obs.RecordMailDelivery(msg.Kind, "error")
		p.log.Warn("mail delivery failed", zap.String("kind", msg.Kind), zap.Error(err))
		return err
	}

	p.obs.RecordMailDelivery(msg.Kind, "sent")
	return nil
}
