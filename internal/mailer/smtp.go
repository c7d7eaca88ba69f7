package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/classhub/classhub-server/internal/config"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// SMTP delivers account emails through an SMTP relay.
type SMTP struct {
	client  *mail.Client
	from    string
	baseURL string
	logger  *logger.Logger
}

var _ model.Mailer = (*SMTP)(nil)

// NewSMTP creates an SMTP mailer from configuration.
func NewSMTP(cfg config.SMTP, logger *logger.Logger) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTP{
		client:  client,
		from:    cfg.From,
		baseURL: cfg.LinkBaseURL,
		logger:  logger,
	}, nil
}

// Send renders the template and delivers it to the recipient.
func (s *SMTP) Send(ctx context.Context, to string, template model.MailTemplate, data map[string]string) error {
	subject, body, err := renderMail(template, s.baseURL, data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("failed to set mail sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("Mailer: failed to send email",
			"to", to,
			"template", string(template),
			"error", err.Error())
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("Mailer: email sent",
		"to", to,
		"template", string(template))

	return nil
}

func renderMail(template model.MailTemplate, baseURL string, data map[string]string) (string, string, error) {
	greeting := "Hi,"
	if name := data["first_name"]; name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}

	switch template {
	case model.MailVerification:
		subject := "Verify your ClassHub email"
		body := fmt.Sprintf(`%s

Welcome to ClassHub. Please confirm your email address by opening the link below:

%s/verify-email?token=%s

If you did not create this account, you can ignore this message.
`, greeting, baseURL, data["token"])
		return subject, body, nil

	case model.MailPasswordReset:
		subject := "Reset your ClassHub password"
		body := fmt.Sprintf(`%s

A password reset was requested for your account. Open the link below to choose a new password. The link expires in one hour:

%s/reset-password?token=%s

If you did not request this, you can ignore this message and your password stays unchanged.
`, greeting, baseURL, data["token"])
		return subject, body, nil

	case model.MailPasswordChanged:
		subject := "Your ClassHub password was changed"
		body := fmt.Sprintf(`%s

The password for your ClassHub account was just changed. If this was you, no action is needed.

If you did not change your password, reset it immediately and contact an administrator.
`, greeting)
		return subject, body, nil

	default:
		return "", "", fmt.Errorf("unknown mail template: %s", template)
	}
}
