package model

import "context"

// MailTemplate selects one of the transactional email bodies.
type MailTemplate string

const (
	// MailVerification carries the email-verification token.
	MailVerification MailTemplate = "verification"
	// MailPasswordReset carries the password-reset token.
	MailPasswordReset MailTemplate = "password_reset"
	// MailPasswordChanged confirms a completed password change.
	MailPasswordChanged MailTemplate = "password_changed"
)

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, to string, template MailTemplate, data map[string]string) error
}
