package mailer

import (
	"context"

	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// Noop logs emails instead of sending them. Used when SMTP is disabled,
// typically in development.
type Noop struct {
	logger *logger.Logger
}

var _ model.Mailer = (*Noop)(nil)

func NewNoop(logger *logger.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Send(_ context.Context, to string, template model.MailTemplate, data map[string]string) error {
	n.logger.Info("Mailer: email suppressed, SMTP disabled",
		"to", to,
		"template", string(template),
		"token", data["token"])

	return nil
}
