package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

// RecipientLister returns the addresses that receive email alerts.
type RecipientLister interface {
	AllEmails(ctx context.Context) ([]string, error)
}

// mailSender is the subset of mailgun.Mailgun used here.
type mailSender interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// EmailChannel sends one email per subscriber through Mailgun.
type EmailChannel struct {
	mg         mailSender
	from       string
	recipients RecipientLister
	timeout    time.Duration
	logger     *zap.Logger
}

// NewEmailChannel creates a Mailgun-backed channel.
func NewEmailChannel(domain, apiKey, from string, recipients RecipientLister, logger *zap.Logger) *EmailChannel {
	return newEmailChannel(mailgun.NewMailgun(domain, apiKey), from, recipients, logger)
}

func newEmailChannel(mg mailSender, from string, recipients RecipientLister, logger *zap.Logger) *EmailChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailChannel{
		mg:         mg,
		from:       from,
		recipients: recipients,
		timeout:    10 * time.Second,
		logger:     logger.Named("email"),
	}
}

func (c *EmailChannel) Name() string { return "email" }

// Send mails msg to every subscriber. It is a no-op without recipients.
// A failed recipient does not stop the others.
func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	to, err := c.recipients.AllEmails(ctx)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	if len(to) == 0 {
		return nil
	}

	var errs []error
	for _, recipient := range to {
		m := c.mg.NewMessage(c.from, msg.Subject, msg.Text, recipient)
		m.SetHtml(msg.HTML)

		sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, id, err := c.mg.Send(sendCtx, m)
		cancel()
		if err != nil {
			c.logger.Warn("mailgun send failed",
				zap.String("to", recipient),
				zap.String("response", resp),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("send to %s: %w", recipient, err))
			continue
		}
		c.logger.Debug("email sent", zap.String("to", recipient), zap.String("id", id))
	}
	return errors.Join(errs...)
}
