// Package mail sends transactional email for the waitlist.
package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/circl-ai/circl/internal/events"
	"github.com/circl-ai/circl/pkg/logger"
	"github.com/circl-ai/circl/pkg/metrics"
)

// Sender delivers welcome emails through Resend.
type Sender struct {
	client       *resend.Client
	from         string
	referralBase string
	logger       *logger.Logger
}

// NewSender creates a sender. referralBase is the public URL prefix referral
// links hang off, e.g. https://circl.network/ref.
func NewSender(apiKey, from, referralBase string, log *logger.Logger) *Sender {
	return &Sender{
		client:       resend.NewClient(apiKey),
		from:         from,
		referralBase: referralBase,
		logger:       log,
	}
}

// SendWelcome sends the waitlist welcome email with the recipient's referral
// link.
func (s *Sender) SendWelcome(ctx context.Context, email, referralCode string) error {
	link := fmt.Sprintf("%s/%s", s.referralBase, referralCode)

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email},
		Subject: "You're on the Circl waitlist",
		Html: fmt.Sprintf(
			`<p>Thanks for joining the Circl waitlist.</p>`+
				`<p>Move up the list by sharing your referral link: <a href="%s">%s</a></p>`,
			link, link),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		metrics.WelcomeEmailsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("send welcome email: %w", err)
	}

	metrics.WelcomeEmailsTotal.WithLabelValues("success").Inc()
	s.logger.Info("welcome email sent", zap.String("message_id", sent.Id))
	return nil
}

// HandleSignup adapts the sender to the signup event consumer.
func (s *Sender) HandleSignup(ctx context.Context, event events.SignupEvent) error {
	return s.SendWelcome(ctx, event.Email, event.ReferralCode)
}
