package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	// StreamName is the name of the waitlist events stream.
	StreamName = "WAITLIST"

	// SubjectSignup is the subject signup events are published to.
	SubjectSignup = "waitlist.signup"

	// welcomeConsumer is the durable consumer draining signups for email.
	welcomeConsumer = "welcome-mailer"
)

// SignupEvent is emitted after a successful waitlist signup.
type SignupEvent struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	ReferralCode string    `json:"referral_code"`
	UsedCode     string    `json:"used_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Publisher publishes and consumes waitlist events.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher over an established NATS client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the waitlist stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{"waitlist.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Waitlist signup events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// PublishSignup publishes a signup event.
func (p *Publisher) PublishSignup(ctx context.Context, event SignupEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, SubjectSignup, data); err != nil {
		return fmt.Errorf("failed to publish signup event: %w", err)
	}
	return nil
}

// ConsumeSignups delivers signup events to handler on a durable consumer
// until the context is cancelled. Handler failures are logged and the event
// is redelivered by the server.
func (p *Publisher) ConsumeSignups(ctx context.Context, handler func(context.Context, SignupEvent) error) error {
	consumer, err := p.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       welcomeConsumer,
		FilterSubject: SubjectSignup,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var event SignupEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			p.client.logger.Warn("dropping malformed signup event", zap.Error(err))
			_ = msg.Term()
			return
		}

		if err := handler(ctx, event); err != nil {
			p.client.logger.Warn("signup event handler failed",
				zap.String("email", event.Email), zap.Error(err))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	<-ctx.Done()
	cc.Stop()
	return nil
}
