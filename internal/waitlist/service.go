package waitlist

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"github.com/circl-ai/circl/internal/events"
	"github.com/circl-ai/circl/pkg/logger"
	"github.com/circl-ai/circl/pkg/metrics"
)

var (
	// ErrEmailExists is returned when the email is already on the waitlist.
	ErrEmailExists = errors.New("user already exists")

	// ErrInvalidReferral is returned when the supplied referral code is unknown.
	ErrInvalidReferral = errors.New("invalid referral code")

	// ErrInvalidEmail is returned when the email does not parse.
	ErrInvalidEmail = errors.New("invalid email address")
)

// SignupStore is the persistence surface the service needs. Satisfied by
// *Repository.
type SignupStore interface {
	codeChecker
	EmailExists(ctx context.Context, email string) (bool, error)
	InsertEntry(ctx context.Context, email string, usedCode *string) (Entry, error)
	GetReferralCode(ctx context.Context, code string) (ReferralCode, error)
	IncrementReferralUses(ctx context.Context, code string) error
	InsertReferralCode(ctx context.Context, code, ownerID string) error
}

// Service implements the waitlist signup flow.
type Service struct {
	store     SignupStore
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewService creates a waitlist service. publisher may be nil when NATS is
// not configured; signups then skip event publication.
func NewService(store SignupStore, publisher *events.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Signup registers an email, validates and consumes an optional referral
// code, and mints a fresh referral code for the new entry.
func (s *Service) Signup(ctx context.Context, email, code string) (Entry, string, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return Entry{}, "", ErrInvalidEmail
	}

	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return Entry{}, "", err
	}
	if exists {
		metrics.WaitlistSignupsTotal.WithLabelValues("duplicate").Inc()
		return Entry{}, "", ErrEmailExists
	}

	var usedCode *string
	if code != "" {
		if _, err := s.store.GetReferralCode(ctx, code); err != nil {
			if errors.Is(err, ErrNotFound) {
				metrics.WaitlistSignupsTotal.WithLabelValues("bad_referral").Inc()
				return Entry{}, "", ErrInvalidReferral
			}
			return Entry{}, "", err
		}
		if err := s.store.IncrementReferralUses(ctx, code); err != nil {
			return Entry{}, "", err
		}
		usedCode = &code
	}

	entry, err := s.store.InsertEntry(ctx, email, usedCode)
	if err != nil {
		return Entry{}, "", err
	}

	newCode, err := generateUniqueCode(ctx, s.store, entry.Email)
	if err != nil {
		return Entry{}, "", fmt.Errorf("generate referral code: %w", err)
	}
	if err := s.store.InsertReferralCode(ctx, newCode, entry.ID); err != nil {
		return Entry{}, "", err
	}

	s.publishSignup(ctx, entry, newCode)

	metrics.WaitlistSignupsTotal.WithLabelValues("success").Inc()
	s.logger.Info("waitlist signup",
		zap.String("waitlist_id", entry.ID),
		zap.Bool("referred", usedCode != nil),
	)
	return entry, newCode, nil
}

// publishSignup emits the signup event best-effort. The welcome email rides
// on this event, so a publish failure costs an email, not the signup.
func (s *Service) publishSignup(ctx context.Context, entry Entry, code string) {
	if s.publisher == nil {
		return
	}

	event := events.SignupEvent{
		ID:           entry.ID,
		Email:        entry.Email,
		ReferralCode: code,
		CreatedAt:    entry.CreatedAt,
	}
	if entry.UsedCode != nil {
		event.UsedCode = *entry.UsedCode
	}

	if err := s.publisher.PublishSignup(ctx, event); err != nil {
		s.logger.Warn("failed to publish signup event",
			zap.String("waitlist_id", entry.ID), zap.Error(err))
	}
}
