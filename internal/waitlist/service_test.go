package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circl-ai/circl/pkg/logger"
)

// fakeStore is an in-memory SignupStore for service tests.
type fakeStore struct {
	entries map[string]Entry
	codes   map[string]ReferralCode
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: make(map[string]Entry),
		codes:   make(map[string]ReferralCode),
	}
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := f.entries[email]
	return ok, nil
}

func (f *fakeStore) InsertEntry(ctx context.Context, email string, usedCode *string) (Entry, error) {
	entry := Entry{
		ID:        uuid.NewString(),
		Email:     email,
		UsedCode:  usedCode,
		CreatedAt: time.Now().UTC(),
	}
	f.entries[email] = entry
	return entry, nil
}

func (f *fakeStore) GetReferralCode(ctx context.Context, code string) (ReferralCode, error) {
	rc, ok := f.codes[code]
	if !ok {
		return ReferralCode{}, ErrNotFound
	}
	return rc, nil
}

func (f *fakeStore) CodeExists(ctx context.Context, code string) (bool, error) {
	_, ok := f.codes[code]
	return ok, nil
}

func (f *fakeStore) IncrementReferralUses(ctx context.Context, code string) error {
	rc, ok := f.codes[code]
	if !ok {
		return ErrNotFound
	}
	rc.Uses++
	f.codes[code] = rc
	return nil
}

func (f *fakeStore) InsertReferralCode(ctx context.Context, code, ownerID string) error {
	f.codes[code] = ReferralCode{Code: code, OwnerID: ownerID}
	return nil
}

func newTestService(store SignupStore) *Service {
	return NewService(store, nil, logger.NewNop())
}

func TestSignupCreatesEntryAndReferralCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	entry, code, err := svc.Signup(context.Background(), "sarah@example.com", "")
	require.NoError(t, err)

	assert.Equal(t, "sarah@example.com", entry.Email)
	assert.Nil(t, entry.UsedCode)
	assert.NotEmpty(t, entry.ID)
	assert.NotEmpty(t, code)

	// The minted code is registered to the new entry.
	rc, err := store.GetReferralCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, rc.OwnerID)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, _, err := svc.Signup(context.Background(), "sarah@example.com", "")
	require.NoError(t, err)

	_, _, err = svc.Signup(context.Background(), "sarah@example.com", "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestSignupRejectsInvalidEmail(t *testing.T) {
	svc := newTestService(newFakeStore())

	for _, email := range []string{"", "not-an-email", "missing-at.example.com"} {
		_, _, err := svc.Signup(context.Background(), email, "")
		assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
	}
}

func TestSignupRejectsUnknownReferralCode(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, _, err := svc.Signup(context.Background(), "sarah@example.com", "NOPE1234")
	assert.ErrorIs(t, err, ErrInvalidReferral)
}

func TestSignupWithReferralCodeIncrementsUses(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, referrerCode, err := svc.Signup(context.Background(), "referrer@example.com", "")
	require.NoError(t, err)

	entry, _, err := svc.Signup(context.Background(), "invitee@example.com", referrerCode)
	require.NoError(t, err)

	require.NotNil(t, entry.UsedCode)
	assert.Equal(t, referrerCode, *entry.UsedCode)

	rc, err := store.GetReferralCode(context.Background(), referrerCode)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.Uses)
}

func TestSignupWithoutPublisherSucceeds(t *testing.T) {
	svc := NewService(newFakeStore(), nil, logger.NewNop())

	_, code, err := svc.Signup(context.Background(), "sarah@example.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, code)
}
