package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circl-ai/circl/internal/middleware"
	"github.com/circl-ai/circl/pkg/logger"
)

func newTestHandler() *Handler {
	return NewHandler(newTestService(newFakeStore()), logger.NewNop())
}

func doSignup(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)
	return rec
}

func TestSignupHandlerSuccess(t *testing.T) {
	h := newTestHandler()

	rec := doSignup(t, h, `{"email":"sarah@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SignupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "sarah@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.ID)
	assert.Nil(t, resp.User.UsedCode)
	assert.NotEmpty(t, resp.ReferralCode)
	assert.NotEmpty(t, resp.User.CreatedAt)
}

func TestSignupHandlerRejectsBadJSON(t *testing.T) {
	rec := doSignup(t, newTestHandler(), `{broken`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid request body", resp["error"])
}

func TestSignupHandlerRejectsInvalidEmail(t *testing.T) {
	rec := doSignup(t, newTestHandler(), `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrInvalidEmail.Error(), resp["error"])
}

func TestSignupHandlerRejectsDuplicateEmail(t *testing.T) {
	h := newTestHandler()

	require.Equal(t, http.StatusOK, doSignup(t, h, `{"email":"sarah@example.com"}`).Code)

	rec := doSignup(t, h, `{"email":"sarah@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrEmailExists.Error(), resp["error"])
}

func TestSignupHandlerRejectsUnknownReferralCode(t *testing.T) {
	rec := doSignup(t, newTestHandler(), `{"email":"sarah@example.com","code":"NOPE1234"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrInvalidReferral.Error(), resp["error"])
}

// brokenStore fails every lookup, forcing the handler's 500 path.
type brokenStore struct {
	*fakeStore
}

func (s *brokenStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestSignupHandlerStoreFailureReturns500(t *testing.T) {
	h := NewHandler(newTestService(&brokenStore{newFakeStore()}), logger.NewNop())
	wrapped := middleware.Logging(logger.NewNop())(http.HandlerFunc(h.Signup))

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(`{"email":"sarah@example.com"}`))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed to join waitlist", resp["error"])
}

func TestSignupHandlerReferralFlow(t *testing.T) {
	h := newTestHandler()

	first := doSignup(t, h, `{"email":"referrer@example.com"}`)
	require.Equal(t, http.StatusOK, first.Code)

	var firstResp SignupResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))

	second := doSignup(t, h, `{"email":"invitee@example.com","code":"`+firstResp.ReferralCode+`"}`)
	require.Equal(t, http.StatusOK, second.Code)

	var secondResp SignupResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	require.NotNil(t, secondResp.User.UsedCode)
	assert.Equal(t, firstResp.ReferralCode, *secondResp.User.UsedCode)
}
