package auth

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBodyNotReplayable is returned when a post-refresh retry is impossible
// because the request body cannot be read a second time.
var ErrBodyNotReplayable = errors.New("request body cannot be replayed for retry")

// expirySlack refreshes tokens slightly before their exp claim so a request
// does not leave with a token that dies in flight.
const expirySlack = 30 * time.Second

// Transport is an http.RoundTripper that attaches the stored bearer token to
// every request. A request with no stored token fails with ErrAuthRequired
// before it is attempted. On a 401 it refreshes once and retries the original
// request once; a failed refresh clears stored credentials.
type Transport struct {
	base http.RoundTripper
	auth *Client
}

// NewTransport wraps base with bearer-token handling.
func NewTransport(auth *Client, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, auth: auth}
}

// HTTPClient returns an http.Client whose requests go through an
// authenticated transport.
func HTTPClient(auth *Client) *http.Client {
	return &http.Client{Transport: NewTransport(auth, nil)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tokens, err := t.auth.store.Load()
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, ErrAuthRequired
	}

	access := tokens.AccessToken
	if tokenExpired(access) {
		access, err = t.auth.Refresh(req.Context())
		if err != nil {
			return nil, err
		}
	}

	resp, err := t.base.RoundTrip(withBearer(req, access))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One refresh, one retry. A second 401 is returned as-is.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	access, err = t.auth.Refresh(req.Context())
	if err != nil {
		return nil, err
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(withBearer(retry, access))
}

// withBearer clones the request with the Authorization header set. The
// original request is never mutated, per the RoundTripper contract.
func withBearer(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

// rewind produces a replayable copy of a request for the post-refresh retry.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// tokenExpired inspects the access token's exp claim without verifying the
// signature; verification is the server's job. Opaque tokens pass through and
// rely on the 401 path instead.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < expirySlack
}
