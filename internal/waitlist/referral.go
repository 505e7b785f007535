package waitlist

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/circl-ai/circl/pkg/metrics"
)

const (
	codeLength      = 8
	codeMaxAttempts = 10
	randCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// codeChecker is the collision check needed by code generation. Satisfied by
// *Repository.
type codeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// generateCode builds a referral code candidate from an email-derived hash
// fragment, a timestamp fragment, and random characters. The mix keeps codes
// readable while making collisions rare; uniqueness is still enforced by a
// database check.
func generateCode(email string, now time.Time) (string, error) {
	hash := alnumOnly(base64.StdEncoding.EncodeToString([]byte(email)))
	if len(hash) > 4 {
		hash = hash[:4]
	}

	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > 4 {
		ts = ts[len(ts)-4:]
	}

	random, err := randomChars(2)
	if err != nil {
		return "", err
	}

	code := strings.ToUpper(hash + ts + random)
	if len(code) > codeLength {
		code = code[:codeLength]
	}
	return code, nil
}

// generateUniqueCode retries generation against the collision check, bounded
// at ten attempts.
func generateUniqueCode(ctx context.Context, checker codeChecker, email string) (string, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code, err := generateCode(email, time.Now())
		if err != nil {
			return "", err
		}

		exists, err := checker.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		metrics.ReferralCodeRetriesTotal.Inc()
	}
	return "", fmt.Errorf("failed to generate unique referral code after %d attempts", codeMaxAttempts)
}

func randomChars(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(randCharset))))
		if err != nil {
			return "", fmt.Errorf("random int: %w", err)
		}
		out[i] = randCharset[idx.Int64()]
	}
	return string(out), nil
}

func alnumOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
