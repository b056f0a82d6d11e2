package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpcontreras/vendia-backend/api/responses"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy defines the throttling parameters for a traffic surface.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy with the supplied window and limits.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	policy := AuthRateLimitPolicy{
		name:       strings.ToLower(strings.TrimSpace(name)),
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
	if policy.name == "" {
		policy.name = "auth"
	}
	return policy
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// limitCounter is one counter to bump for a request: the caller's IP or the
// hashed target email.
type limitCounter struct {
	scope string
	key   string
	limit int64
}

// AuthRateLimit throttles credential endpoints per client IP and per target
// email, so a single mailbox cannot be hammered from rotating addresses.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			counters, err := buildCounters(policy, r)
			if err != nil {
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}

			for _, counter := range counters {
				count, err := store.IncrWithTTL(ctx, counter.key, policy.window)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > counter.limit {
					blockRequest(ctx, logg, w, policy, counter, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func buildCounters(policy AuthRateLimitPolicy, r *http.Request) ([]limitCounter, error) {
	counters := make([]limitCounter, 0, 2)

	if policy.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			counters = append(counters, limitCounter{
				scope: "ip",
				key:   fmt.Sprintf("rl:ip:%s:%s", policy.name, ip),
				limit: int64(policy.ipLimit),
			})
		}
	}

	if policy.emailLimit > 0 {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if email := emailFromBody(body); email != "" {
			counters = append(counters, limitCounter{
				scope: "email",
				key:   fmt.Sprintf("rl:email:%s:%s", policy.name, hashValue(email)),
				limit: int64(policy.emailLimit),
			})
		}
	}

	return counters, nil
}

func blockRequest(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, counter limitCounter, count int64) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          counter.scope,
			"policy":         policy.name,
			"attempts":       count,
			"limit":          counter.limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
