package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/jpcontreras/vendia-backend/api/responses"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	pkgredis "github.com/jpcontreras/vendia-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotentRoute matches a chi route pattern either exactly or by
// prefix+suffix (for patterns with an ID segment in the middle).
type idempotentRoute struct {
	method string
	exact  string
	prefix string
	suffix string
	ttl    time.Duration
}

func (r idempotentRoute) matches(method, pattern string) bool {
	if r.method != method {
		return false
	}
	if r.exact != "" {
		return pattern == r.exact
	}
	return strings.HasPrefix(pattern, r.prefix) && strings.HasSuffix(pattern, r.suffix)
}

// Money-adjacent routes get the long TTL so a retried client cannot double
// submit across a weekend outage. Everything else keeps the default day.
var idempotentRoutes = []idempotentRoute{
	{method: http.MethodPost, exact: "/api/v1/auth/register", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/notifications/", suffix: "/read", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/v1/notifications/read-all", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/admin/v1/products", ttl: defaultIdempotencyTTL},

	{method: http.MethodPost, exact: "/api/v1/orders", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/cancel", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/payments", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/orders/", suffix: "/approve", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/orders/", suffix: "/reject", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/orders/", suffix: "/complete", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/payments/", suffix: "/verify", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/payments/", suffix: "/reject", ttl: criticalIdempotencyTTL},
}

func idempotencyTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if route.matches(method, pattern) {
			return route.ttl, true
		}
	}
	return 0, false
}

// storedResponse is the replayable snapshot of a handled request.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a mutating request repeats an
// Idempotency-Key, and rejects the key when it arrives with a different body.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ttl, guarded := idempotencyTTL(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idempotencyKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			scope := strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|")
			key := store.IdempotencyKey(scope, idempotencyKey)

			prior, err := store.Get(ctx, key)
			if err != nil && !errors.Is(err, redis.Nil) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if prior != "" {
				replayStored(ctx, logg, w, prior, requestHash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if err := persistResponse(r, store, key, capture, requestHash, ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, prior, requestHash string) {
	var record storedResponse
	if err := json.Unmarshal([]byte(prior), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func persistResponse(r *http.Request, store pkgredis.IdempotencyStore, key string, capture *responseCapture, requestHash string, ttl time.Duration) error {
	record := storedResponse{
		Status:      capture.statusOrOK(),
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = store.SetNX(r.Context(), key, string(payload), ttl)
	return err
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
