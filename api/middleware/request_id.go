package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags the response and every log line with a request ID, honoring
// one supplied by the caller.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), reqID)))
		})
	}
}
