package realtime

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/jpcontreras/vendia-backend/api/responses"
	pkgAuth "github.com/jpcontreras/vendia-backend/pkg/auth"
	"github.com/jpcontreras/vendia-backend/pkg/auth/session"
	"github.com/jpcontreras/vendia-backend/pkg/config"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

// ServeWS upgrades an authenticated request to a websocket session. Browsers
// cannot set an Authorization header on the upgrade, so the token may also
// ride in the `token` query parameter.
func ServeWS(hub *Hub, jwtCfg config.JWTConfig, rtCfg config.RealtimeConfig, checker session.AccessSessionChecker, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(rtCfg.AllowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessToken(jwtCfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}

		if checker != nil {
			ok, err := checker.HasSession(r.Context(), claims.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure to the client.
			if logg != nil {
				logg.Warn(r.Context(), "websocket upgrade failed")
			}
			return
		}

		hub.Register(claims.UserID, claims.Role, conn)

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"user_id":    claims.UserID.String(),
				"actor_role": string(claims.Role),
			})
			logg.Info(ctx, "websocket session opened")
		}
	}
}

func tokenFromRequest(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw != "" {
		return raw
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := map[string]struct{}{}
	for _, origin := range allowed {
		set[strings.ToLower(strings.TrimSpace(origin))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := strings.ToLower(strings.TrimSpace(r.Header.Get("Origin")))
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
