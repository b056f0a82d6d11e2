package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/jpcontreras/vendia-backend/api/responses"
	"github.com/jpcontreras/vendia-backend/pkg/config"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

const envHeader = "X-Vendia-Env"

// HealthPinger is implemented by every dependency the readiness endpoint checks.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks each wired dependency. A nil pinger is treated as not
// wired for this process and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]HealthPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		statuses := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				statuses[name] = "down"
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			statuses[name] = "up"
		}

		statuses["status"] = "ready"
		responses.WriteSuccess(w, statuses)
	}
}
