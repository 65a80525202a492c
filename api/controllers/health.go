package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/moviegate/moviegate-backend/api/responses"
	"github.com/moviegate/moviegate-backend/pkg/config"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessDeps lists the dependencies probed by the readiness endpoint.
// Nil entries are skipped so partial deployments still report.
type ReadinessDeps struct {
	DB     pinger
	Redis  pinger
	GCS    pinger
	Stripe config.StripeConfig
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MovieGate-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, deps ReadinessDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MovieGate-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		probe := func(name string, p pinger) {
			if p == nil {
				checks[name] = "skipped"
				return
			}
			if err := p.Ping(ctx); err != nil {
				healthy = false
				checks[name] = "down"
				if logg != nil {
					logg.Error(ctx, "readiness probe failed: "+name, err)
				}
				return
			}
			checks[name] = "ok"
		}

		probe("database", deps.DB)
		probe("redis", deps.Redis)
		probe("gcs", deps.GCS)

		if deps.Stripe.APIKey == "" {
			healthy = false
			checks["stripe"] = "unconfigured"
		} else {
			checks["stripe"] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(map[string]any{"checks": checks})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
