package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

type healthCheck struct {
	name     string
	required bool
	// ping is nil when the dependency is not configured.
	ping func(ctx context.Context) error
}

type HealthHandler struct {
	checks []healthCheck
}

// NewHealthHandler checks the database, which the API cannot run without, and
// Redis, which only backs background tasks. A nil redis client reports the
// queue as disabled.
func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	checks := []healthCheck{{
		name:     "database",
		required: true,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	redisCheck := healthCheck{name: "redis"}
	if rdb != nil {
		redisCheck.ping = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	checks = append(checks, redisCheck)

	return &HealthHandler{checks: checks}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health answers 503 only when a required dependency is down. Optional
// dependencies degrade the status without failing the probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Services: make(map[string]string, len(h.checks))}

	for _, check := range h.checks {
		if check.ping == nil {
			resp.Services[check.name] = "disabled"
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.ping(ctx)
		cancel()

		switch {
		case err == nil:
			resp.Services[check.name] = "healthy"
		case check.required:
			resp.Services[check.name] = "unhealthy"
			resp.Status = "unhealthy"
		default:
			resp.Services[check.name] = "unhealthy"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		}
	}

	statusCode := http.StatusOK
	if resp.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, resp)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
