package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/mysocial-labs/relay/pkg/database"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health. The database is load-bearing for
// every component, so a database failure is unhealthy (503); a cache or
// event log failure degrades the relay but reads still work.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if s.pool == nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: "not configured"}
	} else if _, err := database.Health(reqCtx, s.pool); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.cache == nil {
		degrade(&status)
		checks["cache"] = HealthCheck{Status: healthStatusDegraded, Message: "not configured"}
	} else if err := s.cache.Ping(reqCtx); err != nil {
		degrade(&status)
		checks["cache"] = HealthCheck{Status: healthStatusDegraded, Message: err.Error()}
	} else {
		checks["cache"] = HealthCheck{Status: healthStatusHealthy}
	}

	if err := s.checkEventLog(reqCtx); err != nil {
		degrade(&status)
		checks["event_log"] = HealthCheck{Status: healthStatusDegraded, Message: err.Error()}
	} else {
		checks["event_log"] = HealthCheck{Status: healthStatusHealthy}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status: status,
		Checks: checks,
	})
}

func degrade(status *string) {
	if *status == healthStatusHealthy {
		*status = healthStatusDegraded
	}
}
