package handlers

import (
	"net/http"

	"github.com/damione1/paginated-grid/internal/services"
	"github.com/pocketbase/pocketbase/core"
)

// HandleMetrics returns call session metrics
func HandleMetrics(calls *services.CallManager) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		snapshot := calls.GetMetrics()
		return e.JSON(http.StatusOK, snapshot)
	}
}

// HandleHealth returns server health status
func HandleHealth(calls *services.CallManager) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		snapshot := calls.GetMetrics()

		status := http.StatusOK
		if snapshot.HealthStatus == "critical" {
			status = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":          snapshot.HealthStatus,
			"active_sessions": snapshot.ActiveSessions,
			"active_calls":    calls.Len(),
			"uptime_seconds":  snapshot.UptimeSeconds,
		}

		return e.JSON(status, response)
	}
}
