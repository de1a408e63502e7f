package services

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/damione1/paginated-grid/internal/config"
)

// Metrics tracks call session activity and media session command traffic
type Metrics struct {
	// Session metrics
	activeSessions int64
	totalSessions  int64

	// Inbound metrics
	eventsReceived int64
	eventsDropped  int64
	transitions    int64
	lastEventTime  int64 // Unix timestamp

	// Outbound metrics
	subscriptionCommands int64
	layerCommands        int64
	commandErrors        int64
	speakerSwaps         int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// Session tracking
func (m *Metrics) IncrementSessions() {
	atomic.AddInt64(&m.activeSessions, 1)
	atomic.AddInt64(&m.totalSessions, 1)
}

func (m *Metrics) DecrementSessions() {
	atomic.AddInt64(&m.activeSessions, -1)
}

// Inbound tracking
func (m *Metrics) IncrementEventsReceived() {
	atomic.AddInt64(&m.eventsReceived, 1)
	atomic.StoreInt64(&m.lastEventTime, time.Now().Unix())
}

func (m *Metrics) IncrementEventsDropped() {
	atomic.AddInt64(&m.eventsDropped, 1)
}

func (m *Metrics) IncrementTransitions() {
	atomic.AddInt64(&m.transitions, 1)
}

// Outbound tracking
func (m *Metrics) IncrementSubscriptionCommands() {
	atomic.AddInt64(&m.subscriptionCommands, 1)
}

func (m *Metrics) IncrementLayerCommands() {
	atomic.AddInt64(&m.layerCommands, 1)
}

func (m *Metrics) IncrementCommandErrors() {
	atomic.AddInt64(&m.commandErrors, 1)
}

func (m *Metrics) IncrementSpeakerSwaps() {
	atomic.AddInt64(&m.speakerSwaps, 1)
}

// MetricsSnapshot represents a point-in-time view of metrics
type MetricsSnapshot struct {
	// Session metrics
	ActiveSessions int64 `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`

	// Inbound metrics
	EventsReceived  int64   `json:"events_received"`
	EventsDropped   int64   `json:"events_dropped"`
	Transitions     int64   `json:"transitions"`
	EventsPerSecond float64 `json:"events_per_second"`
	LastEventTime   string  `json:"last_event_time"`

	// Outbound metrics
	SubscriptionCommands int64 `json:"subscription_commands"`
	LayerCommands        int64 `json:"layer_commands"`
	CommandErrors        int64 `json:"command_errors"`
	SpeakerSwaps         int64 `json:"speaker_swaps"`

	// Resource metrics
	UptimeSeconds int64  `json:"uptime_seconds"`
	MemoryUsageMB uint64 `json:"memory_usage_mb"`
	NumGoroutines int    `json:"num_goroutines"`

	HealthStatus string `json:"health_status"`
}

// Snapshot returns a point-in-time view of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(m.startTime)
	eventsPerSec := 0.0
	if secs := uptime.Seconds(); secs > 0 {
		eventsPerSec = float64(atomic.LoadInt64(&m.eventsReceived)) / secs
	}

	lastEvent := atomic.LoadInt64(&m.lastEventTime)
	lastEventStr := "never"
	if lastEvent > 0 {
		lastEventStr = time.Unix(lastEvent, 0).Format(time.RFC3339)
	}

	return MetricsSnapshot{
		ActiveSessions:       atomic.LoadInt64(&m.activeSessions),
		TotalSessions:        atomic.LoadInt64(&m.totalSessions),
		EventsReceived:       atomic.LoadInt64(&m.eventsReceived),
		EventsDropped:        atomic.LoadInt64(&m.eventsDropped),
		Transitions:          atomic.LoadInt64(&m.transitions),
		EventsPerSecond:      eventsPerSec,
		LastEventTime:        lastEventStr,
		SubscriptionCommands: atomic.LoadInt64(&m.subscriptionCommands),
		LayerCommands:        atomic.LoadInt64(&m.layerCommands),
		CommandErrors:        atomic.LoadInt64(&m.commandErrors),
		SpeakerSwaps:         atomic.LoadInt64(&m.speakerSwaps),
		UptimeSeconds:        int64(uptime.Seconds()),
		MemoryUsageMB:        memStats.Alloc / 1024 / 1024,
		NumGoroutines:        runtime.NumGoroutine(),
		HealthStatus:         m.calculateHealthStatus(),
	}
}

// calculateHealthStatus determines overall system health
func (m *Metrics) calculateHealthStatus() string {
	sessions := atomic.LoadInt64(&m.activeSessions)
	errors := atomic.LoadInt64(&m.commandErrors)

	// Critical: over 90% of the call capacity
	if sessions > config.MaxCallsPerInstance*9/10 {
		return "critical"
	}

	// Warning: over 80% capacity or repeated command failures
	if sessions > config.MaxCallsPerInstance*8/10 || errors > 100 {
		return "warning"
	}

	return "healthy"
}
