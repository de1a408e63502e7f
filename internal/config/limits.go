package config

import "time"

// Grid geometry
const (
	MinTileWidth           = 280
	DefaultAspectRatio     = 16.0 / 9.0
	DefaultMaxTilesPerPage = 12
)

// Bandwidth layers, coarsest first
const (
	LayerLow    = 0
	LayerMedium = 1
	LayerHigh   = 2

	// Visible tile counts below which a finer layer is recommended
	HighLayerMaxVisible   = 5
	MediumLayerMaxVisible = 10
)

// Coalescing and subscription policy
const (
	// Quiet period before the trailing subscription plan is sent
	SubscriptionDebounce = 50 * time.Millisecond

	// One layout recomputation per rendering frame (~60fps)
	FrameInterval = 16 * time.Millisecond

	// Most recent remote speakers kept staged regardless of page
	MaxRecentSpeakerCount = 6
)

// Media session bridge limits
const (
	// Connection limits
	MaxCallsPerInstance = 1000

	// Rate limiting
	MaxEventsPerSecond = 200
	RateLimitWindow    = time.Second

	// Timeouts
	WriteTimeout = 10 * time.Second // also bounds the wait for a pong
	PingInterval = 30 * time.Second

	// Channel buffers
	BridgeSendBufferSize   = 256
	SessionEventBufferSize = 512
	SessionControlBuffer   = 64
)
