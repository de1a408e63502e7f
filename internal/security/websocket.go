package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/damione1/paginated-grid/internal/models"
)

// Media event action validation
var validEventActions = map[string]bool{
	models.EventParticipantJoined:      true,
	models.EventParticipantUpdated:     true,
	models.EventParticipantLeft:        true,
	models.EventActiveSpeakerChange:    true,
	models.EventReceiveSettingsUpdated: true,
	models.EventTrackStarted:           true,
	models.EventTrackStopped:           true,
}

// IsValidEventAction checks if a media event action is known
func IsValidEventAction(action string) bool {
	return validEventActions[action]
}

// Track events only feed the play/pause side table, so they are the only
// actions a rate limiter may drop.
var throttledEventActions = map[string]bool{
	models.EventTrackStarted: true,
	models.EventTrackStopped: true,
}

// IsThrottledEventAction reports whether action is subject to rate limiting
func IsThrottledEventAction(action string) bool {
	return throttledEventActions[action]
}

// RateLimiter provides per-connection rate limiting for inbound events
type RateLimiter struct {
	mu        sync.Mutex
	tokens    map[string]int
	lastReset time.Time
	maxTokens int
	window    time.Duration
}

// NewRateLimiter creates a new rate limiter
// maxTokens: maximum events per window
// window: time window for rate limiting (e.g., 1 second)
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:    make(map[string]int),
		lastReset: time.Now(),
		maxTokens: maxTokens,
		window:    window,
	}
}

// Allow checks if a connection is allowed to deliver another event
// Returns true if allowed, false if rate limit exceeded
func (rl *RateLimiter) Allow(connID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Reset tokens if window has elapsed
	if time.Since(rl.lastReset) > rl.window {
		rl.tokens = make(map[string]int)
		rl.lastReset = time.Now()
	}

	rl.tokens[connID]++
	return rl.tokens[connID] <= rl.maxTokens
}

// Remove cleans up rate limiter state for a disconnected connection
func (rl *RateLimiter) Remove(connID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.tokens, connID)
}

// OriginValidator validates WebSocket connection origins
type OriginValidator struct {
	allowedPatterns []string
}

// NewOriginValidator creates a new origin validator
func NewOriginValidator(patterns []string) *OriginValidator {
	return &OriginValidator{
		allowedPatterns: patterns,
	}
}

// GetAcceptOptions returns websocket.AcceptOptions with origin patterns
func (ov *OriginValidator) GetAcceptOptions() *websocket.AcceptOptions {
	return &websocket.AcceptOptions{
		OriginPatterns: ov.allowedPatterns,
	}
}

// ValidateMediaEvent checks the payload an action needs and sanitizes the
// participant descriptor in place
func ValidateMediaEvent(event *models.MediaEvent) error {
	if event == nil {
		return fmt.Errorf("empty event")
	}
	if !IsValidEventAction(event.Action) {
		return fmt.Errorf("unknown event action %q", event.Action)
	}

	switch event.Action {
	case models.EventParticipantJoined, models.EventParticipantUpdated, models.EventParticipantLeft,
		models.EventTrackStarted, models.EventTrackStopped:
		if event.Participant == nil {
			return fmt.Errorf("%s event must carry a participant", event.Action)
		}
		if err := ValidateParticipantID(event.Participant.ParticipantID()); err != nil {
			return err
		}
		event.Participant.UserName = SanitizeDisplayName(event.Participant.UserName)
		if err := validateTracks(&event.Participant.Tracks); err != nil {
			return err
		}

	case models.EventActiveSpeakerChange:
		// A missing or empty speaker is valid: it clears the pending speaker
		if event.ActiveSpeaker != nil && event.ActiveSpeaker.PeerID != "" {
			if err := ValidateParticipantID(event.ActiveSpeaker.PeerID); err != nil {
				return err
			}
		}

	case models.EventReceiveSettingsUpdated:
		for id, s := range event.ReceiveSettings {
			if err := ValidateParticipantID(id); err != nil {
				return err
			}
			if s.Video.Layer < 0 || s.Video.Layer > 2 {
				return fmt.Errorf("layer out of range for %s: %d", id, s.Video.Layer)
			}
		}
	}

	return nil
}

func validateTracks(tracks *models.ParticipantTracks) error {
	for _, t := range []*models.TrackInfo{tracks.Audio, tracks.Video} {
		if t == nil || t.Subscribed == "" {
			continue
		}
		if !t.Subscribed.IsValid() {
			return fmt.Errorf("invalid subscription state %q", t.Subscribed)
		}
	}
	return nil
}
