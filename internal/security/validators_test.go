package security_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/damione1/paginated-grid/internal/models"
	"github.com/damione1/paginated-grid/internal/security"
)

func TestValidateParticipantID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"local sentinel", "local", false},
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"uuid uppercase", "550E8400-E29B-41D4-A716-446655440000", false},
		{"opaque id", "user_42-abc", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"spaces", "user 42", true},
		{"sql injection", "' OR '1'='1", true},
		{"xss attempt", "<script>alert('xss')</script>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidateParticipantID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCallID(t *testing.T) {
	assert.NoError(t, security.ValidateCallID("standup-2025"))
	assert.Error(t, security.ValidateCallID(""))
	assert.Error(t, security.ValidateCallID("../etc/passwd"))
	assert.Error(t, security.ValidateCallID(strings.Repeat("c", 129)))
}

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Alice", "Alice"},
		{"trims", "  Bob  ", "Bob"},
		{"drops control characters", "Ca\x00rol\n", "Carol"},
		{"keeps unicode", "Zoë 🎤", "Zoë 🎤"},
		{"truncates", strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, security.SanitizeDisplayName(tt.input))
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "", security.SanitizeErrorMessage(nil))
	assert.Equal(t, "call not found", security.SanitizeErrorMessage(errors.New("call not found")))
	assert.NotContains(t, security.SanitizeErrorMessage(errors.New("dial tcp 10.0.0.1:6379: connection refused")), "10.0.0.1")
}

func TestValidateMediaEvent(t *testing.T) {
	participant := func(id string) *models.ParticipantDescriptor {
		return &models.ParticipantDescriptor{UserID: id, UserName: " Alice\t"}
	}

	t.Run("accepts and sanitizes a join", func(t *testing.T) {
		event := &models.MediaEvent{Action: models.EventParticipantJoined, Participant: participant("alice")}

		assert.NoError(t, security.ValidateMediaEvent(event))
		assert.Equal(t, "Alice", event.Participant.UserName)
	})

	tests := []struct {
		name  string
		event *models.MediaEvent
	}{
		{"nil event", nil},
		{"unknown action", &models.MediaEvent{Action: "explode"}},
		{"join without participant", &models.MediaEvent{Action: models.EventParticipantJoined}},
		{"bad participant id", &models.MediaEvent{Action: models.EventParticipantLeft, Participant: participant("a b")}},
		{"bad subscription state", &models.MediaEvent{
			Action: models.EventParticipantUpdated,
			Participant: &models.ParticipantDescriptor{
				UserID: "alice",
				Tracks: models.ParticipantTracks{Video: &models.TrackInfo{State: models.TrackStatePlayable, Subscribed: "maybe"}},
			},
		}},
		{"bad speaker id", &models.MediaEvent{
			Action:        models.EventActiveSpeakerChange,
			ActiveSpeaker: &models.ActiveSpeaker{PeerID: "<b>"},
		}},
		{"layer out of range", &models.MediaEvent{
			Action:          models.EventReceiveSettingsUpdated,
			ReceiveSettings: models.ReceiveSettingsMap{"alice": {Video: models.VideoReceiveSettings{Layer: 3}}},
		}},
	}

	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			assert.Error(t, security.ValidateMediaEvent(tt.event))
		})
	}

	t.Run("empty speaker is valid", func(t *testing.T) {
		assert.NoError(t, security.ValidateMediaEvent(&models.MediaEvent{Action: models.EventActiveSpeakerChange}))
	})
}

func TestIsThrottledEventAction(t *testing.T) {
	assert.True(t, security.IsThrottledEventAction(models.EventTrackStarted))
	assert.True(t, security.IsThrottledEventAction(models.EventTrackStopped))

	for _, action := range []string{
		models.EventParticipantJoined,
		models.EventParticipantUpdated,
		models.EventParticipantLeft,
		models.EventActiveSpeakerChange,
		models.EventReceiveSettingsUpdated,
	} {
		assert.False(t, security.IsThrottledEventAction(action), action)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("limits per connection", func(t *testing.T) {
		rl := security.NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("conn-1"))
		}
		assert.False(t, rl.Allow("conn-1"))
		assert.True(t, rl.Allow("conn-2"))
	})

	t.Run("remove resets a connection", func(t *testing.T) {
		rl := security.NewRateLimiter(1, time.Minute)
		rl.Allow("conn-1")

		rl.Remove("conn-1")

		assert.True(t, rl.Allow("conn-1"))
	})

	t.Run("window resets the budget", func(t *testing.T) {
		rl := security.NewRateLimiter(1, 10*time.Millisecond)
		rl.Allow("conn-1")
		assert.False(t, rl.Allow("conn-1"))

		time.Sleep(20 * time.Millisecond)

		assert.True(t, rl.Allow("conn-1"))
	})
}

func TestOriginValidator(t *testing.T) {
	opts := security.NewOriginValidator([]string{"grid.example.com"}).GetAcceptOptions()

	assert.Equal(t, []string{"grid.example.com"}, opts.OriginPatterns)
}
