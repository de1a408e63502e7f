package services

import (
	"context"

	"github.com/damione1/paginated-grid/internal/models"
)

// MediaSession is the command side of the media transport. Implementations
// realise the intents; they are never retried by the core.
type MediaSession interface {
	// UpdateParticipants applies per-participant video subscription tiers.
	UpdateParticipants(ctx context.Context, updates map[string]models.ParticipantUpdate) error

	// UpdateReceiveSettings applies per-participant receive layers.
	UpdateReceiveSettings(ctx context.Context, settings models.ReceiveSettingsMap) error
}
