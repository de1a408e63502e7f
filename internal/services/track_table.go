package services

import "github.com/damione1/paginated-grid/internal/models"

// TrackTable keeps the latest reported video track per participant. It only
// drives play/pause and status listings; subscription decisions never read it.
type TrackTable struct {
	videoTracks map[string]models.TrackInfo
}

func NewTrackTable() *TrackTable {
	return &TrackTable{videoTracks: make(map[string]models.TrackInfo)}
}

// Apply records the video track carried by event, if any.
func (t *TrackTable) Apply(event *models.MediaEvent) {
	if event == nil || event.Participant == nil {
		return
	}
	id := event.Participant.ParticipantID()

	switch event.Action {
	case models.EventTrackStarted, models.EventTrackStopped:
		if event.Track == nil || event.Track.Kind != models.TrackKindVideo {
			return
		}
		t.set(id, event.Participant.Tracks.Video)
	case models.EventParticipantUpdated:
		t.set(id, event.Participant.Tracks.Video)
	case models.EventParticipantLeft:
		delete(t.videoTracks, id)
	}
}

func (t *TrackTable) set(id string, track *models.TrackInfo) {
	if track == nil {
		delete(t.videoTracks, id)
		return
	}
	t.videoTracks[id] = *track
}

// Video returns the last known video track of id.
func (t *TrackTable) Video(id string) (models.TrackInfo, bool) {
	track, ok := t.videoTracks[id]
	return track, ok
}

// Status returns the reported subscription state of id's video track.
func (t *TrackTable) Status(id string) models.SubscriptionState {
	return t.videoTracks[id].Subscribed.Normalize()
}

func (t *TrackTable) Len() int {
	return len(t.videoTracks)
}
