package models

// TrackState mirrors the media session's track lifecycle.
type TrackState string

const (
	TrackStateBlocked     TrackState = "blocked"
	TrackStateOff         TrackState = "off"
	TrackStateSendable    TrackState = "sendable"
	TrackStateLoading     TrackState = "loading"
	TrackStateInterrupted TrackState = "interrupted"
	TrackStatePlayable    TrackState = "playable"
)

// TrackInfo is the per-track part of a participant descriptor.
type TrackInfo struct {
	State      TrackState        `json:"state" msgpack:"state"`
	Subscribed SubscriptionState `json:"subscribed,omitempty" msgpack:"subscribed,omitempty"`
}

func (t *TrackInfo) IsOff() bool {
	return t != nil && (t.State == TrackStateOff || t.State == TrackStateBlocked)
}

func (t *TrackInfo) IsLoading() bool {
	return t != nil && t.State == TrackStateLoading
}

// IsPlayable is what the tile uses to decide between play and pause.
func (t *TrackInfo) IsPlayable() bool {
	return t != nil && t.State == TrackStatePlayable
}

type ParticipantTracks struct {
	Audio *TrackInfo `json:"audio,omitempty" msgpack:"audio,omitempty"`
	Video *TrackInfo `json:"video,omitempty" msgpack:"video,omitempty"`
}

// ParticipantDescriptor is the participant payload delivered by the media
// session on join/update/leave and track events.
type ParticipantDescriptor struct {
	SessionID string            `json:"session_id" msgpack:"session_id"`
	UserID    string            `json:"user_id" msgpack:"user_id"`
	UserName  string            `json:"user_name" msgpack:"user_name"`
	Local     bool              `json:"local" msgpack:"local"`
	Owner     bool              `json:"owner" msgpack:"owner"`
	Tracks    ParticipantTracks `json:"tracks" msgpack:"tracks"`
}

// ParticipantID returns the store id: the local sentinel for the local user,
// the user id otherwise.
func (d *ParticipantDescriptor) ParticipantID() string {
	if d.Local {
		return LocalParticipantID
	}
	return d.UserID
}
