package models

// MediaEvent is one inbound event from the media session bridge.
type MediaEvent struct {
	Action          string                 `json:"action" msgpack:"action"`
	Participant     *ParticipantDescriptor `json:"participant,omitempty" msgpack:"participant,omitempty"`
	ActiveSpeaker   *ActiveSpeaker         `json:"activeSpeaker,omitempty" msgpack:"activeSpeaker,omitempty"`
	ReceiveSettings ReceiveSettingsMap     `json:"receiveSettings,omitempty" msgpack:"receiveSettings,omitempty"`
	Track           *TrackDescriptor       `json:"track,omitempty" msgpack:"track,omitempty"`
}

type ActiveSpeaker struct {
	PeerID string `json:"peerId" msgpack:"peerId"`
}

type TrackDescriptor struct {
	Kind string `json:"kind" msgpack:"kind"`
}

const TrackKindVideo = "video"

// Media session → core event actions
const (
	EventParticipantJoined      = "participant-joined"
	EventParticipantUpdated     = "participant-updated"
	EventParticipantLeft        = "participant-left"
	EventActiveSpeakerChange    = "active-speaker-change"
	EventReceiveSettingsUpdated = "receive-settings-updated"
	EventTrackStarted           = "track-started"
	EventTrackStopped           = "track-stopped"
)

// Core → media session command types
const (
	CmdUpdateParticipants    = "update-participants"
	CmdUpdateReceiveSettings = "update-receive-settings"
)

// MediaCommand is one outbound command to the media session bridge.
type MediaCommand struct {
	Type            string                       `json:"type"`
	Updates         map[string]ParticipantUpdate `json:"updates,omitempty"`
	ReceiveSettings ReceiveSettingsMap           `json:"receiveSettings,omitempty"`
}
