package models

// Subscription status labels used in call snapshots
const (
	StatusLocal        = "local"
	StatusSubscribed   = "subscribed"
	StatusStaged       = "staged"
	StatusUnsubscribed = "unsubscribed"
)

// ParticipantStatus is one row of the subscription listing.
type ParticipantStatus struct {
	Participant
	Subscription string `json:"subscription"`
	Playing      bool   `json:"playing"`
}

// CallSnapshot is a read-only view of one call session, taken from a single
// consistent store state.
type CallSnapshot struct {
	CallID          string              `json:"callId"`
	Version         uint64              `json:"version"`
	Dimensions      GridDimensions      `json:"dimensions"`
	Layout          GridLayout          `json:"layout"`
	Config          CallConfig          `json:"config"`
	ActiveSpeakerID string              `json:"activeSpeakerId,omitempty"`
	VisibleIDs      []string            `json:"visibleIds"`
	Plan            SubscriptionPlan    `json:"plan"`
	Participants    []ParticipantStatus `json:"participants"`
}
