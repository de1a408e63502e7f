package models

// SubscriptionState is the desired or reported video subscription tier.
type SubscriptionState string

const (
	SubscriptionSubscribed   SubscriptionState = "subscribed"
	SubscriptionStaged       SubscriptionState = "staged"
	SubscriptionUnsubscribed SubscriptionState = "unsubscribed"
)

// Normalize maps the empty (never reported) state to unsubscribed.
func (s SubscriptionState) Normalize() SubscriptionState {
	if s == "" {
		return SubscriptionUnsubscribed
	}
	return s
}

func (s SubscriptionState) IsValid() bool {
	switch s {
	case SubscriptionSubscribed, SubscriptionStaged, SubscriptionUnsubscribed:
		return true
	}
	return false
}

// SubscriptionPlan is derived from one store snapshot. Subscribed and Staged
// are disjoint and keep grid order; every other remote id is unsubscribed.
type SubscriptionPlan struct {
	Subscribed []string       `json:"subscribed"`
	Staged     []string       `json:"staged"`
	Layers     map[string]int `json:"layers"`
}

// SameCandidates reports whether both plans select the same tiers in the
// same order. Layers are not compared.
func (p SubscriptionPlan) SameCandidates(o SubscriptionPlan) bool {
	return equalIDs(p.Subscribed, o.Subscribed) && equalIDs(p.Staged, o.Staged)
}

// StateOf returns the tier the plan assigns to id.
func (p SubscriptionPlan) StateOf(id string) SubscriptionState {
	for _, s := range p.Subscribed {
		if s == id {
			return SubscriptionSubscribed
		}
	}
	for _, s := range p.Staged {
		if s == id {
			return SubscriptionStaged
		}
	}
	return SubscriptionUnsubscribed
}

// VideoReceiveSettings selects the simulcast layer for a video track.
type VideoReceiveSettings struct {
	Layer int `json:"layer" msgpack:"layer"`
}

type ReceiveSettings struct {
	Video VideoReceiveSettings `json:"video" msgpack:"video"`
}

// ReceiveSettingsMap is keyed by participant id.
type ReceiveSettingsMap map[string]ReceiveSettings

// SubscribedTracks is the per-participant subscription command body.
type SubscribedTracks struct {
	Video SubscriptionState `json:"video"`
}

type ParticipantUpdate struct {
	SetSubscribedTracks SubscribedTracks `json:"setSubscribedTracks"`
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
