package services

import (
	"sort"

	"github.com/damione1/paginated-grid/internal/models"
)

// SubscriptionSync turns a plan into the minimal set of subscription
// updates by diffing against the last state known to the media session.
type SubscriptionSync struct {
	lastKnown          map[string]models.SubscriptionState
	recentSpeakerCount int
}

func NewSubscriptionSync(recentSpeakerCount int) *SubscriptionSync {
	return &SubscriptionSync{
		lastKnown:          make(map[string]models.SubscriptionState),
		recentSpeakerCount: recentSpeakerCount,
	}
}

func (s *SubscriptionSync) RecentSpeakerCount() int {
	return s.recentSpeakerCount
}

// Observe records a state reported by the media session.
func (s *SubscriptionSync) Observe(id string, state models.SubscriptionState) {
	if id == "" || id == models.LocalParticipantID {
		return
	}
	s.lastKnown[id] = state.Normalize()
}

// Forget drops everything known about id.
func (s *SubscriptionSync) Forget(id string) {
	delete(s.lastKnown, id)
}

// Current returns the last known state of id.
func (s *SubscriptionSync) Current(id string) models.SubscriptionState {
	return s.lastKnown[id].Normalize()
}

// Desired returns the tier every remote participant should be in. Recent
// speakers that are not subscribed are staged on top of the plan.
func (s *SubscriptionSync) Desired(plan models.SubscriptionPlan, participants []models.Participant) map[string]models.SubscriptionState {
	desired := make(map[string]models.SubscriptionState, len(participants))
	for _, p := range participants {
		if p.ID == models.LocalParticipantID || p.ID == "" {
			continue
		}
		desired[p.ID] = models.SubscriptionUnsubscribed
	}
	for _, id := range RecentSpeakerIDs(participants, s.recentSpeakerCount) {
		desired[id] = models.SubscriptionStaged
	}
	for _, id := range plan.Staged {
		desired[id] = models.SubscriptionStaged
	}
	for _, id := range plan.Subscribed {
		desired[id] = models.SubscriptionSubscribed
	}
	return desired
}

// Diff returns the updates needed to reach the desired state. An empty map
// means nothing has to be sent.
func (s *SubscriptionSync) Diff(plan models.SubscriptionPlan, participants []models.Participant) map[string]models.ParticipantUpdate {
	updates := make(map[string]models.ParticipantUpdate)
	for id, want := range s.Desired(plan, participants) {
		if s.Current(id) == want {
			continue
		}
		updates[id] = models.ParticipantUpdate{
			SetSubscribedTracks: models.SubscribedTracks{Video: want},
		}
	}
	return updates
}

// Commit marks updates as applied. Only call it after the media session
// accepted them.
func (s *SubscriptionSync) Commit(updates map[string]models.ParticipantUpdate) {
	for id, u := range updates {
		s.lastKnown[id] = u.SetSubscribedTracks.Video
	}
}

// RecentSpeakerIDs returns up to n remote participants that have spoken,
// newest first.
func RecentSpeakerIDs(participants []models.Participant, n int) []string {
	if n <= 0 {
		return nil
	}
	speakers := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if !p.IsLocal && p.LastActiveDate != nil {
			speakers = append(speakers, p)
		}
	}
	sort.SliceStable(speakers, func(i, j int) bool {
		return speakers[i].LastActiveDate.After(*speakers[j].LastActiveDate)
	})

	ids := make([]string, 0, min(n, len(speakers)))
	for i := 0; i < len(speakers) && i < n; i++ {
		ids = append(ids, speakers[i].ID)
	}
	return ids
}
