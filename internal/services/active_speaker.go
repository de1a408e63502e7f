package services

import (
	"log"
	"sort"

	"github.com/damione1/paginated-grid/internal/models"
)

// ActiveSpeakerCoordinator keeps the current speaker on page 1 by swapping
// them with the least recently active visible remote participant.
type ActiveSpeakerCoordinator struct {
	store *ParticipantStore
}

func NewActiveSpeakerCoordinator(store *ParticipantStore) *ActiveSpeakerCoordinator {
	return &ActiveSpeakerCoordinator{store: store}
}

// HandleActiveSpeaker performs at most one swap and returns the id that was
// moved off page 1.
func (c *ActiveSpeakerCoordinator) HandleActiveSpeaker(speakerID string, page int, visible []models.Participant) (evictedID string, swapped bool) {
	if speakerID == "" || page > 1 {
		return "", false
	}
	for _, p := range visible {
		if p.ID == speakerID {
			return "", false
		}
	}

	candidate, ok := LeastRecentlyActive(visible)
	if !ok {
		return "", false
	}

	if !c.store.SwapPosition(candidate.ID, speakerID) {
		return "", false
	}
	log.Printf("🔀 Promoted active speaker %s to page 1 (evicted %s)", speakerID, candidate.ID)
	return candidate.ID, true
}

// LeastRecentlyActive returns the remote participant with the oldest
// lastActiveDate. Participants that never spoke count as oldest; ties keep
// grid order.
func LeastRecentlyActive(participants []models.Participant) (models.Participant, bool) {
	remote := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if !p.IsLocal {
			remote = append(remote, p)
		}
	}
	if len(remote) == 0 {
		return models.Participant{}, false
	}

	sort.SliceStable(remote, func(i, j int) bool {
		a, b := remote[i].LastActiveDate, remote[j].LastActiveDate
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return remote[0], true
}
