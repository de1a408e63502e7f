package services

import (
	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/models"
)

// VisibleParticipants returns the tiles shown on page. The last page is
// always filled by pulling from the end instead of rendering a short page.
func VisibleParticipants(participants []models.Participant, page, pageSize int) []models.Participant {
	if pageSize < 1 {
		pageSize = 1
	}
	page = max(page, 1)
	n := len(participants)

	if n-page*pageSize > 0 {
		return participants[(page-1)*pageSize : page*pageSize]
	}
	return participants[max(0, n-pageSize):]
}

// RecommendLayer picks the receive layer for the number of visible tiles:
// fewer tiles get a finer layer.
func RecommendLayer(visibleCount int) int {
	switch {
	case visibleCount < config.HighLayerMaxVisible:
		return config.LayerHigh
	case visibleCount < config.MediumLayerMaxVisible:
		return config.LayerMedium
	default:
		return config.LayerLow
	}
}

// PlanSubscriptions derives the subscribed and staged sets for the current
// page. Visible tiles inside the candidate window are subscribed, the rest of
// the window is staged, everything else is implicitly unsubscribed. The local
// user never appears in the plan.
func PlanSubscriptions(participants []models.Participant, page, pageSize int) models.SubscriptionPlan {
	if pageSize < 1 {
		pageSize = 1
	}
	pages := PageCount(len(participants), pageSize)
	page = min(max(page, 1), pages)

	visible := VisibleParticipants(participants, page, pageSize)
	visibleIDs := make(map[string]bool, len(visible))
	for _, p := range visible {
		visibleIDs[p.ID] = true
	}

	plan := models.SubscriptionPlan{
		Subscribed: []string{},
		Staged:     []string{},
		Layers:     make(map[string]int, len(visible)),
	}

	for _, p := range candidateWindow(participants, page, pageSize) {
		if p.ID == models.LocalParticipantID {
			continue
		}
		if visibleIDs[p.ID] {
			plan.Subscribed = append(plan.Subscribed, p.ID)
		} else {
			plan.Staged = append(plan.Staged, p.ID)
		}
	}

	layer := RecommendLayer(len(visible))
	for _, p := range visible {
		if p.ID == models.LocalParticipantID {
			continue
		}
		plan.Layers[p.ID] = layer
	}

	return plan
}

// candidateWindow returns at most 3*pageSize participants around the current
// page: the next page on page 1, the previous page on the last page, one page
// on each side otherwise.
func candidateWindow(participants []models.Participant, page, pageSize int) []models.Participant {
	n := len(participants)
	maxSubs := 3 * pageSize
	edge := min(maxSubs, 2*pageSize)

	switch page {
	case 1:
		return participants[:min(edge, n)]
	case PageCount(n, pageSize):
		return participants[max(0, n-edge):]
	default:
		buffer := (maxSubs - pageSize) / 2
		lo := max(0, (page-1)*pageSize-buffer)
		hi := min(n, page*pageSize+buffer)
		return participants[lo:hi]
	}
}
