package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/damione1/paginated-grid/internal/models"
)

// ErrUnknownAction is returned for an action kind the reducer does not know.
// It indicates a programming defect and must not be swallowed.
var ErrUnknownAction = errors.New("unknown participant action")

type ActionType string

const (
	ActionParticipantJoined  ActionType = "participant-joined"
	ActionParticipantUpdated ActionType = "participant-updated"
	ActionParticipantLeft    ActionType = "participant-left"
	ActionSwapPosition       ActionType = "swap-position"
	ActionActiveSpeaker      ActionType = "active-speaker"
	ActionUpdateLayer        ActionType = "update-layer"
)

// Action is one participant state transition request.
type Action struct {
	Type            ActionType
	Participant     *models.ParticipantDescriptor
	ID              string // leave, active speaker
	ID1, ID2        string // swap
	ReceiveSettings models.ReceiveSettingsMap
}

// PendingActiveSpeaker records a speaker event that arrived before the
// matching join.
type PendingActiveSpeaker struct {
	ID   string
	Date time.Time
}

// ParticipantState is the ordered participant registry. Slice order is grid
// order; Position mirrors it.
type ParticipantState struct {
	Participants         []models.Participant
	PendingActiveSpeaker *PendingActiveSpeaker
}

// InitialParticipantState holds only the local placeholder.
func InitialParticipantState() ParticipantState {
	return ParticipantState{
		Participants: []models.Participant{models.NewLocalParticipant()},
	}
}

// IndexOf returns the grid index of id, or -1.
func (s ParticipantState) IndexOf(id string) int {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return i
		}
	}
	return -1
}

// ReduceParticipants applies action to prev and returns the next state.
// prev is never modified. When changed is false the returned state is prev.
func ReduceParticipants(prev ParticipantState, action Action, now time.Time) (next ParticipantState, changed bool, err error) {
	switch action.Type {
	case ActionParticipantJoined:
		next, changed = reduceJoin(prev, action.Participant)
	case ActionParticipantUpdated:
		next, changed = reduceUpdate(prev, action.Participant)
	case ActionParticipantLeft:
		next, changed = reduceLeave(prev, action.ID)
	case ActionSwapPosition:
		next, changed = reduceSwap(prev, action.ID1, action.ID2)
	case ActionActiveSpeaker:
		next, changed = reduceActiveSpeaker(prev, action.ID, now)
	case ActionUpdateLayer:
		next, changed = reduceLayers(prev, action.ReceiveSettings)
	default:
		return prev, false, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
	if !changed {
		return prev, false, nil
	}
	return next, true, nil
}

func reduceJoin(prev ParticipantState, d *models.ParticipantDescriptor) (ParticipantState, bool) {
	if d == nil || d.ParticipantID() == "" {
		return prev, false
	}

	// A join for a known id (the local user, or a replayed join) is an update.
	if prev.IndexOf(d.ParticipantID()) >= 0 {
		return reduceUpdate(prev, d)
	}

	item := models.NewParticipantFromDescriptor(d)
	participants := copyParticipants(prev.Participants)
	pending := prev.PendingActiveSpeaker

	if pending != nil && pending.ID == item.ID {
		date := pending.Date
		item.IsActiveSpeaker = true
		item.LastActiveDate = &date
		pending = nil
		for i := range participants {
			participants[i].IsActiveSpeaker = false
		}
	}

	insertAt := len(participants)
	if item.IsCamMuted {
		for i, p := range participants {
			if !p.IsLocal && p.IsCamMuted && !p.IsActiveSpeaker {
				insertAt = i
				break
			}
		}
	}

	participants = append(participants, models.Participant{})
	copy(participants[insertAt+1:], participants[insertAt:])
	participants[insertAt] = item
	renumber(participants)

	return ParticipantState{Participants: participants, PendingActiveSpeaker: pending}, true
}

func reduceUpdate(prev ParticipantState, d *models.ParticipantDescriptor) (ParticipantState, bool) {
	if d == nil {
		return prev, false
	}
	idx := prev.IndexOf(d.ParticipantID())
	if idx < 0 {
		return prev, false
	}

	item := prev.Participants[idx]
	item.ApplyDescriptor(d)
	if item.Equal(prev.Participants[idx]) {
		return prev, false
	}

	participants := copyParticipants(prev.Participants)
	participants[idx] = item
	return ParticipantState{Participants: participants, PendingActiveSpeaker: prev.PendingActiveSpeaker}, true
}

func reduceLeave(prev ParticipantState, id string) (ParticipantState, bool) {
	if id == "" || id == models.LocalParticipantID {
		return prev, false
	}
	idx := prev.IndexOf(id)
	if idx < 0 {
		return prev, false
	}

	participants := make([]models.Participant, 0, len(prev.Participants)-1)
	participants = append(participants, prev.Participants[:idx]...)
	participants = append(participants, prev.Participants[idx+1:]...)
	renumber(participants)
	return ParticipantState{Participants: participants, PendingActiveSpeaker: prev.PendingActiveSpeaker}, true
}

func reduceSwap(prev ParticipantState, id1, id2 string) (ParticipantState, bool) {
	if id1 == "" || id2 == "" || id1 == id2 ||
		id1 == models.LocalParticipantID || id2 == models.LocalParticipantID {
		return prev, false
	}
	idx1, idx2 := prev.IndexOf(id1), prev.IndexOf(id2)
	if idx1 < 0 || idx2 < 0 {
		return prev, false
	}

	participants := copyParticipants(prev.Participants)
	participants[idx1], participants[idx2] = participants[idx2], participants[idx1]
	renumber(participants)
	return ParticipantState{Participants: participants, PendingActiveSpeaker: prev.PendingActiveSpeaker}, true
}

func reduceActiveSpeaker(prev ParticipantState, id string, now time.Time) (ParticipantState, bool) {
	if id == "" {
		if prev.PendingActiveSpeaker == nil {
			return prev, false
		}
		return ParticipantState{Participants: prev.Participants}, true
	}

	if prev.IndexOf(id) < 0 {
		return ParticipantState{
			Participants:         prev.Participants,
			PendingActiveSpeaker: &PendingActiveSpeaker{ID: id, Date: now},
		}, true
	}

	participants := copyParticipants(prev.Participants)
	for i := range participants {
		if participants[i].ID == id {
			date := now
			participants[i].IsActiveSpeaker = true
			participants[i].LastActiveDate = &date
		} else {
			participants[i].IsActiveSpeaker = false
		}
	}
	return ParticipantState{Participants: participants}, true
}

func reduceLayers(prev ParticipantState, settings models.ReceiveSettingsMap) (ParticipantState, bool) {
	participants := copyParticipants(prev.Participants)
	changed := false
	for i := range participants {
		var layer *int
		if s, ok := settings[participants[i].ID]; ok {
			layer = models.LayerPtr(s.Video.Layer)
		}
		if !participants[i].Equal(withLayer(participants[i], layer)) {
			changed = true
		}
		participants[i].Layer = layer
	}
	if !changed {
		return prev, false
	}
	return ParticipantState{Participants: participants, PendingActiveSpeaker: prev.PendingActiveSpeaker}, true
}

func withLayer(p models.Participant, layer *int) models.Participant {
	p.Layer = layer
	return p
}

func copyParticipants(in []models.Participant) []models.Participant {
	out := make([]models.Participant, len(in), len(in)+1)
	copy(out, in)
	return out
}

func renumber(participants []models.Participant) {
	for i := range participants {
		participants[i].Position = i
	}
}

// ParticipantStore owns the participant state of one call. It is not safe
// for concurrent use: the owning CallSession applies every transition from
// its own loop and hands out copies.
type ParticipantStore struct {
	state   ParticipantState
	version uint64
	now     func() time.Time
}

// NewParticipantStore creates a store holding the local placeholder. A nil
// clock defaults to time.Now.
func NewParticipantStore(now func() time.Time) *ParticipantStore {
	if now == nil {
		now = time.Now
	}
	return &ParticipantStore{
		state: InitialParticipantState(),
		now:   now,
	}
}

// Dispatch applies one action. The version only advances when the state
// actually changed, so derived views can skip recomputation on equal versions.
func (s *ParticipantStore) Dispatch(action Action) (bool, error) {
	next, changed, err := ReduceParticipants(s.state, action, s.now())
	if err != nil {
		return false, err
	}
	if changed {
		s.state = next
		s.version++
	}
	return changed, nil
}

func (s *ParticipantStore) Join(d *models.ParticipantDescriptor) bool {
	return s.mustDispatch(Action{Type: ActionParticipantJoined, Participant: d})
}

func (s *ParticipantStore) Update(d *models.ParticipantDescriptor) bool {
	return s.mustDispatch(Action{Type: ActionParticipantUpdated, Participant: d})
}

func (s *ParticipantStore) Leave(id string) bool {
	return s.mustDispatch(Action{Type: ActionParticipantLeft, ID: id})
}

func (s *ParticipantStore) SwapPosition(id1, id2 string) bool {
	return s.mustDispatch(Action{Type: ActionSwapPosition, ID1: id1, ID2: id2})
}

func (s *ParticipantStore) MarkActiveSpeaker(id string) bool {
	return s.mustDispatch(Action{Type: ActionActiveSpeaker, ID: id})
}

func (s *ParticipantStore) SetLayers(settings models.ReceiveSettingsMap) bool {
	return s.mustDispatch(Action{Type: ActionUpdateLayer, ReceiveSettings: settings})
}

// mustDispatch is for the typed helpers, whose action kinds are always known.
func (s *ParticipantStore) mustDispatch(action Action) bool {
	changed, err := s.Dispatch(action)
	if err != nil {
		panic(err)
	}
	return changed
}

func (s *ParticipantStore) Version() uint64 {
	return s.version
}

// Snapshot returns a copy that later transitions will not touch.
func (s *ParticipantStore) Snapshot() ParticipantState {
	snap := ParticipantState{Participants: copyParticipants(s.state.Participants)}
	if p := s.state.PendingActiveSpeaker; p != nil {
		pending := *p
		snap.PendingActiveSpeaker = &pending
	}
	return snap
}

func (s *ParticipantStore) Len() int {
	return len(s.state.Participants)
}

// ActiveSpeakerID returns the id of the active speaker, or "".
func (s *ParticipantStore) ActiveSpeakerID() string {
	for _, p := range s.state.Participants {
		if p.IsActiveSpeaker {
			return p.ID
		}
	}
	return ""
}

// Get returns a copy of the participant with id.
func (s *ParticipantStore) Get(id string) (models.Participant, bool) {
	idx := s.state.IndexOf(id)
	if idx < 0 {
		return models.Participant{}, false
	}
	return s.state.Participants[idx], true
}
