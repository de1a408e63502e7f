package services_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/damione1/paginated-grid/internal/models"
)

var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// fakeClock is a settable clock for the participant store.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func remote(id string) *models.ParticipantDescriptor {
	return &models.ParticipantDescriptor{
		SessionID: "sess-" + id,
		UserID:    id,
		UserName:  "User " + id,
		Tracks: models.ParticipantTracks{
			Audio: &models.TrackInfo{State: models.TrackStatePlayable},
			Video: &models.TrackInfo{State: models.TrackStatePlayable},
		},
	}
}

func camOff(id string) *models.ParticipantDescriptor {
	d := remote(id)
	d.Tracks.Video = &models.TrackInfo{State: models.TrackStateOff}
	return d
}

func localDescriptor() *models.ParticipantDescriptor {
	return &models.ParticipantDescriptor{
		SessionID: "sess-me",
		UserID:    "me",
		UserName:  "Me",
		Local:     true,
		Tracks: models.ParticipantTracks{
			Audio: &models.TrackInfo{State: models.TrackStatePlayable},
			Video: &models.TrackInfo{State: models.TrackStatePlayable},
		},
	}
}

func participantsWithIDs(ids ...string) []models.Participant {
	out := make([]models.Participant, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.Participant{
			ID:       id,
			Position: i,
			IsLocal:  id == models.LocalParticipantID,
		})
	}
	return out
}

func ids(participants []models.Participant) []string {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.ID)
	}
	return out
}

func numbered(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, prefix+strconv.Itoa(i))
	}
	return out
}


// fakeMedia records the commands a call session sends.
type fakeMedia struct {
	mu               sync.Mutex
	participants     []map[string]models.ParticipantUpdate
	receiveSettings  []models.ReceiveSettingsMap
	failParticipants error
}

func (f *fakeMedia) UpdateParticipants(_ context.Context, updates map[string]models.ParticipantUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failParticipants != nil {
		return f.failParticipants
	}
	f.participants = append(f.participants, updates)
	return nil
}

func (f *fakeMedia) UpdateReceiveSettings(_ context.Context, settings models.ReceiveSettingsMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiveSettings = append(f.receiveSettings, settings)
	return nil
}

func (f *fakeMedia) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failParticipants = err
}

func (f *fakeMedia) participantCommands() []map[string]models.ParticipantUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]models.ParticipantUpdate{}, f.participants...)
}

func (f *fakeMedia) layerCommands() []models.ReceiveSettingsMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ReceiveSettingsMap{}, f.receiveSettings...)
}
