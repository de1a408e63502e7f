package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/models"
	"github.com/damione1/paginated-grid/internal/services"
)

func newStore(t *testing.T, joined ...string) (*services.ParticipantStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := services.NewParticipantStore(clock.Now)
	for _, id := range joined {
		require.True(t, store.Join(remote(id)))
	}
	return store, clock
}

func countLocal(participants []models.Participant) int {
	n := 0
	for _, p := range participants {
		if p.IsLocal {
			n++
		}
	}
	return n
}

func countActive(participants []models.Participant) int {
	n := 0
	for _, p := range participants {
		if p.IsActiveSpeaker {
			n++
		}
	}
	return n
}

func assertDensePositions(t *testing.T, participants []models.Participant) {
	t.Helper()
	for i, p := range participants {
		assert.Equal(t, i, p.Position, "position of %s", p.ID)
	}
}

func TestParticipantStore_LocalParticipant(t *testing.T) {
	t.Run("starts with the local placeholder", func(t *testing.T) {
		store, _ := newStore(t)

		snap := store.Snapshot()
		require.Len(t, snap.Participants, 1)
		local := snap.Participants[0]
		assert.Equal(t, models.LocalParticipantID, local.ID)
		assert.True(t, local.IsLocal)
		assert.True(t, local.IsLoading)
		assert.Equal(t, uint64(0), store.Version())
	})

	t.Run("local join updates the placeholder in place", func(t *testing.T) {
		store, _ := newStore(t, "a")

		assert.True(t, store.Join(localDescriptor()))

		snap := store.Snapshot()
		require.Len(t, snap.Participants, 2)
		assert.Equal(t, models.LocalParticipantID, snap.Participants[0].ID)
		assert.Equal(t, "Me", snap.Participants[0].Name)
		assert.False(t, snap.Participants[0].IsLoading)
	})

	t.Run("exactly one local participant survives any join and leave sequence", func(t *testing.T) {
		store, _ := newStore(t, "a", "b")

		store.Leave(models.LocalParticipantID)
		store.Join(localDescriptor())
		store.Leave("a")
		store.Join(remote("c"))
		store.Leave("b")
		store.Leave(models.LocalParticipantID)
		store.Leave("c")

		snap := store.Snapshot()
		assert.Equal(t, 1, countLocal(snap.Participants))
		assert.Equal(t, []string{models.LocalParticipantID}, ids(snap.Participants))
	})

	t.Run("leaving the local participant is a no-op", func(t *testing.T) {
		store, _ := newStore(t, "a")
		version := store.Version()

		assert.False(t, store.Leave(models.LocalParticipantID))
		assert.Equal(t, version, store.Version())
	})
}

func TestParticipantStore_Join(t *testing.T) {
	t.Run("appends cam-on participants", func(t *testing.T) {
		store, _ := newStore(t, "a", "b", "c")

		snap := store.Snapshot()
		assert.Equal(t, []string{models.LocalParticipantID, "a", "b", "c"}, ids(snap.Participants))
		assertDensePositions(t, snap.Participants)
		assert.Equal(t, uint64(3), store.Version())
	})

	t.Run("inserts cam-muted joiner before the first cam-muted remote", func(t *testing.T) {
		store, _ := newStore(t)
		store.Join(remote("a"))
		store.Join(camOff("b"))
		store.Join(remote("c"))
		store.Join(camOff("d"))

		snap := store.Snapshot()
		assert.Equal(t, []string{models.LocalParticipantID, "a", "d", "b", "c"}, ids(snap.Participants))
		assertDensePositions(t, snap.Participants)
	})

	t.Run("cam-muted joiner is appended when nobody else is cam-muted", func(t *testing.T) {
		store, _ := newStore(t, "a")
		store.Join(camOff("b"))

		assert.Equal(t, []string{models.LocalParticipantID, "a", "b"}, ids(store.Snapshot().Participants))
	})

	t.Run("joining a known id updates it", func(t *testing.T) {
		store, _ := newStore(t, "a")
		d := remote("a")
		d.UserName = "Renamed"

		assert.True(t, store.Join(d))

		assert.Equal(t, 2, store.Len())
		p, ok := store.Get("a")
		require.True(t, ok)
		assert.Equal(t, "Renamed", p.Name)
	})

	t.Run("derives mute and loading flags from tracks", func(t *testing.T) {
		store, _ := newStore(t)
		d := remote("a")
		d.Tracks.Audio = &models.TrackInfo{State: models.TrackStateBlocked}
		d.Tracks.Video = &models.TrackInfo{State: models.TrackStateLoading}
		store.Join(d)

		p, ok := store.Get("a")
		require.True(t, ok)
		assert.True(t, p.IsMicMuted)
		assert.False(t, p.IsCamMuted)
		assert.True(t, p.IsLoading)
		assert.Equal(t, models.ColorFor("a"), p.Color)
	})

	t.Run("ignores descriptors without an id", func(t *testing.T) {
		store, _ := newStore(t)

		assert.False(t, store.Join(remote("")))
		assert.False(t, store.Join(nil))
		assert.Equal(t, 1, store.Len())
	})
}

func TestParticipantStore_Update(t *testing.T) {
	t.Run("identical descriptor leaves state and version untouched", func(t *testing.T) {
		store, _ := newStore(t, "a")
		version := store.Version()

		assert.False(t, store.Update(remote("a")))
		assert.Equal(t, version, store.Version())
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		store, _ := newStore(t, "a")

		assert.False(t, store.Update(remote("ghost")))
		assert.Equal(t, 2, store.Len())
	})

	t.Run("updates track-derived fields but keeps position", func(t *testing.T) {
		store, _ := newStore(t, "a", "b")

		assert.True(t, store.Update(camOff("a")))

		p, ok := store.Get("a")
		require.True(t, ok)
		assert.True(t, p.IsCamMuted)
		assert.Equal(t, 1, p.Position)
	})
}

func TestParticipantStore_Leave(t *testing.T) {
	store, _ := newStore(t, "a", "b", "c")

	assert.True(t, store.Leave("b"))
	assert.False(t, store.Leave("b"))
	assert.False(t, store.Leave(""))

	snap := store.Snapshot()
	assert.Equal(t, []string{models.LocalParticipantID, "a", "c"}, ids(snap.Participants))
	assertDensePositions(t, snap.Participants)
}

func TestParticipantStore_SwapPosition(t *testing.T) {
	t.Run("swapping twice restores the original order", func(t *testing.T) {
		store, _ := newStore(t, "a", "b", "c")
		original := ids(store.Snapshot().Participants)

		require.True(t, store.SwapPosition("a", "c"))
		assert.Equal(t, []string{models.LocalParticipantID, "c", "b", "a"}, ids(store.Snapshot().Participants))
		assertDensePositions(t, store.Snapshot().Participants)

		require.True(t, store.SwapPosition("a", "c"))
		assert.Equal(t, original, ids(store.Snapshot().Participants))
	})

	tests := []struct {
		name string
		id1  string
		id2  string
	}{
		{"same id", "a", "a"},
		{"local first", models.LocalParticipantID, "a"},
		{"local second", "b", models.LocalParticipantID},
		{"missing id", "a", "ghost"},
		{"empty id", "", "a"},
	}

	for _, tt := range tests {
		t.Run("ignores "+tt.name, func(t *testing.T) {
			store, _ := newStore(t, "a", "b")
			version := store.Version()
			before := ids(store.Snapshot().Participants)

			assert.False(t, store.SwapPosition(tt.id1, tt.id2))
			assert.Equal(t, version, store.Version())
			assert.Equal(t, before, ids(store.Snapshot().Participants))
		})
	}
}

func TestParticipantStore_ActiveSpeaker(t *testing.T) {
	t.Run("is exclusive", func(t *testing.T) {
		store, clock := newStore(t, "a", "b", "c")

		for _, id := range []string{"a", "b", "c", "b"} {
			clock.Advance(time.Second)
			store.MarkActiveSpeaker(id)
			assert.Equal(t, 1, countActive(store.Snapshot().Participants))
		}
		assert.Equal(t, "b", store.ActiveSpeakerID())
	})

	t.Run("stamps the activity date", func(t *testing.T) {
		store, clock := newStore(t, "a")
		at := clock.Advance(time.Minute)

		store.MarkActiveSpeaker("a")

		p, _ := store.Get("a")
		require.NotNil(t, p.LastActiveDate)
		assert.True(t, at.Equal(*p.LastActiveDate))
	})

	t.Run("unknown speaker is kept pending until they join", func(t *testing.T) {
		store, clock := newStore(t, "a")
		store.MarkActiveSpeaker("a")
		spokeAt := clock.Advance(time.Second)

		assert.True(t, store.MarkActiveSpeaker("d"))

		snap := store.Snapshot()
		require.NotNil(t, snap.PendingActiveSpeaker)
		assert.Equal(t, "d", snap.PendingActiveSpeaker.ID)
		assert.Equal(t, "a", store.ActiveSpeakerID())

		clock.Advance(time.Minute)
		store.Join(remote("d"))

		snap = store.Snapshot()
		assert.Nil(t, snap.PendingActiveSpeaker)
		assert.Equal(t, "d", store.ActiveSpeakerID())
		assert.Equal(t, 1, countActive(snap.Participants))
		d, _ := store.Get("d")
		require.NotNil(t, d.LastActiveDate)
		assert.True(t, spokeAt.Equal(*d.LastActiveDate))
	})

	t.Run("empty speaker clears the pending speaker", func(t *testing.T) {
		store, _ := newStore(t)
		store.MarkActiveSpeaker("d")

		assert.True(t, store.MarkActiveSpeaker(""))
		assert.Nil(t, store.Snapshot().PendingActiveSpeaker)
		assert.False(t, store.MarkActiveSpeaker(""))
	})
}

func TestParticipantStore_SetLayers(t *testing.T) {
	store, _ := newStore(t, "a", "b")

	settings := models.ReceiveSettingsMap{
		"a": {Video: models.VideoReceiveSettings{Layer: config.LayerHigh}},
	}
	assert.True(t, store.SetLayers(settings))
	assert.False(t, store.SetLayers(settings))

	a, _ := store.Get("a")
	require.NotNil(t, a.Layer)
	assert.Equal(t, config.LayerHigh, *a.Layer)
	b, _ := store.Get("b")
	assert.Nil(t, b.Layer)

	assert.True(t, store.SetLayers(models.ReceiveSettingsMap{}))
	a, _ = store.Get("a")
	assert.Nil(t, a.Layer)
}

func TestReduceParticipants(t *testing.T) {
	t.Run("unknown action is an error", func(t *testing.T) {
		prev := services.InitialParticipantState()

		next, changed, err := services.ReduceParticipants(prev, services.Action{Type: "explode"}, baseTime)

		require.ErrorIs(t, err, services.ErrUnknownAction)
		assert.False(t, changed)
		assert.Equal(t, prev, next)
	})

	t.Run("store surfaces unknown actions", func(t *testing.T) {
		store, _ := newStore(t)

		_, err := store.Dispatch(services.Action{Type: "explode"})
		assert.ErrorIs(t, err, services.ErrUnknownAction)
	})

	t.Run("does not modify the previous state", func(t *testing.T) {
		prev := services.InitialParticipantState()

		next, changed, err := services.ReduceParticipants(prev, services.Action{
			Type:        services.ActionParticipantJoined,
			Participant: remote("a"),
		}, baseTime)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Len(t, prev.Participants, 1)
		assert.Len(t, next.Participants, 2)
	})

	t.Run("snapshots are isolated from later transitions", func(t *testing.T) {
		store, _ := newStore(t, "a", "b")
		snap := store.Snapshot()

		store.SwapPosition("a", "b")

		assert.Equal(t, []string{models.LocalParticipantID, "a", "b"}, ids(snap.Participants))
	})
}
