package models

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// LocalParticipantID is the reserved id of the local user. It is never
// subscribed to and never receives a layer.
const LocalParticipantID = "local"

// ColorPaletteSize is the number of distinct tile colors.
const ColorPaletteSize = 11

type Participant struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Position        int        `json:"position"`
	IsCamMuted      bool       `json:"isCamMuted"`
	IsMicMuted      bool       `json:"isMicMuted"`
	IsLoading       bool       `json:"isLoading"`
	IsLocal         bool       `json:"isLocal"`
	IsOwner         bool       `json:"isOwner"`
	IsActiveSpeaker bool       `json:"isActiveSpeaker"`
	LastActiveDate  *time.Time `json:"lastActiveDate,omitempty"`
	Layer           *int       `json:"layer,omitempty"`
	Color           int        `json:"color"`
}

// NewLocalParticipant returns the placeholder for the local user that exists
// before the media session reports anything about it.
func NewLocalParticipant() Participant {
	return Participant{
		ID:        LocalParticipantID,
		IsLoading: true,
		IsLocal:   true,
		Color:     ColorFor(LocalParticipantID),
	}
}

// NewParticipantFromDescriptor builds a fresh participant record.
func NewParticipantFromDescriptor(d *ParticipantDescriptor) Participant {
	id := d.ParticipantID()
	p := Participant{
		ID:      id,
		IsLocal: d.Local,
		IsOwner: d.Owner,
		Color:   ColorFor(id),
	}
	p.ApplyDescriptor(d)
	return p
}

// ApplyDescriptor recomputes the fields derived from track state. Identity,
// position, layer, activity and color are left untouched.
func (p *Participant) ApplyDescriptor(d *ParticipantDescriptor) {
	p.Name = d.UserName
	p.IsCamMuted = d.Tracks.Video.IsOff()
	p.IsMicMuted = d.Tracks.Audio.IsOff()
	p.IsLoading = d.Tracks.Audio.IsLoading() || d.Tracks.Video.IsLoading()
}

// Equal reports whether two records are structurally identical.
func (p Participant) Equal(o Participant) bool {
	if p.ID != o.ID || p.Name != o.Name || p.Position != o.Position ||
		p.IsCamMuted != o.IsCamMuted || p.IsMicMuted != o.IsMicMuted || p.IsLoading != o.IsLoading ||
		p.IsLocal != o.IsLocal || p.IsOwner != o.IsOwner || p.IsActiveSpeaker != o.IsActiveSpeaker ||
		p.Color != o.Color {
		return false
	}
	if !equalTime(p.LastActiveDate, o.LastActiveDate) {
		return false
	}
	return equalLayer(p.Layer, o.Layer)
}

// ColorFor maps an id onto the fixed palette.
func ColorFor(id string) int {
	return int(xxhash.Sum64String(id) % ColorPaletteSize)
}

// LayerPtr is a helper for building optional layers.
func LayerPtr(layer int) *int {
	return &layer
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalLayer(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
