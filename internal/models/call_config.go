package models

// CallConfig defines the grid behavior of one call session
type CallConfig struct {
	// MaxTilesPerPage caps the page size regardless of container size
	MaxTilesPerPage int `json:"maxTilesPerPage"`

	// AspectRatio is the fixed width/height ratio of every tile
	AspectRatio float64 `json:"aspectRatio"`

	// AutoLayers: if true, receive layers follow the visible tile count
	// if false, layers are only changed by explicit per-participant overrides
	AutoLayers bool `json:"autoLayers"`

	// RecentSpeakerCount: most recent remote speakers kept staged off-page
	RecentSpeakerCount int `json:"recentSpeakerCount"`
}
