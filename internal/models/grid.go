package models

// GridDimensions is the container size in pixels.
type GridDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GridLayout is recomputed whenever the container or tile count changes.
type GridLayout struct {
	Page       int     `json:"page"`
	Pages      int     `json:"pages"`
	PageSize   int     `json:"pageSize"`
	Columns    int     `json:"columns"`
	TileWidth  float64 `json:"tileWidth"`
	TileHeight float64 `json:"tileHeight"`
}
