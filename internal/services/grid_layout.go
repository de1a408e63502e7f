package services

import (
	"math"

	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/models"
)

// GridOptions are the fixed inputs of the layout.
type GridOptions struct {
	MaxTilesPerPage int
	AspectRatio     float64
}

// DefaultGridOptions returns 12 tiles per page at 16:9.
func DefaultGridOptions() GridOptions {
	return GridOptions{
		MaxTilesPerPage: config.DefaultMaxTilesPerPage,
		AspectRatio:     config.DefaultAspectRatio,
	}
}

func (o GridOptions) normalized() GridOptions {
	if o.MaxTilesPerPage < 1 {
		o.MaxTilesPerPage = 1
	}
	if o.AspectRatio <= 0 {
		o.AspectRatio = config.DefaultAspectRatio
	}
	return o
}

// PageSize returns how many tiles fit on one page. A degenerate container
// yields a single page of size 1.
func PageSize(dims models.GridDimensions, opts GridOptions) int {
	opts = opts.normalized()
	if dims.Width <= 0 || dims.Height <= 0 {
		return 1
	}

	maxColumns := max(1, int(math.Floor(dims.Width/config.MinTileWidth)))
	widthPerTile := dims.Width / float64(maxColumns)
	maxRows := max(1, int(math.Floor(dims.Height/(widthPerTile/opts.AspectRatio))))

	return min(maxColumns*maxRows, opts.MaxTilesPerPage)
}

// PageCount returns ceil(tileCount/pageSize), never less than 1.
func PageCount(tileCount, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	return max(1, (tileCount+pageSize-1)/pageSize)
}

// ComputeGridLayout derives page geometry and the largest tile that fits.
// page is clamped into [1, pages].
func ComputeGridLayout(dims models.GridDimensions, tileCount, page int, opts GridOptions) models.GridLayout {
	opts = opts.normalized()
	pageSize := PageSize(dims, opts)
	pages := PageCount(tileCount, pageSize)
	page = min(max(page, 1), pages)

	columns, w, h := bestTile(dims, min(pageSize, tileCount), opts.AspectRatio)

	return models.GridLayout{
		Page:       page,
		Pages:      pages,
		PageSize:   pageSize,
		Columns:    columns,
		TileWidth:  w,
		TileHeight: h,
	}
}

// bestTile tries every column count for n tiles and keeps the one with the
// largest area. One pixel of gap is left between neighbours. Ties go to the
// higher column count.
func bestTile(dims models.GridDimensions, n int, aspectRatio float64) (columns int, width, height float64) {
	if n <= 0 || dims.Width <= 0 || dims.Height <= 0 {
		return 0, max(dims.Width, 0), max(dims.Height, 0)
	}

	for i := 1; i <= n; i++ {
		w := (dims.Width - float64(i-1)) / float64(i)
		h := w / aspectRatio
		rows := (n + i - 1) / i
		if float64(rows)*h > dims.Height {
			h = (dims.Height - float64(rows-1)) / float64(rows)
			w = h * aspectRatio
		}
		if w <= 0 || h <= 0 {
			continue
		}
		if w*h >= width*height {
			columns, width, height = i, w, h
		}
	}
	return columns, width, height
}
