// Package raster adapts gridded predictor data to the estimator's matrix
// view: a multi-band grid flattens to one feature row per valid cell, and
// per-cell results are written back into grid shape as single-band layers.
package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DefaultNoData is the sentinel used for missing cells when none is given.
const DefaultNoData = -9999.0

// Grid is a multi-band numeric grid with uniform square cells. Band values
// are stored band-major; row 0 is the southernmost row.
type Grid struct {
	Bands    []string
	Width    int
	Height   int
	CellSize float64
	Origin   orb.Point // lower-left corner of the grid extent
	NoData   float64

	data []float64
}

// NewGrid allocates a grid with every cell set to the no-data value.
func NewGrid(bands []string, width, height int, cellSize float64, origin orb.Point, noData float64) (*Grid, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("grid needs at least one band")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", width, height)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("invalid cell size %v", cellSize)
	}

	data := make([]float64, len(bands)*width*height)
	for i := range data {
		data[i] = noData
	}

	return &Grid{
		Bands:    bands,
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		Origin:   origin,
		NoData:   noData,
		data:     data,
	}, nil
}

// BandIndex returns the index of the named band, or -1 when absent.
func (g *Grid) BandIndex(name string) int {
	for i, band := range g.Bands {
		if band == name {
			return i
		}
	}
	return -1
}

func (g *Grid) index(band, col, row int) int {
	return band*g.Width*g.Height + row*g.Width + col
}

// At returns the value of a band at the given cell.
func (g *Grid) At(band, col, row int) float64 {
	return g.data[g.index(band, col, row)]
}

// Set writes a band value at the given cell.
func (g *Grid) Set(band, col, row int, value float64) {
	g.data[g.index(band, col, row)] = value
}

// CellCenter returns the coordinate of a cell's center.
func (g *Grid) CellCenter(col, row int) orb.Point {
	return orb.Point{
		g.Origin[0] + (float64(col)+0.5)*g.CellSize,
		g.Origin[1] + (float64(row)+0.5)*g.CellSize,
	}
}

// Extent returns the grid's bounding box.
func (g *Grid) Extent() orb.Bound {
	return orb.Bound{
		Min: g.Origin,
		Max: orb.Point{
			g.Origin[0] + float64(g.Width)*g.CellSize,
			g.Origin[1] + float64(g.Height)*g.CellSize,
		},
	}
}

// CellAt locates the cell containing the point. ok is false when the point
// falls outside the grid extent.
func (g *Grid) CellAt(p orb.Point) (col, row int, ok bool) {
	if !g.Extent().Contains(p) {
		return 0, 0, false
	}
	col = int(math.Floor((p[0] - g.Origin[0]) / g.CellSize))
	row = int(math.Floor((p[1] - g.Origin[1]) / g.CellSize))
	if col >= g.Width {
		col = g.Width - 1
	}
	if row >= g.Height {
		row = g.Height - 1
	}
	return col, row, true
}

// FeatureVector extracts the per-band values of a cell in band order. ok is
// false when any band holds the no-data value.
func (g *Grid) FeatureVector(col, row int) ([]float64, bool) {
	vec := make([]float64, len(g.Bands))
	for b := range g.Bands {
		val := g.At(b, col, row)
		if val == g.NoData || math.IsNaN(val) {
			return nil, false
		}
		vec[b] = val
	}
	return vec, true
}

// ToMatrix flattens the grid to a target feature matrix with one row per
// cell that has values in every band. The returned cell indices (row-major,
// row*Width+col) map matrix rows back to grid cells so per-cell results can
// be written into layers of the same shape.
func (g *Grid) ToMatrix() ([][]float64, []int) {
	var matrix [][]float64
	var cells []int

	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			vec, ok := g.FeatureVector(col, row)
			if !ok {
				continue
			}
			matrix = append(matrix, vec)
			cells = append(cells, row*g.Width+col)
		}
	}
	return matrix, cells
}
