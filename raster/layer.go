package raster

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Layer is a single-band result grid (a DI surface or an AOA mask) sharing a
// source grid's geometry. Cells without a value hold the no-data sentinel.
type Layer struct {
	Name     string
	Width    int
	Height   int
	CellSize float64
	Origin   orb.Point
	NoData   float64
	Values   []float64 // row-major
}

// NewLayer creates an empty result layer with the grid's geometry.
func (g *Grid) NewLayer(name string) *Layer {
	values := make([]float64, g.Width*g.Height)
	for i := range values {
		values[i] = g.NoData
	}
	return &Layer{
		Name:     name,
		Width:    g.Width,
		Height:   g.Height,
		CellSize: g.CellSize,
		Origin:   g.Origin,
		NoData:   g.NoData,
		Values:   values,
	}
}

// SetCells writes values at the given row-major cell indices, typically the
// index mapping produced by Grid.ToMatrix.
func (l *Layer) SetCells(cells []int, values []float64) error {
	if len(cells) != len(values) {
		return fmt.Errorf("layer %s: %d cells but %d values", l.Name, len(cells), len(values))
	}
	for i, cell := range cells {
		if cell < 0 || cell >= len(l.Values) {
			return fmt.Errorf("layer %s: cell index %d out of range", l.Name, cell)
		}
		l.Values[cell] = values[i]
	}
	return nil
}

// SetFlags writes a boolean mask as 1/0 values at the given cell indices.
func (l *Layer) SetFlags(cells []int, flags []bool) error {
	values := make([]float64, len(flags))
	for i, flag := range flags {
		if flag {
			values[i] = 1
		}
	}
	return l.SetCells(cells, values)
}

// At returns the value of the cell, with ok=false for no-data cells.
func (l *Layer) At(col, row int) (float64, bool) {
	val := l.Values[row*l.Width+col]
	if val == l.NoData {
		return 0, false
	}
	return val, true
}

// CellCenter returns the coordinate of a cell's center.
func (l *Layer) CellCenter(col, row int) orb.Point {
	return orb.Point{
		l.Origin[0] + (float64(col)+0.5)*l.CellSize,
		l.Origin[1] + (float64(row)+0.5)*l.CellSize,
	}
}
