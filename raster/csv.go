package raster

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
)

func readCSV(path string) (records [][]string, header []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return rows[1:], rows[0], nil
}

// ReadStackCSV loads a predictor stack from a CSV file with an
// "x,y,band1,band2,..." header and one row per cell. Grid geometry (cell
// size, extent) is inferred from the coordinates; cells absent from the file
// or with empty values stay no-data. Coordinates must lie on a uniform grid.
func ReadStackCSV(path string) (*Grid, error) {
	records, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(header) < 3 || header[0] != "x" || header[1] != "y" {
		return nil, fmt.Errorf("stack CSV %s: header must start with x,y followed by band names", path)
	}
	bands := header[2:]

	type cellRecord struct {
		p      orb.Point
		values []string
	}
	cells := make([]cellRecord, 0, len(records))
	var xs, ys []float64
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("stack CSV %s: row %d has %d columns, expected %d", path, i+2, len(rec), len(header))
		}
		x, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("stack CSV %s: row %d: bad x %q", path, i+2, rec[0])
		}
		y, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("stack CSV %s: row %d: bad y %q", path, i+2, rec[1])
		}
		xs = append(xs, x)
		ys = append(ys, y)
		cells = append(cells, cellRecord{p: orb.Point{x, y}, values: rec[2:]})
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("stack CSV %s: no cells", path)
	}

	minX, cellSizeX, width, err := inferAxis(xs)
	if err != nil {
		return nil, fmt.Errorf("stack CSV %s: x axis: %w", path, err)
	}
	minY, cellSizeY, height, err := inferAxis(ys)
	if err != nil {
		return nil, fmt.Errorf("stack CSV %s: y axis: %w", path, err)
	}
	cellSize := cellSizeX
	if width == 1 {
		cellSize = cellSizeY
	}
	if width > 1 && height > 1 && math.Abs(cellSizeX-cellSizeY) > 1e-9*cellSizeX {
		return nil, fmt.Errorf("stack CSV %s: non-square cells (%v x %v)", path, cellSizeX, cellSizeY)
	}

	origin := orb.Point{minX - cellSize/2, minY - cellSize/2}
	grid, err := NewGrid(bands, width, height, cellSize, origin, DefaultNoData)
	if err != nil {
		return nil, err
	}

	for _, cell := range cells {
		col, row, ok := grid.CellAt(cell.p)
		if !ok {
			return nil, fmt.Errorf("stack CSV %s: cell (%v, %v) outside inferred extent", path, cell.p[0], cell.p[1])
		}
		for b, raw := range cell.values {
			if raw == "" {
				continue
			}
			val, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("stack CSV %s: cell (%v, %v) band %s: bad value %q",
					path, cell.p[0], cell.p[1], bands[b], raw)
			}
			grid.Set(b, col, row, val)
		}
	}
	return grid, nil
}

// WriteCSV writes the layer's valid cells as "x,y,<name>" rows.
func (l *Layer) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("layer %s: %w", l.Name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"x", "y", l.Name}); err != nil {
		return err
	}
	for row := 0; row < l.Height; row++ {
		for col := 0; col < l.Width; col++ {
			val, ok := l.At(col, row)
			if !ok {
				continue
			}
			center := l.CellCenter(col, row)
			record := []string{
				strconv.FormatFloat(center[0], 'g', -1, 64),
				strconv.FormatFloat(center[1], 'g', -1, 64),
				strconv.FormatFloat(val, 'g', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	return writer.Error()
}

// ReadLayerCSV loads a single-band result layer written by WriteCSV.
func ReadLayerCSV(path string) (*Layer, error) {
	records, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(header) != 3 || header[0] != "x" || header[1] != "y" {
		return nil, fmt.Errorf("layer CSV %s: header must be x,y,<name>", path)
	}

	grid, err := stackFromSingleBand(path, header[2], records)
	if err != nil {
		return nil, err
	}

	layer := grid.NewLayer(header[2])
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			layer.Values[row*grid.Width+col] = grid.At(0, col, row)
		}
	}
	return layer, nil
}

func stackFromSingleBand(path, band string, records [][]string) (*Grid, error) {
	var xs, ys []float64
	for i, rec := range records {
		if len(rec) != 3 {
			return nil, fmt.Errorf("layer CSV %s: row %d has %d columns", path, i+2, len(rec))
		}
		x, errX := strconv.ParseFloat(rec[0], 64)
		y, errY := strconv.ParseFloat(rec[1], 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("layer CSV %s: row %d: bad coordinates", path, i+2)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("layer CSV %s: no cells", path)
	}

	minX, cellSizeX, width, err := inferAxis(xs)
	if err != nil {
		return nil, fmt.Errorf("layer CSV %s: x axis: %w", path, err)
	}
	minY, cellSizeY, height, err := inferAxis(ys)
	if err != nil {
		return nil, fmt.Errorf("layer CSV %s: y axis: %w", path, err)
	}
	cellSize := cellSizeX
	if width == 1 {
		cellSize = cellSizeY
	}

	origin := orb.Point{minX - cellSize/2, minY - cellSize/2}
	grid, err := NewGrid([]string{band}, width, height, cellSize, origin, DefaultNoData)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		val, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("layer CSV %s: row %d: bad value %q", path, i+2, rec[2])
		}
		col, row, ok := grid.CellAt(orb.Point{xs[i], ys[i]})
		if !ok {
			return nil, fmt.Errorf("layer CSV %s: cell (%v, %v) outside inferred extent", path, xs[i], ys[i])
		}
		grid.Set(0, col, row, val)
	}
	return grid, nil
}

// inferAxis derives the axis origin, spacing and cell count from cell-center
// coordinates. A single unique coordinate yields a unit spacing.
func inferAxis(coords []float64) (min, spacing float64, count int, err error) {
	unique := append([]float64(nil), coords...)
	sort.Float64s(unique)
	dedup := unique[:1]
	for _, c := range unique[1:] {
		if c != dedup[len(dedup)-1] {
			dedup = append(dedup, c)
		}
	}

	min = dedup[0]
	if len(dedup) == 1 {
		return min, 1, 1, nil
	}

	spacing = math.Inf(1)
	for i := 1; i < len(dedup); i++ {
		if gap := dedup[i] - dedup[i-1]; gap < spacing {
			spacing = gap
		}
	}
	span := dedup[len(dedup)-1] - dedup[0]
	count = int(math.Round(span/spacing)) + 1

	for _, c := range dedup {
		steps := (c - min) / spacing
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			return 0, 0, 0, fmt.Errorf("coordinate %v off the uniform grid (spacing %v)", c, spacing)
		}
	}
	return min, spacing, count, nil
}
