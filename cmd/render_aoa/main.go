package main

import (
	"flag"
	"image/color"
	"log"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"applicability/raster"
)

// render_aoa renders result layers written by compute_aoa as PNG maps: a
// continuous heatmap for the DI surface and a two-color mask for the AOA
// flag. No-data cells are left blank.
func main() {
	diPath := flag.String("di", "", "DI layer CSV to render")
	aoaPath := flag.String("aoa", "", "AOA layer CSV to render")
	outPrefix := flag.String("out", "map", "Output file prefix")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime)

	if *diPath == "" && *aoaPath == "" {
		log.Fatal("ERROR: provide at least one of -di or -aoa")
	}

	if *diPath != "" {
		layer, err := raster.ReadLayerCSV(*diPath)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		out := *outPrefix + "_di.png"
		if err := renderLayer(layer, "Dissimilarity index", palette.Heat(255, 1), out); err != nil {
			log.Fatalf("ERROR: Failed to render DI map: %v", err)
		}
		log.Printf("DI map: %s", out)
	}

	if *aoaPath != "" {
		layer, err := raster.ReadLayerCSV(*aoaPath)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		out := *outPrefix + "_aoa.png"
		if err := renderLayer(layer, "Area of applicability", maskPalette{}, out); err != nil {
			log.Fatalf("ERROR: Failed to render AOA map: %v", err)
		}
		log.Printf("AOA map: %s", out)
	}
}

func renderLayer(layer *raster.Layer, title string, pal palette.Palette, out string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	heatmap := plotter.NewHeatMap(layerGrid{layer}, pal)
	p.Add(heatmap)

	width := 6 * vg.Inch
	height := vg.Length(float64(width) * float64(layer.Height) / float64(layer.Width))
	return p.Save(width, height, out)
}

// layerGrid adapts a result layer to the plotter's grid interface. No-data
// cells surface as NaN, which the heatmap leaves undrawn.
type layerGrid struct {
	layer *raster.Layer
}

func (g layerGrid) Dims() (c, r int) {
	return g.layer.Width, g.layer.Height
}

func (g layerGrid) Z(c, r int) float64 {
	val, ok := g.layer.At(c, r)
	if !ok {
		return math.NaN()
	}
	return val
}

func (g layerGrid) X(c int) float64 {
	return g.layer.CellCenter(c, 0)[0]
}

func (g layerGrid) Y(r int) float64 {
	return g.layer.CellCenter(0, r)[1]
}

// maskPalette colors the binary AOA flag: gray outside, green inside.
type maskPalette struct{}

func (maskPalette) Colors() []color.Color {
	return []color.Color{
		color.RGBA{R: 120, G: 120, B: 120, A: 255},
		color.RGBA{R: 60, G: 160, B: 60, A: 255},
	}
}
