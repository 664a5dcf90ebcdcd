// Package charts renders per-class probability bar charts for a prediction.
package charts

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	vgtext "gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/model"
)

const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch

	title  = "Prediction Probabilities"
	yLabel = "Probability"
)

// Palette holds the bar colors assigned by ordinal class position. Classes
// beyond its length cycle back to the start.
var Palette = []color.Color{
	color.RGBA{R: 0x4c, G: 0x78, B: 0xa8, A: 0xff},
	color.RGBA{R: 0xf5, G: 0x85, B: 0x18, A: 0xff},
	color.RGBA{R: 0x54, G: 0xa2, B: 0x4b, A: 0xff},
	color.RGBA{R: 0xb2, G: 0x79, B: 0xa2, A: 0xff},
}

// Chart is a rendered probability chart. It shares its token with the
// stored image it was produced from.
type Chart struct {
	Token artifacts.Token
	Name  string
	Path  string
}

// Generator writes charts into a single directory.
type Generator struct {
	dir    string
	logger *slog.Logger
}

// New creates a Generator that saves charts into dir.
func New(dir string, logger *slog.Logger) *Generator {
	return &Generator{
		dir:    dir,
		logger: logger.With("system", "charts"),
	}
}

// Dir returns the directory charts are written to.
func (g *Generator) Dir() string {
	return g.dir
}

// Render draws result as a bar chart and saves it as probs_<token>.png.
// Bars follow the result's class order.
func (g *Generator) Render(token artifacts.Token, result model.Result) (Chart, error) {
	p, err := Plot(result)
	if err != nil {
		return Chart{}, err
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return Chart{}, fmt.Errorf("create chart dir: %w", err)
	}

	name := token.ChartName()
	path := filepath.Join(g.dir, name)

	if err := p.Save(Width, Height, path); err != nil {
		return Chart{}, fmt.Errorf("save chart: %w", err)
	}

	g.logger.Debug("chart rendered", "name", name, "classes", len(result.Classes))

	return Chart{Token: token, Name: name, Path: path}, nil
}

// Layers are the drawable parts of a chart: one bar per class in the
// result's class order and a two-decimal label above each bar.
type Layers struct {
	Bars   []*plotter.BarChart
	Labels plotter.XYLabels
}

// Build creates the chart layers for result.
func Build(result model.Result) (Layers, error) {
	if len(result.Classes) == 0 {
		return Layers{}, fmt.Errorf("render chart: no classes")
	}

	width := Width / vg.Length(len(result.Classes)+1) / 2
	values := result.Values()

	layers := Layers{
		Bars: make([]*plotter.BarChart, len(values)),
		Labels: plotter.XYLabels{
			XYs:    make(plotter.XYs, len(values)),
			Labels: make([]string, len(values)),
		},
	}

	for i, v := range values {
		bar, err := plotter.NewBarChart(plotter.Values{v}, width)
		if err != nil {
			return Layers{}, fmt.Errorf("render chart: %w", err)
		}
		bar.XMin = float64(i)
		bar.Color = Palette[i%len(Palette)]
		bar.LineStyle.Width = 0
		layers.Bars[i] = bar

		layers.Labels.XYs[i] = plotter.XY{X: float64(i), Y: v + 0.01}
		layers.Labels.Labels[i] = fmt.Sprintf("%.2f", v)
	}

	return layers, nil
}

// Plot builds the bar chart for result without saving it.
func Plot(result model.Result) (*plot.Plot, error) {
	layers, err := Build(result)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	for _, bar := range layers.Bars {
		p.Add(bar)
	}

	text, err := plotter.NewLabels(layers.Labels)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	for i := range text.TextStyle {
		text.TextStyle[i].XAlign = vgtext.XCenter
	}
	p.Add(text)

	p.NominalX(result.Classes...)

	// Add widens the data range; pin the axis afterwards.
	p.Y.Min = 0
	p.Y.Max = 1

	return p, nil
}
