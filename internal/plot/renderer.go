// Package plot renders pollution time series to image files.
package plot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/pollution"
)

// FileRendererConfig holds configuration for the file-based renderer.
type FileRendererConfig struct {
	// Dir is the directory plot files are written to; created on demand.
	Dir string

	// URLBase is the public path prefix under which Dir is served.
	URLBase string

	// Logger for render operations.
	Logger zerolog.Logger
}

// FileRenderer renders one line chart per pollutant, tiled into a single
// PNG, and serves it from a local directory.
type FileRenderer struct {
	dir     string
	urlBase string
	logger  zerolog.Logger
}

// NewFileRenderer creates a new file-based renderer.
func NewFileRenderer(cfg FileRendererConfig) *FileRenderer {
	return &FileRenderer{
		dir:     cfg.Dir,
		urlBase: strings.TrimRight(cfg.URLBase, "/"),
		logger:  cfg.Logger,
	}
}

// Render writes a tiled per-pollutant chart for the records and returns its
// URL. Null pollutant values are skipped; a pollutant with no data at all
// gets an empty panel.
func (r *FileRenderer) Render(records []pollution.Record, c *city.City) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	const (
		rows = 4
		cols = 2
	)

	plots := make([][]*plot.Plot, rows)
	for row := 0; row < rows; row++ {
		plots[row] = make([]*plot.Plot, cols)
	}

	series := pollutantSeries(records)
	for i, name := range pollution.PollutantNames {
		p := plot.New()
		p.Title.Text = strings.ToUpper(name)
		p.Y.Label.Text = "concentration"
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

		if len(series[i]) > 0 {
			line, err := plotter.NewLine(series[i])
			if err != nil {
				return "", fmt.Errorf("building %s series: %w", name, err)
			}
			p.Add(line, plotter.NewGrid())
		}

		plots[i/cols][i%cols] = p
	}

	img := vgimg.New(14*vg.Inch, 16*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 4, PadBottom: vg.Millimeter * 4,
		PadLeft: vg.Millimeter * 4, PadRight: vg.Millimeter * 4,
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			plots[row][col].Draw(canvases[row][col])
		}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating plots directory: %w", err)
	}

	start := records[0].Date.Format("2006-01-02")
	end := records[len(records)-1].Date.Format("2006-01-02")
	safeName := strings.ReplaceAll(c.Name, " ", "_")
	filename := fmt.Sprintf("%s_%s_%s_%s.png", safeName, start, end, uuid.New().String()[:8])
	path := filepath.Join(r.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating plot file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return "", fmt.Errorf("writing plot file: %w", err)
	}

	r.logger.Debug().
		Str("city", c.Name).
		Str("file", filename).
		Int("records", len(records)).
		Msg("plot rendered")

	return r.urlBase + "/" + filename, nil
}

// pollutantSeries extracts one (date, value) series per pollutant column,
// skipping null values.
func pollutantSeries(records []pollution.Record) [pollution.NumPollutants]plotter.XYs {
	var series [pollution.NumPollutants]plotter.XYs
	for i := range records {
		x := float64(records[i].Date.Unix())
		for col, v := range recordPollutants(&records[i]) {
			if v != nil {
				series[col] = append(series[col], plotter.XY{X: x, Y: *v})
			}
		}
	}
	return series
}

// recordPollutants mirrors the record's column order for rendering.
func recordPollutants(r *pollution.Record) [pollution.NumPollutants]*float64 {
	return [pollution.NumPollutants]*float64{r.CO, r.NO, r.NO2, r.O3, r.SO2, r.PM25, r.PM10, r.NH3}
}

// Ensure FileRenderer implements the pollution service's renderer interface.
var _ pollution.Renderer = (*FileRenderer)(nil)
