// Package vis renders the discovery charts as PNG images.
package vis

import (
	"bytes"
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"exoplanets-server/internal/planet"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch

	DefaultBins  = 30
	MinBins      = 5
	MaxBins      = 200
	DefaultSigma = 3.0
	MaxSigma     = 10.0
)

func encodePNG(p *plot.Plot) ([]byte, error) {
	writer, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create PNG writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// RenderEmpty produces a blank chart, used when there is no data to plot.
func RenderEmpty() ([]byte, error) {
	p := plot.New()
	p.HideAxes()
	return encodePNG(p)
}

// RenderHistogram draws a histogram of host star effective temperatures.
// When sigma > 0, values outside mean±sigma·stddev are trimmed first.
func RenderHistogram(values []float64, bins int, sigma float64) ([]byte, error) {
	if len(values) == 0 {
		return RenderEmpty()
	}

	mean, stddev := stat.MeanStdDev(values, nil)

	data := values
	if sigma > 0 && stddev > 0 {
		lower := mean - sigma*stddev
		upper := mean + sigma*stddev
		data = make([]float64, 0, len(values))
		for _, v := range values {
			if v >= lower && v <= upper {
				data = append(data, v)
			}
		}
	}

	if len(data) == 0 {
		return RenderEmpty()
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Host Star Temperature Histogram (bins=%d, ±%.0fσ)", bins, sigma)
	p.X.Label.Text = "Host Star Effective Temperature (K)"
	p.Y.Label.Text = "Number of Planets"

	hist, err := plotter.NewHist(plotter.Values(data), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(hist)

	return encodePNG(p)
}

// RenderYearBars draws discoveries per year, ascending.
func RenderYearBars(points []planet.TimelinePoint) ([]byte, error) {
	if len(points) == 0 {
		return RenderEmpty()
	}

	counts := make(plotter.Values, len(points))
	labels := make([]string, len(points))
	for i, point := range points {
		counts[i] = float64(point.Count)
		labels[i] = fmt.Sprintf("%d", point.DiscYear)
	}

	// Thin the axis labels when many years would overlap.
	if len(labels) > 15 {
		step := len(labels) / 15
		if step < 1 {
			step = 1
		}
		for i := range labels {
			if i%step != 0 {
				labels[i] = ""
			}
		}
	}

	p := plot.New()
	p.Title.Text = "Discoveries by Year"
	p.X.Label.Text = "Discovery Year"
	p.Y.Label.Text = "Number of Planets Discovered"

	bars, err := plotter.NewBarChart(counts, vg.Points(12))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	return encodePNG(p)
}

// RenderMethodBars draws discoveries per method, most common first.
func RenderMethodBars(methodCounts []planet.MethodCount) ([]byte, error) {
	if len(methodCounts) == 0 {
		return RenderEmpty()
	}

	counts := make(plotter.Values, len(methodCounts))
	labels := make([]string, len(methodCounts))
	for i, mc := range methodCounts {
		counts[i] = float64(mc.Count)
		labels[i] = mc.DiscMethod
	}

	p := plot.New()
	p.Title.Text = "Discoveries by Method"
	p.X.Label.Text = "Discovery Method"
	p.Y.Label.Text = "Number of Planets"

	bars, err := plotter.NewBarChart(counts, vg.Points(24))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	return encodePNG(p)
}
