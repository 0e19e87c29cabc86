package trace

import (
	"errors"
	"io"

	"github.com/guptarohit/asciigraph"
	"github.com/wcharczuk/go-chart/v2"
)

var ErrTooFewSamples = errors.New("trace: need at least two samples to plot")

// PlotPNG renders the (theta1, theta2) trajectory as a PNG line chart.
func PlotPNG(w io.Writer, samples []Sample) error {
	if len(samples) < 2 {
		return ErrTooFewSamples
	}
	theta1, theta2 := Angles(samples)

	graph := chart.Chart{
		Width:  800,
		Height: 800,
		XAxis:  chart.XAxis{Name: "theta1"},
		YAxis:  chart.YAxis{Name: "theta2"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "trajectory",
				XValues: theta1,
				YValues: theta2,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 1.0,
				},
			},
		},
	}

	return graph.Render(chart.PNG, w)
}

// PlotASCII draws theta1 and theta2 against sample index for the terminal.
func PlotASCII(samples []Sample, width, height int) string {
	if len(samples) == 0 {
		return ""
	}
	theta1, theta2 := Angles(samples)

	return asciigraph.PlotMany([][]float64{theta1, theta2},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
		asciigraph.Caption("theta1 (red), theta2 (blue)"),
	)
}
