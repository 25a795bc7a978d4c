// Package plot renders the episodic returns of training sessions
package plot

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "plot")

// Window is the default smoothing window for rendered returns
const Window = 5

const (
	width  = 1000
	height = 500
	margin = 60.0
)

// Smooth returns the moving average of values over window consecutive
// values, centred on each value, treating values outside the slice as
// zero. The result has the same length as values. If values is shorter
// than window, values is returned unchanged.
func Smooth(values []float64, window int) []float64 {
	if window < 1 || len(values) < window {
		return values
	}

	// Offset of the first value in the window from its centre, as in a
	// "same" mode convolution
	offset := window / 2

	smoothed := make([]float64, len(values))
	for i := range values {
		var sum float64
		for j := i - offset; j < i-offset+window; j++ {
			if j >= 0 && j < len(values) {
				sum += values[j]
			}
		}
		smoothed[i] = sum / float64(window)
	}
	return smoothed
}

// bounds returns the minimum and maximum over all series, widened if
// they are equal so that the range is never empty
func bounds(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		lo--
		hi++
	}
	return lo, hi
}

// Render draws the raw and smoothed episodic returns to a PNG at path.
// Render does nothing if there are no returns.
func Render(path string, returns []float64) error {
	if len(returns) == 0 {
		return nil
	}
	smoothed := Smooth(returns, Window)

	lo, hi := bounds(returns, smoothed)
	x := func(i int) float64 {
		if len(returns) == 1 {
			return margin
		}
		return margin + float64(i)*(width-2*margin)/float64(len(returns)-1)
	}
	y := func(v float64) float64 {
		return height - margin - (v-lo)*(height-2*margin)/(hi-lo)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Grid
	dc.SetRGB(0.9, 0.9, 0.9)
	dc.SetLineWidth(1)
	for i := 0; i <= 4; i++ {
		v := lo + float64(i)*(hi-lo)/4
		dc.DrawLine(margin, y(v), width-margin, y(v))
		dc.Stroke()
	}

	// Axes
	dc.SetRGB(0, 0, 0)
	dc.DrawLine(margin, height-margin, width-margin, height-margin)
	dc.DrawLine(margin, margin, margin, height-margin)
	dc.Stroke()
	for i := 0; i <= 4; i++ {
		v := lo + float64(i)*(hi-lo)/4
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), margin-5, y(v), 1, 0.5)
	}

	drawSeries := func(values []float64, lineWidth float64) {
		dc.SetLineWidth(lineWidth)
		dc.MoveTo(x(0), y(values[0]))
		for i, v := range values[1:] {
			dc.LineTo(x(i+1), y(v))
		}
		dc.Stroke()
	}
	dc.SetRGB(0.12, 0.47, 0.71)
	drawSeries(returns, 1)
	dc.SetRGB(1, 0.5, 0.05)
	drawSeries(smoothed, 2)

	// Labels and legend
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("Episode Reward Over Time", width/2, margin/2, 0.5,
		0.5)
	dc.DrawStringAnchored("Episode", width/2, height-margin/3, 0.5, 0.5)
	dc.DrawStringAnchored("Total Reward", margin/3, margin/2, 0, 0.5)

	dc.SetRGB(0.12, 0.47, 0.71)
	dc.DrawString("Raw", width-margin-80, margin+15)
	dc.SetRGB(1, 0.5, 0.05)
	dc.DrawString("Smoothed", width-margin-80, margin+30)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.WithFields(logrus.Fields{
		"path":     path,
		"episodes": len(returns),
	}).Info("saved episode rewards plot")
	return nil
}
