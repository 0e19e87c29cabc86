// Package render drives a pendulum grid through a fixed number of frames.
package render

import (
	"context"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/san-kum/dpfractal/internal/grid"
)

// Progress is reported after every completed frame.
type Progress struct {
	Frame     int
	Total     int
	Elapsed   time.Duration
	NonFinite int
}

type Summary struct {
	Frames    int
	Steps     int
	Cells     int
	NonFinite int
	Elapsed   time.Duration
}

type Renderer struct {
	grid     *grid.Grid
	frames   int
	numSteps int
	logger   kitlog.Logger
	progress func(Progress)
}

type Option func(*Renderer)

func WithLogger(l kitlog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

func WithProgress(fn func(Progress)) Option {
	return func(r *Renderer) { r.progress = fn }
}

func New(g *grid.Grid, frames int, opts ...Option) *Renderer {
	r := &Renderer{
		grid:     g,
		frames:   frames,
		numSteps: g.NumSteps(),
		logger:   kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run advances the grid until the frame counter reaches the configured
// total. Cancellation is checked between frames; any frame error is fatal.
func (r *Renderer) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	cells := r.grid.Width() * r.grid.Height()
	sum := Summary{Cells: cells}

	level.Info(r.logger).Log("msg", "render started", "frames", r.frames,
		"width", r.grid.Width(), "height", r.grid.Height(), "substeps", r.numSteps)

	lastBad := 0
	for r.grid.Frame() < r.frames {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			level.Warn(r.logger).Log("msg", "render interrupted", "frame", r.grid.Frame(), "err", err)
			return sum, err
		}

		frameStart := time.Now()
		path := r.grid.FramePath()
		if err := r.grid.AdvanceFrame(ctx); err != nil {
			sum.Elapsed = time.Since(start)
			level.Error(r.logger).Log("msg", "frame failed", "frame", r.grid.Frame(), "err", err)
			return sum, err
		}
		sum.Frames++
		sum.Steps += r.numSteps

		bad := r.grid.NonFinite()
		if bad > lastBad {
			level.Warn(r.logger).Log("msg", "non-finite cells", "frame", r.grid.Frame()-1, "count", bad)
			lastBad = bad
		}
		sum.NonFinite = bad

		level.Debug(r.logger).Log("msg", "frame written", "frame", r.grid.Frame()-1,
			"path", path, "took", time.Since(frameStart))

		if r.progress != nil {
			r.progress(Progress{
				Frame:     r.grid.Frame(),
				Total:     r.frames,
				Elapsed:   time.Since(start),
				NonFinite: bad,
			})
		}
	}

	sum.Elapsed = time.Since(start)
	level.Info(r.logger).Log("msg", "render finished", "frames", sum.Frames, "took", sum.Elapsed)
	return sum, nil
}
