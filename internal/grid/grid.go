// Package grid sweeps a rectangle of independent double pendulums whose
// initial angles cover the torus [-pi, pi) x [-pi, pi), and writes the
// colored state of every cell as one image per frame.
package grid

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dpfractal/internal/config"
	"github.com/san-kum/dpfractal/internal/pendulum"
	"github.com/san-kum/dpfractal/internal/ppm"
)

// Observer is notified after each frame image has been written.
type Observer interface {
	OnFrame(frame int, img image.Image) error
}

type ObserverFunc func(frame int, img image.Image) error

func (f ObserverFunc) OnFrame(frame int, img image.Image) error { return f(frame, img) }

type Option func(*Grid)

func WithObserver(o Observer) Option {
	return func(g *Grid) { g.observers = append(g.observers, o) }
}

// WithWorkers overrides the configured worker count; n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(g *Grid) { g.workers = n }
}

type Grid struct {
	width, height int
	cells         []pendulum.State
	params        pendulum.Params
	numSteps      int
	prefix        string
	frame         int
	workers       int
	observers     []Observer
}

func New(cfg config.Config, opts ...Option) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w, h := cfg.Resolution()
	g := &Grid{
		width:    w,
		height:   h,
		cells:    make([]pendulum.State, w*h),
		params:   cfg.Params(),
		numSteps: cfg.NumSteps,
		prefix:   cfg.OutputPrefix,
		workers:  cfg.Workers,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.workers <= 0 {
		g.workers = runtime.GOMAXPROCS(0)
	}

	for y := 0; y < h; y++ {
		theta2 := -math.Pi + 2*math.Pi*float64(y)/float64(h)
		for x := 0; x < w; x++ {
			theta1 := -math.Pi + 2*math.Pi*float64(x)/float64(w)
			g.cells[y*w+x] = pendulum.NewWithLengths(theta1, theta2, cfg.Length1, cfg.Length2)
		}
	}

	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }
func (g *Grid) Frame() int  { return g.frame }

// NumSteps is the number of integration sub-steps per frame.
func (g *Grid) NumSteps() int { return g.numSteps }

func (g *Grid) Cell(x, y int) pendulum.State {
	return g.cells[y*g.width+x]
}

// Bounds and RGB make the grid a ppm.Source.
func (g *Grid) Bounds() (w, h int) { return g.width, g.height }

func (g *Grid) RGB(x, y int) (r, gr, b uint8) {
	return g.cells[y*g.width+x].Color()
}

func (g *Grid) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for i := range g.cells {
		r, gr, b := g.cells[i].Color()
		img.Pix[i*4] = r
		img.Pix[i*4+1] = gr
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// FramePath is the file the current frame will be written to.
func (g *Grid) FramePath() string {
	return ppm.FrameName(g.prefix, g.frame)
}

// EmitFrame writes the current state as <prefix><frame>.ppm and then
// notifies observers. The target directory must already exist.
func (g *Grid) EmitFrame() error {
	path := g.FramePath()

	f, err := os.Create(path)
	if err != nil {
		return &FrameError{Frame: g.frame, Path: path, Err: err}
	}
	if err := ppm.Encode(f, g); err != nil {
		f.Close()
		return &FrameError{Frame: g.frame, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FrameError{Frame: g.frame, Path: path, Err: err}
	}

	if len(g.observers) == 0 {
		return nil
	}
	img := g.Image()
	for _, o := range g.observers {
		if err := o.OnFrame(g.frame, img); err != nil {
			return &FrameError{Frame: g.frame, Path: path, Err: err}
		}
	}
	return nil
}

// AdvanceFrame emits the current frame, runs NumSteps sub-steps on every
// cell and increments the frame counter. If ctx is canceled during the
// sweep the grid is left partially stepped and should be discarded.
func (g *Grid) AdvanceFrame(ctx context.Context) error {
	if err := g.EmitFrame(); err != nil {
		return err
	}
	if err := g.sweep(ctx); err != nil {
		return err
	}
	g.frame++
	return nil
}

// sweep steps rows in parallel. Each task owns a disjoint block of rows and
// runs all sub-steps for its cells; cells never read each other.
func (g *Grid) sweep(ctx context.Context) error {
	if g.numSteps == 0 {
		return ctx.Err()
	}

	rows := g.height / (g.workers * 4)
	if rows < 1 {
		rows = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for y0 := 0; y0 < g.height; y0 += rows {
		y1 := min(y0+rows, g.height)
		block := g.cells[y0*g.width : y1*g.width]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stepAll(block, g.params, g.numSteps)
			return nil
		})
	}

	return eg.Wait()
}

func stepAll(cells []pendulum.State, p pendulum.Params, n int) {
	for i := range cells {
		c := &cells[i]
		for s := 0; s < n; s++ {
			c.Step(p)
		}
	}
}

// NonFinite counts cells whose angles or velocities have become NaN or Inf.
func (g *Grid) NonFinite() int {
	n := 0
	for i := range g.cells {
		if !g.cells[i].Finite() {
			n++
		}
	}
	return n
}

type FrameError struct {
	Frame int
	Path  string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("grid: frame %d (%s): %v", e.Frame, e.Path, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
