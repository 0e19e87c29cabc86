package grid_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dpfractal/internal/config"
	"github.com/san-kum/dpfractal/internal/grid"
	"github.com/san-kum/dpfractal/internal/pendulum"
)

func smallConfig(dir string, w, h int) config.Config {
	cfg := *config.DefaultConfig()
	cfg.Width, cfg.Height = w, h
	cfg.NumSteps = 10
	cfg.NumFrames = 3
	cfg.OutputPrefix = filepath.Join(dir, "frame")
	return cfg
}

var _ = Describe("Grid", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("construction", func() {
		It("sweeps theta1 along x and theta2 along y", func() {
			const w = 16
			g, err := grid.New(smallConfig(dir, w, 8))
			Expect(err).NotTo(HaveOccurred())

			for y := 0; y < g.Height(); y++ {
				Expect(g.Cell(0, y).Theta1).To(Equal(-math.Pi))
				Expect(g.Cell(w-1, y).Theta1).To(BeNumerically("~", math.Pi-2*math.Pi/w, 1e-12))
			}
			for x := 0; x < g.Width(); x++ {
				Expect(g.Cell(x, 0).Theta2).To(Equal(-math.Pi))
				Expect(g.Cell(x, 7).Theta2).To(BeNumerically("~", math.Pi-2*math.Pi/8, 1e-12))
			}
		})

		It("starts every cell at rest with configured arm lengths", func() {
			cfg := smallConfig(dir, 4, 4)
			cfg.Length2 = 2
			g, err := grid.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			c := g.Cell(2, 3)
			Expect(c.Omega1).To(BeZero())
			Expect(c.Omega2).To(BeZero())
			Expect(c.Length1).To(Equal(1.0))
			Expect(c.Length2).To(Equal(2.0))
			Expect(g.Frame()).To(BeZero())
		})

		It("defaults the height to the width", func() {
			g, err := grid.New(smallConfig(dir, 5, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Height()).To(Equal(5))
		})

		It("rejects an invalid configuration", func() {
			_, err := grid.New(smallConfig(dir, 0, 4))
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		})
	})

	Describe("EmitFrame", func() {
		It("writes a plain PPM with one line per row", func() {
			g, err := grid.New(smallConfig(dir, 2, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.EmitFrame()).To(Succeed())

			data, err := os.ReadFile(filepath.Join(dir, "frame0.ppm"))
			Expect(err).NotTo(HaveOccurred())

			text := string(data)
			Expect(text).To(HavePrefix("P3\n2 2\n255\n"))

			body := strings.TrimSuffix(strings.TrimPrefix(text, "P3\n2 2\n255\n"), "\n")
			lines := strings.Split(body, "\n")
			Expect(lines).To(HaveLen(2))
			for _, line := range lines {
				Expect(strings.Fields(line)).To(HaveLen(6))
				Expect(line).To(HaveSuffix("  "))
			}
			// cell (0,0) is (-pi, -pi), cell (1,0) is (0, -pi)
			Expect(lines[0]).To(HavePrefix("0 128 0  127 128 0  "))
		})

		It("does not advance the frame counter", func() {
			g, err := grid.New(smallConfig(dir, 2, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.EmitFrame()).To(Succeed())
			Expect(g.Frame()).To(BeZero())
		})

		It("fails when the output directory is missing", func() {
			g, err := grid.New(smallConfig(filepath.Join(dir, "missing"), 2, 2))
			Expect(err).NotTo(HaveOccurred())

			err = g.EmitFrame()
			Expect(err).To(HaveOccurred())

			var fe *grid.FrameError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Frame).To(BeZero())
			Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
		})
	})

	Describe("AdvanceFrame", func() {
		It("produces one numbered file per call", func() {
			g, err := grid.New(smallConfig(dir, 3, 3))
			Expect(err).NotTo(HaveOccurred())

			const n = 12
			for i := 0; i < n; i++ {
				Expect(g.AdvanceFrame(context.Background())).To(Succeed())
			}
			Expect(g.Frame()).To(Equal(n))

			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(n))
			for i := 0; i < n; i++ {
				Expect(filepath.Join(dir, "frame"+strconv.Itoa(i)+".ppm")).To(BeARegularFile())
			}
		})

		It("emits the initial condition before integrating", func() {
			cfg := smallConfig(dir, 4, 4)
			g, err := grid.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			before := g.Image()

			Expect(g.AdvanceFrame(context.Background())).To(Succeed())

			Expect(readFirstRow(filepath.Join(dir, "frame0.ppm"))).To(Equal(rowOf(before, 0)))
		})

		It("matches stepping each cell on its own, regardless of worker count", func() {
			cfg := smallConfig(dir, 7, 5)
			p := cfg.Params()

			for _, workers := range []int{1, 3, 16} {
				g, err := grid.New(cfg, grid.WithWorkers(workers))
				Expect(err).NotTo(HaveOccurred())
				Expect(g.AdvanceFrame(context.Background())).To(Succeed())
				Expect(g.AdvanceFrame(context.Background())).To(Succeed())

				for y := 0; y < 5; y++ {
					for x := 0; x < 7; x++ {
						ref := pendulum.New(-math.Pi+2*math.Pi*float64(x)/7, -math.Pi+2*math.Pi*float64(y)/5)
						for s := 0; s < 2*cfg.NumSteps; s++ {
							ref.Step(p)
						}
						Expect(g.Cell(x, y)).To(Equal(ref))
					}
				}
			}
		})

		It("keeps the hanging cell at rest", func() {
			// with W=H=4, cell (2,2) starts at (0, 0)
			g, err := grid.New(smallConfig(dir, 4, 4))
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 3; i++ {
				Expect(g.AdvanceFrame(context.Background())).To(Succeed())
			}
			c := g.Cell(2, 2)
			Expect(c.Theta1).To(BeZero())
			Expect(c.Theta2).To(BeZero())
			Expect(g.NonFinite()).To(BeZero())
		})

		It("notifies observers with the emitted image", func() {
			var frames []int
			var last image.Image
			obs := grid.ObserverFunc(func(frame int, img image.Image) error {
				frames = append(frames, frame)
				last = img
				return nil
			})

			g, err := grid.New(smallConfig(dir, 3, 2), grid.WithObserver(obs))
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 3; i++ {
				Expect(g.AdvanceFrame(context.Background())).To(Succeed())
			}
			Expect(frames).To(Equal([]int{0, 1, 2}))
			Expect(last.Bounds()).To(Equal(image.Rect(0, 0, 3, 2)))
		})

		It("stops on an observer error", func() {
			boom := errors.New("boom")
			g, err := grid.New(smallConfig(dir, 2, 2), grid.WithObserver(grid.ObserverFunc(
				func(int, image.Image) error { return boom })))
			Expect(err).NotTo(HaveOccurred())

			Expect(g.AdvanceFrame(context.Background())).To(MatchError(boom))
			Expect(g.Frame()).To(BeZero())
		})

		It("returns the context error when canceled", func() {
			g, err := grid.New(smallConfig(dir, 4, 4))
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(g.AdvanceFrame(ctx)).To(MatchError(context.Canceled))
			Expect(g.Frame()).To(BeZero())
		})
	})
})

func readFirstRow(path string) string {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	sc := bufio.NewScanner(f)
	for i := 0; i < 4; i++ {
		Expect(sc.Scan()).To(BeTrue())
	}
	return sc.Text()
}

func rowOf(img *image.RGBA, y int) string {
	var sb strings.Builder
	for x := 0; x < img.Bounds().Dx(); x++ {
		c := img.RGBAAt(x, y)
		fmt.Fprintf(&sb, "%d %d %d  ", c.R, c.G, c.B)
	}
	return sb.String()
}
