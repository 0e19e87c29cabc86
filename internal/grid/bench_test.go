package grid

import (
	"context"
	"testing"

	"github.com/san-kum/dpfractal/internal/config"
)

func benchGrid(b *testing.B, workers int) {
	cfg := *config.DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	cfg.NumSteps = 10
	cfg.Workers = workers
	cfg.OutputPrefix = b.TempDir() + "/f"

	g, err := New(cfg)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := g.sweep(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSweepSerial(b *testing.B)   { benchGrid(b, 1) }
func BenchmarkSweepParallel(b *testing.B) { benchGrid(b, 0) }

func BenchmarkEmitFrame(b *testing.B) {
	cfg := *config.DefaultConfig()
	cfg.Width, cfg.Height = 128, 128
	cfg.OutputPrefix = b.TempDir() + "/f"

	g, err := New(cfg)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := g.EmitFrame(); err != nil {
			b.Fatal(err)
		}
	}
}
