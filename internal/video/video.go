// Package video records grid frames into a Motion-JPEG AVI file.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/icza/mjpeg"

	"github.com/san-kum/dpfractal/internal/ppm"
)

const DefaultQuality = 90

var ErrSize = errors.New("video: frame size does not match the stream")

type Writer struct {
	aw      mjpeg.AviWriter
	w, h    int
	quality int
	frames  int
	buf     bytes.Buffer
}

func New(path string, w, h, fps int) (*Writer, error) {
	if w <= 0 || h <= 0 || fps <= 0 {
		return nil, fmt.Errorf("video: invalid stream %dx%d@%d", w, h, fps)
	}
	aw, err := mjpeg.New(path, int32(w), int32(h), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("video: create %s: %w", path, err)
	}
	return &Writer{aw: aw, w: w, h: h, quality: DefaultQuality}, nil
}

func (v *Writer) AddFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != v.w || b.Dy() != v.h {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrSize, b.Dx(), b.Dy(), v.w, v.h)
	}

	v.buf.Reset()
	if err := jpeg.Encode(&v.buf, img, &jpeg.Options{Quality: v.quality}); err != nil {
		return err
	}
	if err := v.aw.AddFrame(v.buf.Bytes()); err != nil {
		return err
	}
	v.frames++
	return nil
}

// OnFrame lets the writer observe a grid directly.
func (v *Writer) OnFrame(_ int, img image.Image) error {
	return v.AddFrame(img)
}

func (v *Writer) Frames() int { return v.frames }

func (v *Writer) Close() error {
	return v.aw.Close()
}

// Assemble reads frames <prefix>0.ppm .. <prefix>(n-1).ppm and writes them
// to a new video at path. It returns the number of frames written.
func Assemble(path, prefix string, n, fps int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("video: no frames to assemble")
	}

	first, err := readFrame(ppm.FrameName(prefix, 0))
	if err != nil {
		return 0, err
	}
	b := first.Bounds()

	v, err := New(path, b.Dx(), b.Dy(), fps)
	if err != nil {
		return 0, err
	}

	img := image.Image(first)
	for i := 0; i < n; i++ {
		if i > 0 {
			if img, err = readFrame(ppm.FrameName(prefix, i)); err != nil {
				v.Close()
				return v.Frames(), err
			}
		}
		if err := v.AddFrame(img); err != nil {
			v.Close()
			return v.Frames(), fmt.Errorf("video: frame %d: %w", i, err)
		}
	}

	return v.Frames(), v.Close()
}

func readFrame(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := ppm.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("video: %s: %w", path, err)
	}
	return img, nil
}
