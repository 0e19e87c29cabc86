// Package ppm reads and writes plain (ASCII, "P3") portable pixmaps.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

const (
	magic    = "P3"
	maxValue = 255

	// maxPixels bounds the image a header may declare.
	maxPixels = 1 << 28
)

var ErrFormat = errors.New("ppm: invalid format")

// Source is any rectangular grid of 8-bit RGB pixels.
type Source interface {
	Bounds() (w, h int)
	RGB(x, y int) (r, g, b uint8)
}

// FrameName returns "<prefix><frame>.ppm" with no zero padding.
func FrameName(prefix string, frame int) string {
	return prefix + strconv.Itoa(frame) + ".ppm"
}

// Encode writes src row by row, y ascending then x ascending. Each pixel is
// written as "R G B" followed by two spaces.
func Encode(w io.Writer, src Source) error {
	width, height := src.Bounds()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n%d\n", magic, width, height, maxValue); err != nil {
		return err
	}

	buf := make([]byte, 0, 16)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b := src.RGB(x, y)
			buf = strconv.AppendUint(buf[:0], uint64(r), 10)
			buf = append(buf, ' ')
			buf = strconv.AppendUint(buf, uint64(g), 10)
			buf = append(buf, ' ')
			buf = strconv.AppendUint(buf, uint64(b), 10)
			buf = append(buf, ' ', ' ')
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ImageSource adapts an image.Image as a Source.
type ImageSource struct {
	Img image.Image
}

func (s ImageSource) Bounds() (w, h int) {
	b := s.Img.Bounds()
	return b.Dx(), b.Dy()
}

func (s ImageSource) RGB(x, y int) (r, g, b uint8) {
	o := s.Img.Bounds().Min
	c := color.RGBAModel.Convert(s.Img.At(o.X+x, o.Y+y)).(color.RGBA)
	return c.R, c.G, c.B
}

// Decode parses a P3 stream. Comments starting with '#' are skipped and
// sample values are rescaled to 8 bits when the header declares a
// different maximum.
func Decode(r io.Reader) (*image.RGBA, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(scanTokens)

	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: unexpected end of data reading %s", ErrFormat, what)
		}
		return sc.Text(), nil
	}
	nextInt := func(what string) (int, error) {
		tok, err := next(what)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: bad %s %q", ErrFormat, what, tok)
		}
		return v, nil
	}

	m, err := next("magic")
	if err != nil {
		return nil, err
	}
	if m != magic {
		return nil, fmt.Errorf("%w: magic %q", ErrFormat, m)
	}

	width, err := nextInt("width")
	if err != nil {
		return nil, err
	}
	height, err := nextInt("height")
	if err != nil {
		return nil, err
	}
	if width > 0 && height > maxPixels/width {
		return nil, fmt.Errorf("%w: size %dx%d too large", ErrFormat, width, height)
	}
	maxv, err := nextInt("max value")
	if err != nil {
		return nil, err
	}
	if maxv == 0 || maxv > 65535 {
		return nil, fmt.Errorf("%w: max value %d", ErrFormat, maxv)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height*3; i++ {
		v, err := nextInt("sample")
		if err != nil {
			return nil, err
		}
		if v > maxv {
			return nil, fmt.Errorf("%w: sample %d exceeds %d", ErrFormat, v, maxv)
		}
		px := i / 3
		img.Pix[px*4+i%3] = uint8(v * maxValue / maxv)
		if i%3 == 2 {
			img.Pix[px*4+3] = 0xff
		}
	}

	return img, nil
}

// scanTokens splits on whitespace and drops '#' comments up to end of line.
func scanTokens(data []byte, atEOF bool) (advance int, token []byte, err error) {
	i := 0
	for i < len(data) {
		c := data[i]
		if c == '#' {
			j := i
			for j < len(data) && data[j] != '\n' {
				j++
			}
			if j == len(data) && !atEOF {
				return i, nil, nil
			}
			i = j
			continue
		}
		if !isSpace(c) {
			break
		}
		i++
	}

	start := i
	for i < len(data) {
		if isSpace(data[i]) || data[i] == '#' {
			return i, data[start:i], nil
		}
		i++
	}

	if atEOF && i > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
