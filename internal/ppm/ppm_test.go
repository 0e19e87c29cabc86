package ppm

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
)

type checker struct{ w, h int }

func (c checker) Bounds() (int, int) { return c.w, c.h }
func (c checker) RGB(x, y int) (uint8, uint8, uint8) {
	return uint8(x), uint8(y), uint8(x + y)
}

func TestEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, checker{3, 2}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	want := "P3\n3 2\n255\n" +
		"0 0 0  1 0 1  2 0 2  \n" +
		"0 1 1  1 1 2  2 1 3  \n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%q\nwant\n%q", got, want)
	}
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, checker{0, 0}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if buf.String() != "P3\n0 0\n255\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeWriteError(t *testing.T) {
	if err := Encode(failWriter{}, checker{4, 4}); err == nil {
		t.Error("expected write error")
	}
}

func TestFrameName(t *testing.T) {
	tests := []struct {
		prefix string
		frame  int
		want   string
	}{
		{"out/frame", 0, "out/frame0.ppm"},
		{"out/", 10, "out/10.ppm"},
		{"", 7, "7.ppm"},
	}
	for _, tt := range tests {
		if got := FrameName(tt.prefix, tt.frame); got != tt.want {
			t.Errorf("FrameName(%q, %d) = %q, want %q", tt.prefix, tt.frame, got, tt.want)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{uint8(x * 60), 128, uint8(y * 100), 0xff})
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, ImageSource{src}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Errorf("pixels differ after round trip")
	}
}

func TestDecodeCommentsAndScale(t *testing.T) {
	in := "P3 # magic\n# a comment line\n1 1\n15\n15 0 7\n"
	img, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	c := img.RGBAAt(0, 0)
	if c.R != 255 || c.G != 0 || c.B != 119 || c.A != 255 {
		t.Errorf("unexpected pixel %+v", c)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"binary magic", "P6\n1 1\n255\n"},
		{"truncated header", "P3\n2"},
		{"truncated body", "P3\n1 1\n255\n1 2\n"},
		{"sample too large", "P3\n1 1\n255\n1 2 300\n"},
		{"not a number", "P3\n1 x\n255\n"},
		{"zero max", "P3\n1 1\n0\n0 0 0\n"},
		{"huge size", "P3\n3037000500 3037000500\n255\n"},
		{"too many pixels", "P3\n65536 65536\n255\n0 0 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.in)); !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}
}
