package textlayout

import (
	"strings"
	"testing"
)

func TestFitFontSize(t *testing.T) {
	cases := []struct {
		name string
		w, h float64
		n    int
		want float64
	}{
		{"empty", 100, 100, 0, 10},
		{"roomy clamps to max", 200, 100, 2, 12},
		{"tiny clamps to min", 40, 30, 5, 6},
		{"medium density", 100, 100, 60, 9},
		{"dense long text", 100, 100, 120, 7}
		{"long text capped", 400, 400, 160, 7},
		{"degenerate box", 0, 100, 3, 6},
	}
	for _, c := range cases {
		if got := FitFontSize(c.w, c.h, c.n); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFitFontSizeStaysInRange(t *testing.T) {
	for n := 1; n < 400; n += 7 {
		for _, side := range []float64{10, 55, 130, 400, 900} {
			s := FitFontSize(side, side/2, n)
			if s < MinFontSize || s > MaxFontSize {
				t.Fatalf("n=%d side=%v: size %v out of range", n, side, s)
			}
		}
	}
}

func TestFitTextCountsRunes(t *testing.T) {
	text := strings.Repeat("ü", 60)
	if got, want := FitText(100, 100, text), FitFontSize(100, 100, 60); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
