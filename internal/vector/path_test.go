package vector

import "testing"

func TestPathSVGRounding(t *testing.T) {
	var p Path
	p.MoveTo(1.23456, 2)
	p.LineTo(3, 4)
	p.ArcTo(5, 5, 0, true, false, 10, 10)
	p.Close()
	want := "M 1.235 2 L 3 4 A 5 5 0 1 0 10 10 Z"
	if got := p.SVG(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestPathEndReturnsToSubpathStart(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.LineTo(0, 10)
	p.Close()
	if e := p.End(); e != (Pt{0, 0}) {
		t.Fatalf("end after close = %+v", e)
	}
	b := p.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 10 || b.H != 10 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestSubpathsAndClosed(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.Close()
	p.MoveTo(20, 0)
	p.LineTo(30, 0)
	if len(p.Subpaths()) != 2 {
		t.Fatalf("expected 2 subpaths")
	}
	if p.Closed() {
		t.Fatalf("open second subpath must not count as closed")
	}
	p.Close()
	if !p.Closed() {
		t.Fatalf("expected closed")
	}
	var empty Path
	if empty.Closed() {
		t.Fatalf("empty path is not closed")
	}
}

func TestFlattenArcEndsExactly(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.ArcTo(50, 50, 0, false, true, 100, 0)
	pts := p.Flatten(16)
	if last := pts[len(pts)-1]; last != (Pt{100, 0}) {
		t.Fatalf("arc must end on its endpoint, got %+v", last)
	}
	// Sweeping clockwise on screen from left to right passes above the chord.
	b := p.Bounds()
	if !almostEq(b.Y, -50, 1e-6) || !almostEq(b.W, 100, 1e-6) {
		t.Fatalf("unexpected arc bounds: %+v", b)
	}
}

func TestFlattenQuadHitsEndpoints(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.QuadTo(50, 100, 100, 0)
	pts := p.Flatten(4)
	if len(pts) != 5 {
		t.Fatalf("expected 5 points, got %d", len(pts))
	}
	if !nearPt(pts[2], Pt{50, 50}) {
		t.Fatalf("quad midpoint = %+v", pts[2])
	}
	if pts[4] != (Pt{100, 0}) {
		t.Fatalf("quad end = %+v", pts[4])
	}
}
