package vector

import "testing"

func TestPolygonArea(t *testing.T) {
	sq := []Pt{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if a := PolygonArea(sq); a != 100 {
		t.Fatalf("area = %v", a)
	}
	// Winding does not matter.
	rev := []Pt{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	if a := PolygonArea(rev); a != 100 {
		t.Fatalf("reversed area = %v", a)
	}
}

func TestDynamicCornerRadius(t *testing.T) {
	if r := DynamicCornerRadius(nil, 200, 100); r != DefaultCornerRadius {
		t.Fatalf("no contour: %v", r)
	}
	boxy := []Pt{{0, 0}, {100, 0}, {200, 0}, {200, 100}, {0, 100}}
	if r := DynamicCornerRadius(boxy, 200, 100); r != 8 {
		t.Fatalf("boxy contour: %v", r)
	}
	diamond := []Pt{{100, 0}, {150, 25}, {200, 50}, {150, 75}, {100, 100}, {50, 75}, {0, 50}, {50, 25}}
	if r := DynamicCornerRadius(diamond, 200, 100); r != 40 {
		t.Fatalf("oval contour: %v", r)
	}
	if r := DynamicCornerRadius(nil, 30, 30); r != 6 {
		t.Fatalf("small balloon: %v", r)
	}
}

func TestFillRatioDegenerateBox(t *testing.T) {
	if f := FillRatio([]Pt{{0, 0}, {1, 1}, {0, 1}}, 0, 10); f != 0.8 {
		t.Fatalf("fill ratio = %v", f)
	}
}
