package vector

import "testing"

func TestSnapRectToEdge(t *testing.T) {
	moving := R(103, 50, 50, 50)
	out, guides := SnapRect(moving, []Rect{R(100, 200, 80, 80)}, 6)
	if out.X != 100 || out.Y != 50 {
		t.Fatalf("snapped = %+v", out)
	}
	if len(guides) != 1 || !guides[0].Vertical || guides[0].Position != 100 {
		t.Fatalf("guides = %+v", guides)
	}
	if guides[0].From.Y != 50 || guides[0].To.Y != 280 {
		t.Fatalf("guide extent = %+v", guides[0])
	}
}

func TestSnapRectCentersAndNoAnchors(t *testing.T) {
	out, guides := SnapRect(R(0, 0, 10, 10), nil, 0)
	if out != R(0, 0, 10, 10) || guides != nil {
		t.Fatalf("no anchors should not snap")
	}
	// Center 22 vs anchor center 20 snaps on x; y is far away.
	out, guides = SnapRect(R(17, 500, 10, 10), []Rect{R(0, 0, 40, 40)}, 3)
	if out.X != 15 || len(guides) != 1 || !guides[0].Center {
		t.Fatalf("center snap: %+v %+v", out, guides)
	}
}
