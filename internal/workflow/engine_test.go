package workflow

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"balloonstudio/internal/domain"
	"balloonstudio/internal/editor"
)

var fixedNow = time.UnixMilli(1700000000000)

type fakeAI struct {
	dets    []Detection
	detErr  error
	panels  []Detection
	ocr     func([]TextRequest) []TextResult
	clean   string
	cleanEr error
	during  func() // runs while a call is "in flight"
	calls   int

	gotItems   []TextRequest
	gotRegions []EraseRegion
}

func (f *fakeAI) inflight() {
	f.calls++
	if f.during != nil {
		f.during()
	}
}

func (f *fakeAI) DetectBalloons(context.Context, string) ([]Detection, error) {
	f.inflight()
	return f.dets, f.detErr
}

func (f *fakeAI) RecognizeText(_ context.Context, _ string, items []TextRequest) ([]TextResult, error) {
	f.inflight()
	f.gotItems = items
	return f.ocr(items), nil
}

func (f *fakeAI) Inpaint(_ context.Context, _ string, regions []EraseRegion) (string, error) {
	f.inflight()
	f.gotRegions = regions
	return f.clean, f.cleanEr
}

func (f *fakeAI) DetectPanels(context.Context, string) ([]Detection, error) {
	f.inflight()
	return f.panels, nil
}

func setup(t *testing.T, ai *fakeAI, page domain.Page) (*Engine, *editor.Editor) {
	t.Helper()
	ed := editor.New(editor.Options{Now: func() time.Time { return fixedNow }})
	eng := New(ai, ed, Options{Now: func() time.Time { return fixedNow }})
	eng.BeginPageLoad(page.ID)
	if err := eng.CompletePageLoad(page); err != nil {
		t.Fatalf("load: %v", err)
	}
	return eng, ed
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestEndToEndScenario(t *testing.T) {
	ai := &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}}
	ai.ocr = func(items []TextRequest) []TextResult {
		var out []TextResult
		for _, it := range items {
			if strings.HasPrefix(it.ID, "balloon-") {
				out = append(out, TextResult{ID: " " + it.ID + " ", Text: "Oi!"})
			}
		}
		return out
	}
	eng, ed := setup(t, ai, domain.Page{ID: "A", ImageRef: "a.png", Width: 800, Height: 1200})

	n, err := eng.RunMaskDetection(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("detect: n=%d err=%v", n, err)
	}
	if eng.State() != domain.StateMask {
		t.Fatalf("state after detect: %s", eng.State())
	}
	mask := ed.Balloons()[0]
	if mask.ID != "mask-1700000000000-0" || mask.Kind != domain.KindMask {
		t.Fatalf("mask: %+v", mask)
	}
	if !near(mask.Box.YMin, 100) || !near(mask.Box.XMin, 100) || !near(mask.Box.YMax, 200) || !near(mask.Box.XMax, 300) {
		t.Fatalf("mask box: %+v", mask.Box)
	}
	if ed.Selected() != mask.ID || !ed.MasksVisible() {
		t.Fatalf("first mask should be selected with masks visible")
	}

	if n, err := eng.ConvertMasksToBalloons(); err != nil || n != 1 {
		t.Fatalf("convert: n=%d err=%v", n, err)
	}
	if eng.State() != domain.StateMask {
		t.Fatalf("conversion must not confirm on its own")
	}
	if err := eng.ConfirmMasks(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if eng.State() != domain.StateConfirmed || ed.Selected() != "" {
		t.Fatalf("confirm: state %s selected %q", eng.State(), ed.Selected())
	}

	if n, err := eng.RunTextRecognition(context.Background()); err != nil || n != 1 {
		t.Fatalf("ocr: n=%d err=%v", n, err)
	}
	if len(ai.gotItems) != 1 || ai.gotItems[0].Text != "" {
		t.Fatalf("ocr payload: %+v", ai.gotItems)
	}
	if px := ai.gotItems[0].Box; !near(px.X, 80) || !near(px.Y, 120) || !near(px.W, 160) || !near(px.H, 120) {
		t.Fatalf("ocr box in pixels: %+v", px)
	}

	list := ed.Balloons()
	if len(list) != 2 {
		t.Fatalf("final list: %+v", list)
	}
	if list[0].ID != mask.ID || list[0].Box != mask.Box || list[0].Kind != domain.KindMask {
		t.Fatalf("mask changed: %+v", list[0])
	}
	if list[1].ID != "balloon-"+mask.ID || list[1].Box != mask.Box || list[1].Text != "Oi!" {
		t.Fatalf("balloon: %+v", list[1])
	}
	if !eng.HasRecognizedText() || !eng.HasBalloons() || !eng.HasMasks() || eng.HasPanels() {
		t.Fatalf("queries out of sync")
	}

	var labels []string
	for _, h := range ed.History() {
		labels = append(labels, h.Label)
	}
	if strings.Join(labels, ",") != "Detect Masks,Convert Masks,Recognize Text" {
		t.Fatalf("history: %v", labels)
	}
}

func TestMaskDetectionReplacesOnlyMasks(t *testing.T) {
	ai := &fakeAI{dets: []Detection{{Box: [4]float64{100, 100, 200, 200}}, {Box: [4]float64{300, 300, 300, 400}}}}
	keep := editor.NewManualBalloon()
	keep.ID = "manual"
	old := editor.NewMask("mask-old", domain.Box{YMin: 1, XMin: 1, YMax: 50, XMax: 50}, "", nil)
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 1000, Height: 1000, Balloons: []domain.Balloon{keep, old}})

	n, err := eng.RunMaskDetection(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v (degenerate detection should be skipped)", n, err)
	}
	list := ed.Balloons()
	if len(list) != 2 || list[0].ID != "manual" || list[1].ID != "mask-1700000000000-0" {
		t.Fatalf("list: %+v", list)
	}
	if ed.Undo(); len(ed.Balloons()) != 2 || ed.Balloons()[1].ID != "mask-old" {
		t.Fatalf("detection should undo as one step")
	}
}

func TestMaskDetectionCarriesContour(t *testing.T) {
	ai := &fakeAI{dets: []Detection{{
		Box:     [4]float64{0.1, 0.1, 0.2, 0.3},
		Polygon: [][2]float64{{0.1, 0.1}, {0.3, 0.1}, {0.3, 0.2}, {0.1, 0.2}},
	}}}
	_, ed := setupDetect(t, ai)
	if c := ed.Balloons()[0].Contour; len(c) != 4 || !near(c[1].X, 300) || !near(c[2].Y, 200) {
		t.Fatalf("contour: %+v", c)
	}
}

func setupDetect(t *testing.T, ai *fakeAI) (*Engine, *editor.Editor) {
	t.Helper()
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 1000, Height: 1000})
	if _, err := eng.RunMaskDetection(context.Background()); err != nil {
		t.Fatalf("detect: %v", err)
	}
	return eng, ed
}

func TestEmptyDetectionStaysIdle(t *testing.T) {
	eng, ed := setup(t, &fakeAI{}, domain.Page{ID: "A", Width: 10, Height: 10})
	_, err := eng.RunMaskDetection(context.Background())
	if !errors.Is(err, domain.ErrEmptyDetectionResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
	if eng.State() != domain.StateIdle || ed.CanUndo() {
		t.Fatalf("empty detection must not change anything")
	}
}

func TestMissingDimensionsSkipTheCall(t *testing.T) {
	ai := &fakeAI{}
	eng, _ := setup(t, ai, domain.Page{ID: "A"})
	if _, err := eng.RunMaskDetection(context.Background()); !errors.Is(err, domain.ErrMissingImageDimensions) {
		t.Fatalf("detect: %v", err)
	}
	if _, err := eng.RunInpainting(context.Background()); !errors.Is(err, domain.ErrMissingImageDimensions) {
		t.Fatalf("inpaint: %v", err)
	}
	if ai.calls != 0 {
		t.Fatalf("service should not be called, got %d calls", ai.calls)
	}
}

func TestServiceFailureIsClassified(t *testing.T) {
	boom := errors.New("503 from detector")
	eng, ed := setup(t, &fakeAI{detErr: boom}, domain.Page{ID: "A", Width: 10, Height: 10})
	_, err := eng.RunMaskDetection(context.Background())
	if !errors.Is(err, domain.ErrExternalService) || !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if ed.CanUndo() || eng.State() != domain.StateIdle {
		t.Fatalf("failure must not mutate")
	}
}

func TestPageSwitchDiscardsInFlightResponse(t *testing.T) {
	ai := &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}}
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 100, Height: 100})
	ai.during = func() { eng.BeginPageLoad("B") }

	_, err := eng.RunMaskDetection(context.Background())
	if !errors.Is(err, domain.ErrStaleResponse) {
		t.Fatalf("expected stale response, got %v", err)
	}
	if len(ed.Balloons()) != 0 || eng.State() != domain.StateIdle {
		t.Fatalf("stale response leaked into the document")
	}
	if _, err := eng.RunMaskDetection(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("calls during a page load should be refused, got %v", err)
	}

	ai.during = nil
	if err := eng.CompletePageLoad(domain.Page{ID: "A"}); !errors.Is(err, domain.ErrStaleResponse) {
		t.Fatalf("late load of the old page: %v", err)
	}
	if err := eng.CompletePageLoad(domain.Page{ID: "B", Width: 100, Height: 100}); err != nil {
		t.Fatalf("load B: %v", err)
	}
	if ed.PageID() != "B" || len(ed.Balloons()) != 0 {
		t.Fatalf("page B should be empty")
	}
}

func TestReturningToPageDiscardsResponseFromEarlierVisit(t *testing.T) {
	ai := &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}}
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 100, Height: 100})
	ai.during = func() {
		eng.BeginPageLoad("B")
		if err := eng.CompletePageLoad(domain.Page{ID: "B", Width: 100, Height: 100}); err != nil {
			t.Errorf("load B: %v", err)
		}
		eng.BeginPageLoad("A")
	}

	_, err := eng.RunMaskDetection(context.Background())
	if !errors.Is(err, domain.ErrStaleResponse) {
		t.Fatalf("expected stale response, got %v", err)
	}
	if ed.PageID() != "B" || len(ed.Balloons()) != 0 {
		t.Fatalf("response for the first visit of A reached page %q: %+v", ed.PageID(), ed.Balloons())
	}
	if eng.State() != domain.StateIdle {
		t.Fatalf("state while A reloads: %s", eng.State())
	}

	ai.during = nil
	if err := eng.CompletePageLoad(domain.Page{ID: "A", Width: 100, Height: 100}); err != nil {
		t.Fatalf("reload A: %v", err)
	}
	if n, err := eng.RunMaskDetection(context.Background()); err != nil || n != 1 {
		t.Fatalf("detect after reload: n=%d err=%v", n, err)
	}
}

func TestConvertRefusedWhileLoading(t *testing.T) {
	eng, ed := setupDetect(t, &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}})
	eng.BeginPageLoad("B")
	if _, err := eng.ConvertMasksToBalloons(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("convert during load: %v", err)
	}
	if len(ed.Balloons()) != 1 {
		t.Fatalf("list changed during load: %+v", ed.Balloons())
	}
}

func TestCompletePageLoadDerivesState(t *testing.T) {
	mask := editor.NewMask("m", domain.Box{XMax: 50, YMax: 50}, "", nil)
	eng, _ := setup(t, &fakeAI{}, domain.Page{ID: "A", Balloons: []domain.Balloon{mask}})
	if eng.State() != domain.StateMask {
		t.Fatalf("masks only: %s", eng.State())
	}
	eng.BeginPageLoad("B")
	if eng.State() != domain.StateIdle {
		t.Fatalf("switch must reset to idle")
	}
	eng.CompletePageLoad(domain.Page{ID: "B", Balloons: []domain.Balloon{mask, editor.ConvertMask(mask)}})
	if eng.State() != domain.StateConfirmed {
		t.Fatalf("converted page: %s", eng.State())
	}
}

func TestConfirmNeedsMasks(t *testing.T) {
	eng, _ := setup(t, &fakeAI{}, domain.Page{ID: "A"})
	if err := eng.ConfirmMasks(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("got %v", err)
	}
	if _, err := eng.ConvertMasksToBalloons(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("convert without masks: %v", err)
	}
}

func TestConfirmNeedsConvertedBalloon(t *testing.T) {
	eng, _ := setupDetect(t, &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}})
	if err := eng.ConfirmMasks(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("confirm before convert: %v", err)
	}
	if eng.State() != domain.StateMask {
		t.Fatalf("state: %s", eng.State())
	}
	if _, err := eng.ConvertMasksToBalloons(); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if err := eng.ConfirmMasks(); err != nil || eng.State() != domain.StateConfirmed {
		t.Fatalf("confirm after convert: state %s err %v", eng.State(), err)
	}
}

func TestConvertIsIdempotent(t *testing.T) {
	eng, ed := setupDetect(t, &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}})
	eng.ConvertMasksToBalloons()
	if n, err := eng.ConvertMasksToBalloons(); n != 0 || err != nil {
		t.Fatalf("second conversion: n=%d err=%v", n, err)
	}
	if len(ed.Balloons()) != 2 {
		t.Fatalf("duplicates created: %d", len(ed.Balloons()))
	}
}

func TestOCRMatchesTrimmedIDs(t *testing.T) {
	abc := editor.ConvertMask(editor.NewMask("x", domain.Box{XMax: 100, YMax: 100}, "", nil))
	abc.ID = "abc"
	xyz := abc.Clone()
	xyz.ID, xyz.Text = "xyz", "keep"
	ai := &fakeAI{ocr: func([]TextRequest) []TextResult {
		return []TextResult{{ID: " abc ", Text: "Hello"}, {ID: "ghost", Text: "Boo"}}
	}}
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 100, Height: 100, Balloons: []domain.Balloon{abc, xyz}})
	n, err := eng.RunTextRecognition(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	a, _ := ed.Balloon("abc")
	x, _ := ed.Balloon("xyz")
	if a.Text != "Hello" || x.Text != "keep" {
		t.Fatalf("texts: %q %q", a.Text, x.Text)
	}
}

func TestOCRNeedsBalloons(t *testing.T) {
	eng, _ := setupDetect(t, &fakeAI{dets: []Detection{{Box: [4]float64{0.1, 0.1, 0.2, 0.3}}}})
	if _, err := eng.RunTextRecognition(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("got %v", err)
	}
}

func TestInpaintingIsAtomic(t *testing.T) {
	b := editor.NewManualBalloon()
	b.ID = "b"
	b.Live = &domain.Live{X: 80, Y: 120, Width: 80, Height: 60, ScaleX: 2}
	ai := &fakeAI{cleanEr: errors.New("gpu on fire")}
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 800, Height: 1200, Balloons: []domain.Balloon{b}})
	ed.SetShowOriginal(true)

	if _, err := eng.RunInpainting(context.Background()); !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("got %v", err)
	}
	if d := ed.Document(); d.Page.CleanImageRef != "" || !d.ShowOriginal {
		t.Fatalf("failed inpainting changed the page: %+v", d)
	}
	if want := (domain.Box{YMin: 100, XMin: 100, YMax: 150, XMax: 300}); ai.gotRegions[0].Box != want {
		t.Fatalf("region: got %+v want %+v", ai.gotRegions[0].Box, want)
	}

	ai.cleanEr, ai.clean = nil, "   "
	if _, err := eng.RunInpainting(context.Background()); !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("blank reference should fail: %v", err)
	}

	ai.clean = "clean/a.png"
	ref, err := eng.RunInpainting(context.Background())
	if err != nil || ref != "clean/a.png" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
	if d := ed.Document(); d.Page.CleanImageRef != "clean/a.png" || d.ShowOriginal {
		t.Fatalf("clean image not applied: %+v", d)
	}
}

func TestPanelDetection(t *testing.T) {
	ai := &fakeAI{panels: []Detection{
		{Box: [4]float64{10, 10, 60, 110}},
		{Box: [4]float64{0.5, 0.5, 0.5, 0.6}},
	}}
	eng, ed := setup(t, ai, domain.Page{ID: "A", Width: 1000, Height: 1000})
	n, err := eng.RunPanelDetection(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	p := ed.Panels()[0]
	if p.ID != "panel-1700000000000-0" || p.Order != 1 || len(p.Points) != 4 {
		t.Fatalf("panel: %+v", p)
	}
	if !near(p.Box.XMin, 15) || !near(p.Box.YMin, 15) || !near(p.Box.XMax, 105) || !near(p.Box.YMax, 55) {
		t.Fatalf("inset box: %+v", p.Box)
	}
	if eng.State() != domain.StateIdle {
		t.Fatalf("panel detection must not move the balloon pipeline")
	}
	if h := ed.History(); len(h) != 1 || h[0].Label != LabelDetectPanels {
		t.Fatalf("history: %+v", h)
	}
}

func TestBlankTextIsNotRecognized(t *testing.T) {
	mask := editor.NewMask("m", domain.Box{XMax: 50, YMax: 50}, "", nil)
	b := editor.ConvertMask(mask)
	b.Text = " \t\n"
	eng, _ := setup(t, &fakeAI{}, domain.Page{ID: "A", Balloons: []domain.Balloon{mask, b}})
	if eng.HasRecognizedText() {
		t.Fatalf("whitespace-only text counted as recognized")
	}
}
