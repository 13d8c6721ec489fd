package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/workflow"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Token: "secret", RatePerSec: 100})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestDetectBalloonsSendsHeadersAndParses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathDetectBalloons || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing auth or request id: %v", r.Header)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		if in["image_path"] != "pages/1.png" {
			t.Errorf("payload: %v", in)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"balloons":[{"box":[0.1,0.1,0.2,0.3],"text":"Hi","polygon":[[0.1,0.1],[0.3,0.2]]}]}`)
	})
	dets, err := c.DetectBalloons(context.Background(), "pages/1.png")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(dets) != 1 || dets[0].Box != [4]float64{0.1, 0.1, 0.2, 0.3} || dets[0].Text != "Hi" || len(dets[0].Polygon) != 2 {
		t.Fatalf("detections: %+v", dets)
	}
}

func TestRecognizeTextPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Balloons []struct {
				ID   string     `json:"id"`
				Box  [4]float64 `json:"box"`
				Text string     `json:"text"`
			} `json:"balloons"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		if len(in.Balloons) != 1 || in.Balloons[0].Box != [4]float64{80, 120, 160, 120} || in.Balloons[0].Text != "" {
			t.Errorf("payload: %+v", in)
		}
		io.WriteString(w, `{"balloons":[{"id":" balloon-m ","text":"Oi!"}]}`)
	})
	res, err := c.RecognizeText(context.Background(), "p.png", []workflow.TextRequest{
		{ID: "balloon-m", Box: coords.PixelBox{X: 80, Y: 120, W: 160, H: 120}},
	})
	if err != nil {
		t.Fatalf("ocr: %v", err)
	}
	if len(res) != 1 || res[0].ID != " balloon-m " || res[0].Text != "Oi!" {
		t.Fatalf("results: %+v", res)
	}
}

func TestInpaintSendsNormalizedBoxes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"box_2d":[100,100,150,300]`) {
			t.Errorf("payload: %s", body)
		}
		io.WriteString(w, `{"clean_image_url":"clean/1.png"}`)
	})
	ref, err := c.Inpaint(context.Background(), "p.png", []workflow.EraseRegion{
		{ID: "b", Box: domain.Box{YMin: 100, XMin: 100, YMax: 150, XMax: 300}},
	})
	if err != nil || ref != "clean/1.png" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
}

func TestDetectPanels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"panels":[{"box":[10,10,60,110]},{"box":[0,0,5,5]}]}`)
	})
	dets, err := c.DetectPanels(context.Background(), "p.png")
	if err != nil || len(dets) != 2 || dets[0].Box[3] != 110 {
		t.Fatalf("dets=%+v err=%v", dets, err)
	}
}

func TestStatusErrorCarriesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"detail":"model not loaded"}`)
	})
	_, err := c.DetectBalloons(context.Background(), "p.png")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway || se.Detail != "model not loaded" {
		t.Fatalf("got %v", err)
	}
}

func TestSchemaViolationIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"balloons":[{"box":[1,2,3]}]}`)
	})
	if _, err := c.DetectBalloons(context.Background(), "p.png"); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestErrorDetailFallsBackToBody(t *testing.T) {
	if got := errorDetail([]byte("upstream timeout")); got != "upstream timeout" {
		t.Fatalf("got %q", got)
	}
	if got := errorDetail([]byte(`{"message":"busy"}`)); got != "busy" {
		t.Fatalf("got %q", got)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"panels":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.DetectPanels(ctx, "p.png"); err == nil {
		t.Fatalf("expected context error")
	}
}
