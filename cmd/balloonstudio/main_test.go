package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"balloonstudio/internal/aiclient"
	"balloonstudio/internal/config"
	"balloonstudio/internal/storage"
)

func testEnv(t *testing.T, serviceURL string) string {
	t.Helper()
	keyring.MockInit()
	t.Setenv(config.EnvConfigDir, t.TempDir())
	t.Setenv(config.EnvServiceURL, serviceURL)
	t.Setenv(config.EnvServiceRate, "0")
	for _, k := range []string{config.EnvServiceToken, config.EnvPGDSN, config.EnvLogFile, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	path := filepath.Join(dir, "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestVersionAndUnknownCommand(t *testing.T) {
	testEnv(t, "http://localhost:1")
	if code, out, _ := runCLI(t, "version"); code != 0 || !strings.HasPrefix(out, "balloonstudio ") {
		t.Fatalf("version: code %d out %q", code, out)
	}
	if code, _, errOut := runCLI(t, "frobnicate"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("unknown: code %d err %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "detect"); code != 2 {
		t.Fatalf("missing image: code %d, want 2", code)
	}
}

func TestShowStartsFreshPageFromImage(t *testing.T) {
	img := testEnv(t, "http://localhost:1")
	code, out, errOut := runCLI(t, "show", img)
	if code != 0 {
		t.Fatalf("show: code %d err %s", code, errOut)
	}
	for _, want := range []string{"(40x30)", "State:    idle", "Balloons: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(storage.SidecarPath(img)); !os.IsNotExist(err) {
		t.Fatalf("show must not write a document: %v", err)
	}
}

func TestDetectConvertHistoryAndSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != aiclient.PathDetectBalloons {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"balloons":[{"box":[4,3,20,15],"text":"Hello there"}]}`)
	}))
	defer srv.Close()
	img := testEnv(t, srv.URL)

	code, out, errOut := runCLI(t, "detect", img)
	if code != 0 || !strings.Contains(out, "Detected 1 masks.") {
		t.Fatalf("detect: code %d out %q err %s", code, out, errOut)
	}
	if _, err := os.Stat(storage.SidecarPath(img)); err != nil {
		t.Fatalf("document not written: %v", err)
	}

	code, out, errOut = runCLI(t, "convert", img)
	if code != 0 || !strings.Contains(out, "Converted 1 masks.") {
		t.Fatalf("convert: code %d out %q err %s", code, out, errOut)
	}

	code, out, _ = runCLI(t, "show", img)
	if code != 0 || !strings.Contains(out, "State:    confirmed") || !strings.Contains(out, `"Hello there"`) {
		t.Fatalf("show after convert:\n%s", out)
	}

	code, out, _ = runCLI(t, "history", img)
	if code != 0 || !strings.Contains(out, "Detect Masks") || !strings.Contains(out, "Convert Masks") {
		t.Fatalf("history:\n%s", out)
	}

	code, out, _ = runCLI(t, "search", filepath.Dir(img), "hello")
	if code != 0 || !strings.Contains(out, "[Hello]") {
		t.Fatalf("search:\n%s", out)
	}
}

func TestDetectServiceFailureExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"model not loaded"}`, http.StatusBadGateway)
	}))
	defer srv.Close()
	img := testEnv(t, srv.URL)

	code, _, errOut := runCLI(t, "detect", img)
	if code != 1 || !strings.Contains(errOut, "model not loaded") {
		t.Fatalf("code %d err %q", code, errOut)
	}
	if _, err := os.Stat(storage.SidecarPath(img)); !os.IsNotExist(err) {
		t.Fatalf("failed detection must not write a document: %v", err)
	}
}

func TestExportSVG(t *testing.T) {
	img := testEnv(t, "http://localhost:1")
	out := filepath.Join(t.TempDir(), "out")
	code, stdout, errOut := runCLI(t, "export", "-formats", "svg", "-out", out, img)
	if code != 0 {
		t.Fatalf("export: code %d err %s", code, errOut)
	}
	if !strings.Contains(stdout, "1 files") {
		t.Fatalf("export output: %s", stdout)
	}
	entries, err := os.ReadDir(out)
	if err != nil || len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".svg" {
		t.Fatalf("export dir: %v %v", entries, err)
	}
}

func TestPushWithoutDSNIsUsageError(t *testing.T) {
	img := testEnv(t, "http://localhost:1")
	if code, _, errOut := runCLI(t, "push", img); code != 2 || !strings.Contains(errOut, "Postgres DSN") {
		t.Fatalf("code %d err %q", code, errOut)
	}
}
