package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestSigner(t *testing.T) (*Signer, *time.Time) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "portraits"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "portraits", "grak.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1_700_000_000, 0)
	s := NewSigner(dir, "https://npc.example.com/", []byte("k"))
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSignedURLRoundTrip(t *testing.T) {
	s, now := newTestSigner(t)

	raw, ok := s.SignedURL("portraits/grak.png", time.Hour)
	if !ok {
		t.Fatal("SignedURL reported missing asset")
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "npc.example.com" || u.Path != "/assets/portraits/grak.png" {
		t.Errorf("url = %s", raw)
	}

	exp, sig := u.Query().Get("exp"), u.Query().Get("sig")
	if _, err := s.Verify("portraits/grak.png", exp, sig); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if _, err := s.Verify("portraits/lyra.png", exp, sig); err != ErrBadSignature {
		t.Errorf("Verify other path = %v, want ErrBadSignature", err)
	}

	*now = now.Add(2 * time.Hour)
	if _, err := s.Verify("portraits/grak.png", exp, sig); err != ErrExpired {
		t.Errorf("Verify after expiry = %v, want ErrExpired", err)
	}
}

func TestSignedURLUnavailable(t *testing.T) {
	s, _ := newTestSigner(t)
	for _, p := range []string{"", "portraits/missing.png", "../etc/passwd", "/etc/passwd", "portraits"} {
		if u, ok := s.SignedURL(p, time.Hour); ok {
			t.Errorf("SignedURL(%q) = %q, want unavailable", p, u)
		}
	}
	noKey := NewSigner(s.Dir(), "https://x", nil)
	if _, ok := noKey.SignedURL("portraits/grak.png", time.Hour); ok {
		t.Error("SignedURL without key succeeded")
	}
}

func TestHandler(t *testing.T) {
	s, _ := newTestSigner(t)
	mux := http.NewServeMux()
	mux.Handle("GET /assets/{path...}", s.Handler())

	raw, _ := s.SignedURL("portraits/grak.png", time.Hour)
	u, _ := url.Parse(raw)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"valid", u.RequestURI(), http.StatusOK},
		{"tampered", strings.Replace(u.RequestURI(), "sig=", "sig=00", 1), http.StatusForbidden},
		{"unsigned", "/assets/portraits/grak.png", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.status)
			}
		})
	}
}

func TestImportPortrait(t *testing.T) {
	s := NewSigner(t.TempDir(), "http://localhost", []byte("k"))

	src := image.NewRGBA(image.Rect(0, 0, 300, 120))
	for x := range 300 {
		for y := range 120 {
			src.Set(x, y, color.RGBA{R: uint8(x), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	id := uuid.New()
	rel, err := s.ImportPortrait(&buf, id, 64)
	if err != nil {
		t.Fatalf("ImportPortrait: %v", err)
	}
	if rel != "portraits/"+id.String()+".png" {
		t.Errorf("rel = %q", rel)
	}

	f, err := os.Open(filepath.Join(s.Dir(), rel))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("stored file is not PNG: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 64 {
		t.Errorf("stored size = %dx%d, want 64x64", cfg.Width, cfg.Height)
	}

	if _, err := s.ImportPortrait(strings.NewReader("not an image"), id, 64); err == nil {
		t.Error("ImportPortrait accepted garbage")
	}
}
