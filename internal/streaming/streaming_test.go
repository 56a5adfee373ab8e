package streaming

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"reviewsync/internal/storage"
)

func TestBuildPlaylist(t *testing.T) {
	recs := []storage.Recording{
		{ID: "b", StartTime: 1010, Duration: 10},
		{ID: "a", StartTime: 1000, Duration: 10},
		{ID: "c", StartTime: 1030, Duration: 12.5},
	}

	pl, err := BuildPlaylist(recs, func(r storage.Recording) string { return "/f/" + r.ID })
	if err != nil {
		t.Fatal(err)
	}
	out := pl.String()

	if !strings.Contains(out, "#EXT-X-PLAYLIST-TYPE:VOD") || !strings.Contains(out, "#EXT-X-ENDLIST") {
		t.Errorf("not a closed VOD playlist:\n%s", out)
	}
	if n := strings.Count(out, "#EXT-X-DISCONTINUITY"); n != 2 {
		t.Errorf("discontinuities = %d, want 2", n)
	}
	if ia, ib, ic := strings.Index(out, "/f/a"), strings.Index(out, "/f/b"), strings.Index(out, "/f/c"); !(ia < ib && ib < ic) {
		t.Errorf("segments out of order:\n%s", out)
	}
	if !strings.Contains(out, "1970-01-01T00:16:40") {
		t.Errorf("missing program date time of first segment:\n%s", out)
	}

	if _, err := BuildPlaylist(nil, nil); !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("empty playlist: %v", err)
	}
}

func TestServePlaylist(t *testing.T) {
	h := NewHandler(zerolog.Nop())
	rec := httptest.NewRecorder()

	err := h.ServePlaylist(rec, []storage.Recording{
		{ID: "r2", StartTime: 1060, Duration: 60},
		{ID: "r1", StartTime: 1000, Duration: 60},
	}, "/api/v1")
	if err != nil {
		t.Fatal(err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.apple.mpegurl" {
		t.Errorf("content type = %q", ct)
	}
	if start := rec.Header().Get("X-Playlist-Start"); start != "1000" {
		t.Errorf("X-Playlist-Start = %q", start)
	}
	if !strings.Contains(rec.Body.String(), "/api/v1/recordings/r1/file") {
		t.Errorf("body:\n%s", rec.Body.String())
	}
}

func TestServeFileRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "12-00-00.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/file", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req, path)

	if rec.Code != http.StatusPartialContent || rec.Body.String() != "2345" {
		t.Errorf("code=%d body=%q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("content type = %q", ct)
	}

	rec = httptest.NewRecorder()
	h.ServeFile(rec, httptest.NewRequest(http.MethodGet, "/file", nil), path+".missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file code = %d", rec.Code)
	}
}
