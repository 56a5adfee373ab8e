package streaming

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"reviewsync/internal/media"
	"reviewsync/internal/storage"
)

type Handler struct {
	logger zerolog.Logger
}

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger.With().Str("component", "streaming").Logger()}
}

// ServeFile streams a recording with byte range support.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) {
	file, err := os.Open(filePath)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Cannot read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", media.GetContentType(filePath))
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, filepath.Base(filePath), stat.ModTime(), file)
}

// ServePlaylist writes the VOD playlist of recs. Segment URIs point at the
// recording file endpoint under prefix.
func (h *Handler) ServePlaylist(w http.ResponseWriter, recs []storage.Recording, prefix string) error {
	pl, err := BuildPlaylist(recs, func(rec storage.Recording) string {
		return fmt.Sprintf("%s/recordings/%s/file", prefix, rec.ID)
	})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", media.GetContentType("index.m3u8"))
	w.Header().Set("Cache-Control", "no-cache")
	start := recs[0].StartTime
	for _, rec := range recs[1:] {
		start = min(start, rec.StartTime)
	}
	w.Header().Set("X-Playlist-Start", strconv.FormatFloat(start, 'f', -1, 64))
	if _, err := pl.Encode().WriteTo(w); err != nil {
		h.logger.Debug().Err(err).Msg("playlist write failed")
	}
	return nil
}
