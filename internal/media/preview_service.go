package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"reviewsync/internal/cache"
	"reviewsync/internal/storage"
)

var (
	ErrNoRecording       = errors.New("media: no recording at that time")
	ErrFfmpegUnavailable = errors.New("media: ffmpeg not available")
)

// RecordingLocator finds the recording of a camera that contains a time.
type RecordingLocator interface {
	RecordingAt(camera string, ts float64) (*storage.Recording, error)
}

// FrameSource renders frames keyed by name.
type FrameSource interface {
	IsAvailable() bool
	Path(key string) string
	Generate(ctx context.Context, videoPath string, offset float64, key string) (string, error)
}

// PreviewService serves scrub preview frames at whole-second resolution.
type PreviewService struct {
	frames     FrameSource
	recordings RecordingLocator
	cache      *cache.LRUCache
	logger     zerolog.Logger
}

func NewPreviewService(
	frames FrameSource,
	recordings RecordingLocator,
	cacheCapacity int,
	cacheMaxSize int64,
	logger zerolog.Logger,
) (*PreviewService, error) {
	c, err := cache.NewLRUCache(cacheCapacity, cacheMaxSize)
	if err != nil {
		return nil, fmt.Errorf("preview cache: %w", err)
	}

	return &PreviewService{
		frames:     frames,
		recordings: recordings,
		cache:      c,
		logger:     logger.With().Str("component", "previews").Logger(),
	}, nil
}

func frameKey(camera string, second int64) string {
	return fmt.Sprintf("%s-%d", camera, second)
}

// GetFrame returns the JPEG frame of camera at ts from the cache, from disk,
// or by rendering it from the recording that contains ts.
func (s *PreviewService) GetFrame(ctx context.Context, camera string, ts float64) ([]byte, error) {
	second := int64(math.Floor(ts))
	key := frameKey(camera, second)

	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	if data, err := os.ReadFile(s.frames.Path(key)); err == nil {
		s.cache.Set(key, data)
		return data, nil
	}

	rec, err := s.recordings.RecordingAt(camera, float64(second))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoRecording
	}

	if !s.frames.IsAvailable() {
		return nil, ErrFfmpegUnavailable
	}

	path, err := s.frames.Generate(ctx, rec.Path, float64(second)-rec.StartTime, key)
	if err != nil {
		s.logger.Error().Err(err).Str("camera", camera).Float64("time", ts).Msg("failed to render preview frame")
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, data)
	s.logger.Debug().
		Str("camera", camera).
		Int64("second", second).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("preview frame rendered")
	return data, nil
}

// CacheStats returns the number of cached frames and their total size.
func (s *PreviewService) CacheStats() (count int, size int64) {
	return s.cache.Len(), s.cache.Size()
}
