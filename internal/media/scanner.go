package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"reviewsync/internal/storage"
)

// DurationProber reports the playable length of a recording file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ScanResult summarises one pass over the recordings tree.
type ScanResult struct {
	Cameras    int   `json:"cameras"`
	Recordings int   `json:"recordings"`
	Skipped    int   `json:"skipped"`
	Removed    int   `json:"removed"`
	Bytes      int64 `json:"bytes"`
}

// Scanner indexes a recordings tree laid out as
// <root>/<camera>/<YYYY-MM-DD>/<HH-MM-SS>*.<ext>.
type Scanner struct {
	storage  *storage.SQLiteStorage
	prober   DurationProber
	logger   zerolog.Logger
	scanning bool
	mu       sync.Mutex
}

func NewScanner(store *storage.SQLiteStorage, prober DurationProber, logger zerolog.Logger) *Scanner {
	return &Scanner{
		storage: store,
		prober:  prober,
		logger:  logger.With().Str("component", "scanner").Logger(),
	}
}

func (s *Scanner) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// ScanPath indexes every recording under root. A scan already in progress
// makes the call a no-op.
func (s *Scanner) ScanPath(ctx context.Context, root string) (ScanResult, error) {
	var result ScanResult

	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return result, nil
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	if root == "" {
		s.logger.Warn().Msg("no recordings path configured")
		return result, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return result, err
	}
	if !info.IsDir() {
		return result, nil
	}

	root = filepath.Clean(root)
	s.logger.Info().Str("path", root).Msg("scanning recordings")
	started := time.Now()

	removed, err := s.CleanupDeletedFiles()
	if err != nil {
		s.logger.Warn().Err(err).Msg("cleanup failed, continuing with scan")
	}
	result.Removed = removed

	entries, err := os.ReadDir(root)
	if err != nil {
		return result, err
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cameraPath := filepath.Join(root, entry.Name())
		camera := &storage.Camera{
			ID:        entry.Name(),
			Name:      entry.Name(),
			Path:      cameraPath,
			CreatedAt: time.Now(),
		}
		if err := s.storage.UpsertCamera(camera); err != nil {
			s.logger.Error().Err(err).Str("camera", camera.ID).Msg("failed to store camera")
			continue
		}
		result.Cameras++

		if err := s.scanCamera(ctx, camera.ID, cameraPath, &result); err != nil {
			s.logger.Error().Err(err).Str("camera", camera.ID).Msg("failed to scan camera")
		}
	}

	s.logger.Info().
		Int("cameras", result.Cameras).
		Int("recordings", result.Recordings).
		Int("skipped", result.Skipped).
		Int("removed", result.Removed).
		Str("size", humanize.Bytes(uint64(result.Bytes))).
		Dur("took", time.Since(started)).
		Msg("scan completed")

	return result, nil
}

func (s *Scanner) scanCamera(ctx context.Context, camera, cameraPath string, result *ScanResult) error {
	days, err := os.ReadDir(cameraPath)
	if err != nil {
		return err
	}

	for _, day := range days {
		if !day.IsDir() || strings.HasPrefix(day.Name(), ".") {
			continue
		}

		dayPath := filepath.Join(cameraPath, day.Name())
		files, err := os.ReadDir(dayPath)
		if err != nil {
			s.logger.Error().Err(err).Str("path", dayPath).Msg("failed to read day directory")
			continue
		}

		for _, file := range files {
			if file.IsDir() || !IsSupportedRecording(file.Name()) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := s.recordingFromFile(ctx, camera, dayPath, day.Name(), file)
			if err != nil {
				result.Skipped++
				s.logger.Debug().Err(err).Str("file", file.Name()).Msg("skipping recording")
				continue
			}

			if err := s.storage.CreateRecording(rec); err != nil {
				s.logger.Error().Err(err).Str("path", rec.Path).Msg("failed to store recording")
				continue
			}

			result.Recordings++
			result.Bytes += rec.Size
			s.logger.Debug().
				Str("camera", camera).
				Float64("start", rec.StartTime).
				Float64("duration", rec.Duration).
				Str("size", humanize.Bytes(uint64(rec.Size))).
				Msg("added recording")
		}
	}

	return nil
}

func (s *Scanner) recordingFromFile(ctx context.Context, camera, dayPath, day string, file os.DirEntry) (*storage.Recording, error) {
	start, err := ParseRecordingStart(day, file.Name())
	if err != nil {
		return nil, err
	}

	info, err := file.Info()
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(dayPath, file.Name())
	duration := 0.0
	if s.prober != nil {
		if d, err := s.prober.Duration(ctx, fullPath); err == nil {
			duration = d
		}
	}
	// without a probe result the file is assumed to end when it was last written
	if duration <= 0 {
		duration = float64(info.ModTime().Unix()) - start
	}
	if duration <= 0 {
		return nil, ErrNoDuration
	}

	return &storage.Recording{
		ID:        generateID(fullPath),
		Camera:    camera,
		Path:      fullPath,
		StartTime: start,
		EndTime:   start + duration,
		Duration:  duration,
		Size:      info.Size(),
		CreatedAt: time.Now(),
	}, nil
}

func generateID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// CleanupDeletedFiles removes recordings whose files no longer exist and
// returns how many were removed.
func (s *Scanner) CleanupDeletedFiles() (int, error) {
	paths, err := s.storage.GetAllRecordingPaths()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for id, path := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := s.storage.DeleteRecording(id); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("failed to delete recording")
			continue
		}
		deleted++
		s.logger.Debug().Str("path", path).Msg("deleted missing recording")
	}

	if deleted > 0 {
		s.logger.Info().Int("recordings", deleted).Msg("cleanup completed")
	}

	return deleted, nil
}
