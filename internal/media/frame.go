package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

// FrameGenerator renders single JPEG frames out of recordings with ffmpeg.
type FrameGenerator struct {
	ffmpegPath string
	outputDir  string
	width      int
	logger     zerolog.Logger
}

func NewFrameGenerator(outputDir string, width int, logger zerolog.Logger) (*FrameGenerator, error) {
	ffmpegPath := "ffmpeg"
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		ffmpegPath = path
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	if width <= 0 {
		width = 320
	}

	return &FrameGenerator{
		ffmpegPath: ffmpegPath,
		outputDir:  outputDir,
		width:      width,
		logger:     logger,
	}, nil
}

func (g *FrameGenerator) IsAvailable() bool {
	_, err := exec.LookPath(g.ffmpegPath)
	return err == nil
}

// Path returns where the frame stored under key lives on disk.
func (g *FrameGenerator) Path(key string) string {
	return filepath.Join(g.outputDir, key+".jpg")
}

// Generate extracts the frame offset seconds into videoPath and returns the
// path of the written JPEG. An existing file is reused.
func (g *FrameGenerator) Generate(ctx context.Context, videoPath string, offset float64, key string) (string, error) {
	outputPath := g.Path(key)

	if _, err := os.Stat(outputPath); err == nil {
		return outputPath, nil
	}
	if offset < 0 {
		offset = 0
	}

	args := []string{
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", g.width),
		"-q:v", "4",
		"-y",
		outputPath,
	}

	output, err := exec.CommandContext(ctx, g.ffmpegPath, args...).CombinedOutput()
	if err != nil {
		g.logger.Debug().
			Err(err).
			Str("video", videoPath).
			Str("output", string(output)).
			Msg("ffmpeg frame extraction failed")
		return "", fmt.Errorf("ffmpeg failed: %w", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("frame file not created")
	}

	return outputPath, nil
}
