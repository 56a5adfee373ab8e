package media

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// probeTimeout bounds a single ffprobe run.
const probeTimeout = 15 * time.Second

var ErrNoDuration = errors.New("media: no duration reported")

type Metadata struct {
	Duration   float64 // seconds
	Width      int
	Height     int
	VideoCodec string
	Bitrate    int64
}

type MetadataExtractor struct {
	ffprobePath string
	logger      zerolog.Logger
}

func NewMetadataExtractor(logger zerolog.Logger) *MetadataExtractor {
	ffprobePath := "ffprobe"
	if path, err := exec.LookPath("ffprobe"); err == nil {
		ffprobePath = path
	}

	return &MetadataExtractor{
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

func (m *MetadataExtractor) IsAvailable() bool {
	_, err := exec.LookPath(m.ffprobePath)
	return err == nil
}

func (m *MetadataExtractor) Extract(ctx context.Context, filePath string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format=duration,bit_rate:stream=codec_type,codec_name,width,height,duration",
		"-of", "json",
		filePath,
	}

	output, err := exec.CommandContext(ctx, m.ffprobePath, args...).Output()
	if err != nil {
		m.logger.Debug().Err(err).Str("file", filePath).Msg("ffprobe failed")
		return nil, err
	}

	return parseProbeOutput(output)
}

// Duration implements DurationProber.
func (m *MetadataExtractor) Duration(ctx context.Context, filePath string) (float64, error) {
	meta, err := m.Extract(ctx, filePath)
	if err != nil {
		return 0, err
	}
	if meta.Duration <= 0 {
		return 0, ErrNoDuration
	}
	return meta.Duration, nil
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

func parseProbeOutput(output []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, err
	}

	meta := &Metadata{}

	if probe.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.Duration = dur
		}
	}

	if probe.Format.BitRate != "" {
		if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
			meta.Bitrate = br
		}
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" || meta.VideoCodec != "" {
			continue
		}
		meta.VideoCodec = strings.ToUpper(stream.CodecName)
		meta.Width = stream.Width
		meta.Height = stream.Height
		// segments written by some recorders carry no container duration
		if meta.Duration == 0 && stream.Duration != "" {
			if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				meta.Duration = dur
			}
		}
	}

	return meta, nil
}
