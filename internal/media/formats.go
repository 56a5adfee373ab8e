package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var supportedRecordingExtensions = map[string]bool{
	".mp4": true,
	".m4v": true,
	".mkv": true,
	".ts":  true,
	".mov": true,
}

const (
	dayLayout  = "2006-01-02"
	timeLayout = "15-04-05"
)

func IsSupportedRecording(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedRecordingExtensions[ext]
}

func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".ts":
		return "video/mp2t"
	case ".mov":
		return "video/quicktime"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// ParseRecordingStart returns the start of a recording named
// <HH-MM-SS>[suffix].<ext> inside a <YYYY-MM-DD> directory, as UTC Unix
// seconds.
func ParseRecordingStart(day, filename string) (float64, error) {
	date, err := time.ParseInLocation(dayLayout, day, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("day directory %q: %w", day, err)
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if len(base) < len(timeLayout) {
		return 0, fmt.Errorf("recording name %q: too short", filename)
	}
	clock, err := time.ParseInLocation(timeLayout, base[:len(timeLayout)], time.UTC)
	if err != nil {
		return 0, fmt.Errorf("recording name %q: %w", filename, err)
	}

	start := date.Add(time.Duration(clock.Hour())*time.Hour +
		time.Duration(clock.Minute())*time.Minute +
		time.Duration(clock.Second())*time.Second)
	return float64(start.Unix()), nil
}
