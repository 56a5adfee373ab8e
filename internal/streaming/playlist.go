package streaming

import (
	"errors"
	"sort"
	"time"

	"github.com/grafov/m3u8"

	"reviewsync/internal/storage"
)

var ErrEmptyPlaylist = errors.New("streaming: no recordings in range")

// BuildPlaylist returns a closed VOD playlist over recs in start order. Every
// file carries its own timestamps, so each segment after the first starts a
// discontinuity, and each segment is stamped with its wall-clock start.
func BuildPlaylist(recs []storage.Recording, uri func(storage.Recording) string) (*m3u8.MediaPlaylist, error) {
	if len(recs) == 0 {
		return nil, ErrEmptyPlaylist
	}

	sorted := make([]storage.Recording, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	pl, err := m3u8.NewMediaPlaylist(0, uint(len(sorted)))
	if err != nil {
		return nil, err
	}
	pl.MediaType = m3u8.VOD

	for i, rec := range sorted {
		if err := pl.Append(uri(rec), rec.Duration, ""); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := pl.SetDiscontinuity(); err != nil {
				return nil, err
			}
		}
		if err := pl.SetProgramDateTime(unixTime(rec.StartTime)); err != nil {
			return nil, err
		}
	}

	pl.Close()
	return pl, nil
}

func unixTime(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
