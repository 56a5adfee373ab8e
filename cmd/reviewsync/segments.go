package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reviewsync/internal/playback"
	"reviewsync/internal/session"
	"reviewsync/internal/storage"
	"reviewsync/internal/timeline"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	var (
		camera string
		after  float64
		before float64
		chunk  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Show how a camera's recordings split into playback segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			if camera == "" {
				return errors.New("--camera is required")
			}
			if before == 0 {
				before = float64(time.Now().Unix())
			}
			if after == 0 {
				after = before - cfg.Recordings.DefaultWindow().Seconds()
			}

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := session.NewManager(store, session.Options{
				ChunkDuration: cfg.Playback.ChunkSeconds(),
				AlignChunks:   cfg.Playback.AlignChunks,
				Playback:      playback.DefaultConfig(),
			}, ctx.logger)
			if err != nil {
				return err
			}

			idx, err := sessions.Segments(camera, timeline.TimeRange{After: after, Before: before}, chunk.Seconds())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSegments(camera, idx))
			return nil
		},
	}

	cmd.Flags().StringVar(&camera, "camera", "", "Camera to inspect")
	cmd.Flags().Float64Var(&after, "after", 0, "Window start (Unix seconds)")
	cmd.Flags().Float64Var(&before, "before", 0, "Window end (Unix seconds, defaults to now)")
	cmd.Flags().DurationVar(&chunk, "chunk", 0, "Segment length (defaults to playback.chunk_duration)")
	return cmd
}

func renderSegments(camera string, idx timeline.SegmentIndex) string {
	rows := make([][]string, 0, idx.Len())
	for i, r := range idx.Chunks() {
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatUnix(r.After),
			formatUnix(r.Before),
			time.Unix(int64(r.After), 0).UTC().Format(time.RFC3339),
			time.Duration(r.Duration() * float64(time.Second)).String(),
		})
	}

	parent := idx.Parent()
	header := fmt.Sprintf("%s: %s .. %s (%d segments)\n", camera, formatUnix(parent.After), formatUnix(parent.Before), idx.Len())
	return header + renderTable(
		[]string{"#", "After", "Before", "Start (UTC)", "Length"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight},
	)
}

func formatUnix(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}
