package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reviewsync/internal/api"
	"reviewsync/internal/media"
	"reviewsync/internal/playback"
	"reviewsync/internal/server"
	"reviewsync/internal/session"
	"reviewsync/internal/storage"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			logger := ctx.logger

			logger.Info().
				Str("version", api.Version).
				Msg("starting reviewsync server")

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			metadata := media.NewMetadataExtractor(logger)
			if metadata.IsAvailable() {
				logger.Info().Msg("ffprobe available - recording durations probed")
			} else {
				logger.Warn().Msg("ffprobe not found - durations taken from file times")
			}
			scanner := media.NewScanner(store, metadata, logger)

			frames, err := media.NewFrameGenerator(cfg.Previews.OutputDir, cfg.Previews.Width, logger)
			if err != nil {
				return err
			}
			if !frames.IsAvailable() {
				logger.Warn().Msg("ffmpeg not found - preview frames disabled")
			}
			previews, err := media.NewPreviewService(frames, store, cfg.Previews.CacheCapacity, cfg.Previews.CacheMaxSize, logger)
			if err != nil {
				return err
			}

			sessions, err := session.NewManager(store, session.Options{
				ChunkDuration: cfg.Playback.ChunkSeconds(),
				AlignChunks:   cfg.Playback.AlignChunks,
				Playback: playback.Config{
					SeekTolerance:      cfg.Playback.SeekTolerance.Seconds(),
					ResetScrubOnSwitch: cfg.Playback.ResetScrubOnSwitch,
				},
				SegmentCacheSize: cfg.Playback.SegmentCacheSize,
				IdleTimeout:      cfg.Playback.IdleTimeout,
			}, logger)
			if err != nil {
				return err
			}

			srv := server.New(cfg, logger, store, sessions)
			srv.SetScanner(scanner)
			srv.SetPreviewService(previews)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go sessions.Run(runCtx)

			if cfg.Recordings.Path != "" && cfg.Recordings.ScanOnStart {
				go func() {
					if _, err := scanner.ScanPath(runCtx, cfg.Recordings.Path); err != nil {
						logger.Error().Err(err).Msg("initial scan failed")
					}
				}()
			}

			go func() {
				<-runCtx.Done()
				logger.Info().Msg("received shutdown signal")

				sessions.CloseAll(context.Background())
				if err := srv.Shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown error")
				}
			}()

			if err := srv.Start(); err != nil {
				return err
			}

			logger.Info().Msg("server stopped")
			return nil
		},
	}
}
