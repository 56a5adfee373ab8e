package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reviewsync/internal/media"
	"reviewsync/internal/storage"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Index the recordings directory once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			if path == "" {
				path = cfg.Recordings.Path
			}
			if path == "" {
				return errors.New("no recordings path: set recordings.path or pass --path")
			}

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			scanner := media.NewScanner(store, media.NewMetadataExtractor(ctx.logger), ctx.logger)
			result, err := scanner.ScanPath(cmd.Context(), path)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Cameras", "Recordings", "Skipped", "Removed", "Size"},
				[][]string{{
					strconv.Itoa(result.Cameras),
					strconv.Itoa(result.Recordings),
					strconv.Itoa(result.Skipped),
					strconv.Itoa(result.Removed),
					humanize.Bytes(uint64(result.Bytes)),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Recordings root (defaults to recordings.path)")
	return cmd
}
