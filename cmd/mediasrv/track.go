package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bnema/mediasrv/config"
	"github.com/bnema/mediasrv/internal/adapter/transcoder/ffmpeg"
	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/service"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Manage the track catalog",
	}

	trackCmd.AddCommand(newTrackAddCommand(ctx))
	trackCmd.AddCommand(newTrackListCommand(ctx))
	trackCmd.AddCommand(newTrackRemoveCommand(ctx))

	return trackCmd
}

func catalogFor(cfg *config.Config, s *stores, probe bool) *service.CatalogService {
	if !probe {
		return service.NewCatalogService(s.tracks, nil)
	}
	return service.NewCatalogService(s.tracks, ffmpeg.NewProber(cfg.FFprobePath))
}

func newTrackAddCommand(ctx *commandContext) *cobra.Command {
	var noProbe bool

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Add audio files to the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(cfg *config.Config, s *stores) error {
				catalog := catalogFor(cfg, s, !noProbe)
				out := cmd.OutOrStdout()

				var failed int
				for _, path := range args {
					track, err := catalog.AddTrack(cmd.Context(), path)
					switch {
					case errors.Is(err, service.ErrTrackExists):
						fmt.Fprintf(out, "Already in catalog as track #%d: %s\n", track.ID, track.Path)
					case err != nil:
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					default:
						fmt.Fprintf(out, "Added track #%d: %s\n", track.ID, track.Title)
					}
				}

				if failed > 0 {
					return fmt.Errorf("%d of %d files could not be added", failed, len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "Skip ffprobe and store the file without audio metadata")
	return cmd
}

func newTrackListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(cfg *config.Config, s *stores) error {
				tracks, err := catalogFor(cfg, s, false).ListTracks(cmd.Context())
				if err != nil {
					return err
				}
				if len(tracks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTracks(tracks))
				return nil
			})
		},
	}
}

func renderTracks(tracks []*domain.Track) string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			orDash(t.Codec),
			durationLabel(t),
			humanize.IBytes(uint64(max(t.FileSize, 0))),
			t.Path,
		})
	}
	return renderTable([]string{"ID", "Title", "Codec", "Duration", "Size", "Path"}, rows, 1, 4, 5)
}

func newTrackRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a track from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid track id %q", args[0])
			}

			return ctx.withStores(func(cfg *config.Config, s *stores) error {
				err := catalogFor(cfg, s, false).RemoveTrack(cmd.Context(), id)
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("track #%d not found", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed track #%d\n", id)
				return nil
			})
		},
	}
}

func durationLabel(t *domain.Track) string {
	if t.Duration <= 0 {
		return "-"
	}
	return t.DurationLabel()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
