package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amaumene/vortex/internal/models"
)

func newPlaylistCommand(a *app) *cobra.Command {
	var (
		sel   selectionFlags
		entry int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "playlist <url>",
		Short: "Download one entry of a playlist, or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if entry == 0 && !all {
				return &models.ValidationError{Field: "entry", Message: "pass --entry N or --all"}
			}
			selector, err := sel.selector()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			descriptor, err := a.analyzeController().Analyze(ctx, args[0])
			if err != nil {
				return err
			}
			if !descriptor.IsPlaylist() {
				return &models.ValidationError{Field: "url", Message: "is not a playlist, use the download command"}
			}

			playlists := a.playlistController()
			if !all {
				item, err := playlists.SelectEntry(ctx, descriptor.Playlist, entry-1)
				if err != nil {
					return err
				}
				if item.IsPlaylist() {
					return &models.ValidationError{Field: "entry", Message: "nested playlists are not supported"}
				}
				source, err := playlists.EntryURL(descriptor.Playlist.Entries[entry-1])
				if err != nil {
					return err
				}
				return a.downloadMedia(ctx, cmd.ErrOrStderr(), source, item.Media, selector)
			}

			results, err := playlists.DownloadAll(ctx, descriptor.Playlist, selector)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			failed := 0
			for _, r := range results {
				status := r.Outcome.ArtifactPath
				if r.Err != nil {
					failed++
					status = "failed: " + models.UserMessage(r.Err)
				}
				fmt.Fprintf(w, "  %d\t%s\t%s\t\n", r.Index+1, r.Entry.Title, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d entries failed", failed, len(results))
			}
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().IntVarP(&entry, "entry", "e", 0, "1-based entry number to download")
	cmd.Flags().BoolVar(&all, "all", false, "download every entry")
	cmd.Flags().Int("parallel", 0, "concurrent entries with --all (PLAYLIST_PARALLEL)")
	cmd.MarkFlagsMutuallyExclusive("entry", "all")
	return cmd
}
