package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amaumene/vortex/internal/controllers"
	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Show metadata and download options for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptor, err := a.analyzeController().Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if descriptor.IsPlaylist() {
				return printPlaylist(out, descriptor.Playlist, a.cfg.EntryURLTemplate)
			}
			return printMedia(out, descriptor.Media)
		},
	}
}

func printMedia(out io.Writer, media *models.MediaDescriptor) error {
	fmt.Fprintf(out, "%s\n", media.Title)
	fmt.Fprintf(out, "  by %s, %s, %s views\n", media.UploaderName, utils.FormatDuration(media.DurationSeconds), utils.FormatCount(media.ViewCount))
	if media.IsLive {
		fmt.Fprintln(out, "  live stream")
	}

	fmt.Fprintln(out, "\nVideo")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  FORMAT\tRESOLUTION\tEXT\tSIZE\t")
	for _, opt := range utils.VideoOptions(media) {
		label := opt.Format.ResolutionLabel
		if opt.HD {
			label += " HD"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t\n", opt.Format.FormatID, label, opt.Format.Extension, utils.FormatBytes(opt.Format.ApproxFilesizeBytes))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nAudio (MP3)")
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, opt := range utils.AudioOptions() {
		fmt.Fprintf(w, "  %s kbps\t%s\t%s\t\n", opt.Tier, opt.Label, opt.Description)
	}
	return w.Flush()
}

func printPlaylist(out io.Writer, playlist *models.PlaylistDescriptor, template string) error {
	fmt.Fprintf(out, "%s (%d entries)\n", playlist.Title, len(playlist.Entries))
	if playlist.UploaderName != "" {
		fmt.Fprintf(out, "  by %s\n", playlist.UploaderName)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  #\tTITLE\tDURATION\tURL\t")
	for i, entry := range playlist.Entries {
		source, err := controllers.EntryURL(entry, template)
		if err != nil {
			source = "-"
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t\n", i+1, entry.Title, utils.FormatDuration(entry.DurationSeconds), source)
	}
	return w.Flush()
}
