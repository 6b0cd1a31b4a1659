package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amaumene/vortex/internal/api"
	"github.com/amaumene/vortex/internal/controllers"
	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

const renderInterval = 250 * time.Millisecond

// selectionFlags are the format choices shared by download and playlist
type selectionFlags struct {
	format string
	audio  string
	best   bool
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "video format id from analyze")
	cmd.Flags().StringVarP(&f.audio, "audio", "a", "", "audio quality in kbps (320, 256, 192 or 128)")
	cmd.Flags().BoolVar(&f.best, "best", false, "pick the highest quality video")
	cmd.MarkFlagsMutuallyExclusive("format", "audio", "best")
}

func (f *selectionFlags) selector() (controllers.Selector, error) {
	switch {
	case f.audio != "":
		return controllers.AudioSelector(f.audio), nil
	case f.format != "":
		return controllers.FormatSelector(f.format), nil
	case f.best:
		return controllers.BestVideoSelector, nil
	}
	return nil, &models.ValidationError{Field: "format", Message: "one of --format, --audio or --best is required"}
}

func newDownloadCommand(a *app) *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a single media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := sel.selector()
			if err != nil {
				return err
			}

			descriptor, err := a.analyzeController().Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if descriptor.IsPlaylist() {
				return &models.ValidationError{Field: "url", Message: "is a playlist, use the playlist command"}
			}

			return a.downloadMedia(cmd.Context(), cmd.ErrOrStderr(), args[0], descriptor.Media, selector)
		},
	}

	sel.register(cmd)
	cmd.Flags().String("status-addr", "", "serve job status on this address, e.g. 127.0.0.1:8090 (STATUS_ADDR)")
	return cmd
}

// downloadMedia validates the selection, runs one job and reports the outcome
func (a *app) downloadMedia(ctx context.Context, out io.Writer, source string, media *models.MediaDescriptor, selector controllers.Selector) error {
	selection, err := selector(media)
	if err != nil {
		return err
	}

	orchestrator := a.newOrchestrator()
	defer orchestrator.Close()

	if a.cfg.StatusAddr != "" {
		server := api.NewServer(a.cfg.StatusAddr, orchestrator, a.metrics, a.logger)
		addr, err := server.Listen()
		if err != nil {
			return err
		}
		serverCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := server.Start(serverCtx); err != nil {
				a.logger.WithError(err).Error("Status server stopped")
			}
		}()
		a.logger.WithField("addr", addr).Info("Serving job status")
	}

	if err := orchestrator.Submit(ctx, controllers.SubmitRequest{
		URL:          source,
		FormatID:     selection.FormatID,
		IsAudioOnly:  selection.IsAudioOnly,
		AudioQuality: selection.AudioQuality,
	}); err != nil {
		return err
	}

	stopRender := renderProgress(out, media.Title, orchestrator)
	outcome, err := orchestrator.Wait(ctx)
	stopRender()
	if err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"job_id": outcome.JobID,
		"path":   outcome.ArtifactPath,
	}).Info("Download finished")
	fmt.Fprintf(out, "Saved %s\n", outcome.ArtifactPath)
	return nil
}

// renderProgress redraws a one-line progress indicator from snapshots
// until the returned stop function is called.
func renderProgress(out io.Writer, title string, o *controllers.Orchestrator) func() {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		t := time.NewTicker(renderInterval)
		defer t.Stop()

		for {
			select {
			case <-done:
				fmt.Fprint(out, "\r\033[K")
				return
			case <-t.C:
				fmt.Fprintf(out, "\r\033[K%s", progressLine(title, o.Snapshot()))
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func progressLine(title string, s controllers.Snapshot) string {
	const width = 30

	percent := 0.0
	if s.Job != nil {
		percent = s.Job.ProgressPercent
	}
	filled := int(percent / 100 * width)
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '.'
		}
	}

	name := []rune(utils.SanitizeFilename(title, "download"))
	if len(name) > 40 {
		name = name[:40]
	}
	return fmt.Sprintf("%-40s [%s] %5.1f%% %s", string(name), bar, percent, s.State)
}
