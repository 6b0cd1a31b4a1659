package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amaumene/vortex/internal/models"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job_id>",
		Short: "Stream progress of an existing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var last *models.JobStatusPayload
			err := a.client.Watch(cmd.Context(), args[0], func(p *models.JobStatusPayload) {
				last = p
				fmt.Fprintf(out, "%-10s %5.1f%%\n", p.Status, p.Progress)
			})
			if err != nil {
				return err
			}

			switch {
			case last == nil:
			case last.Status == models.JobStatusCompleted:
				fmt.Fprintf(out, "Ready: %s/api/download/%s\n", a.client.BaseURL(), args[0])
			case last.Status == models.JobStatusFailed:
				message := last.Error
				if message == "" {
					message = models.DefaultJobFailure
				}
				return &models.JobFailure{JobID: args[0], Message: message}
			}
			return nil
		},
	}
}
