package main

import (
	"fmt"

	"clipcut/ffmpeg"

	"github.com/spf13/cobra"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether ffmpeg and ffprobe are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := ctx.runner()
			if err != nil {
				return err
			}
			statuses := ffmpeg.CheckBinaries(r.Requirements())
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusTable(statuses))

			if err := r.CheckTools(); err != nil {
				return err
			}
			version, err := r.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func renderStatusTable(statuses []ffmpeg.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "missing"
		if s.Available {
			state = "ok"
		}
		rows = append(rows, []string{s.Name, state, s.Detail, s.Description})
	}
	return renderTable([]string{"Tool", "Status", "Detail", "Used for"}, rows, nil)
}
