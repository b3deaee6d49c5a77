package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"transmux/internal/manifest"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-dir>",
		Short: "Show the stage table for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			m, err := manifest.Load(args[0])
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s (%s)\n", m.JobID, m.Source)
			fmt.Fprintf(out, "Created %s, updated %s\n\n",
				m.CreatedAt.Local().Format(time.RFC1123),
				m.UpdatedAt.Local().Format(time.RFC1123),
			)

			fmt.Fprintln(out, stageTable(m.Stages))
			return nil
		},
	}
}
