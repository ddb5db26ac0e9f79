package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/bridge"
	"github.com/displayhotkeys/dhk/internal/health"
	"github.com/displayhotkeys/dhk/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the running dhk serve daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := bridge.Dial(cfg.PipePath)
		if err != nil {
			return fmt.Errorf("dhk serve not reachable at %s: %w", cfg.PipePath, err)
		}
		defer c.Close()

		st, err := c.Status()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		writeStatus(cmd.OutOrStdout(), st, time.Now())
		if st.Health.Status != health.Healthy {
			return fmt.Errorf("daemon is %s", st.Health.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func writeStatus(w io.Writer, st ipc.StatusResult, now time.Time) {
	fmt.Fprintf(w, "version   %s\n", st.Version)
	fmt.Fprintf(w, "uptime    %s\n", now.Sub(st.StartedAt).Round(time.Second))
	fmt.Fprintf(w, "clients   %d\n", st.Connections)
	fmt.Fprintf(w, "health    %s\n\n", st.Health.Status)

	table := newTable(w, "COMPONENT", "STATUS", "SINCE", "DETAIL")
	for _, c := range st.Health.Checks {
		table.Append([]string{c.Name, string(c.Status), c.UpdatedAt.Local().Format(time.TimeOnly), c.Message})
	}
	table.Render()
}
