package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/bridge"
	"github.com/displayhotkeys/dhk/internal/hostinfo"
	"github.com/displayhotkeys/dhk/internal/monitorinfo"
	"github.com/displayhotkeys/dhk/internal/startup"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that this host can run dhk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		problems := 0
		check := func(name string, ok bool, detail string) {
			mark := "ok  "
			if !ok {
				mark = "FAIL"
				problems++
			}
			fmt.Fprintf(out, "[%s] %-16s %s\n", mark, name, detail)
		}

		report, err := hostinfo.Collect()
		if err != nil {
			check("host", false, err.Error())
		} else {
			writeHostReport(out, report)
			check("display config", report.DisplayConfig, fmt.Sprintf("needs Windows build %d or later", hostinfo.MinConfigBuild))
			check("dpi scaling", report.DPIScaling, fmt.Sprintf("needs Windows build %d or later", hostinfo.MinDPIBuild))
		}

		for _, w := range cfg.ValidateTiered().Warnings {
			check("config", false, w.Error())
		}

		if _, err := os.Stat(cfg.ProfilesFile); errors.Is(err, os.ErrNotExist) {
			check("profiles", true, cfg.ProfilesFile+" (not created yet)")
		} else {
			check("profiles", err == nil, cfg.ProfilesFile)
		}

		if monitors, err := monitorinfo.Query(); err != nil {
			check("monitor names", false, err.Error())
		} else {
			check("monitor names", true, fmt.Sprintf("%d monitors", len(monitors)))
			for _, m := range monitors {
				fmt.Fprintf(out, "       %s  %s\n", m.Name(), m.InstanceName)
			}
		}

		if m, err := startup.New(); err == nil {
			enabled, command, err := m.Status()
			switch {
			case err != nil:
				check("startup", false, err.Error())
			case enabled:
				check("startup", true, command)
			default:
				check("startup", true, "disabled")
			}
		}

		if c, err := bridge.Dial(cfg.PipePath); err != nil {
			fmt.Fprintf(out, "       dhk serve not reachable at %s\n", cfg.PipePath)
		} else {
			st, err := c.Status()
			if err != nil {
				check("dhk serve", false, err.Error())
			} else {
				check("dhk serve", true, fmt.Sprintf("%s (version %s, %s)", cfg.PipePath, st.Version, st.Health.Status))
			}
			c.Close()
		}

		if problems > 0 {
			return fmt.Errorf("%d problems found", problems)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func writeHostReport(w io.Writer, r *hostinfo.Report) {
	if jsonOutput {
		printJSON(w, r)
		return
	}
	fmt.Fprintf(w, "host      %s\n", r.Hostname)
	fmt.Fprintf(w, "os        %s %s (%s)\n", r.Platform, r.PlatformVersion, r.Architecture)
	if r.Build > 0 {
		fmt.Fprintf(w, "build     %d (%s)\n", r.Build, r.Version)
	}
}
