package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/startup"
)

var startupCmd = &cobra.Command{
	Use:   "startup",
	Short: "Control whether dhk serve starts at logon",
}

var startupEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start dhk serve at logon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := startup.New()
		if err != nil {
			return err
		}
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		if err := m.Enable(exe, startupArgs()...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "enabled:", startup.Command(exe, startupArgs()...))
		return nil
	},
}

var startupDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop starting dhk at logon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := startup.New()
		if err != nil {
			return err
		}
		return m.Disable()
	},
}

var startupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the logon entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := startup.New()
		if err != nil {
			return err
		}
		enabled, command, err := m.Status()
		if err != nil {
			return err
		}
		if !enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "disabled")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "enabled:", command)
		return nil
	},
}

func init() {
	startupCmd.AddCommand(startupEnableCmd, startupDisableCmd, startupStatusCmd)
	rootCmd.AddCommand(startupCmd)
}

// startupArgs is the command line the logon entry runs.
func startupArgs() []string {
	args := []string{"serve"}
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			args = append(args, "--config", abs)
		} else {
			args = append(args, "--config", cfgFile)
		}
	}
	return args
}
