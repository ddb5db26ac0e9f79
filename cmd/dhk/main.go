package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/config"
	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("cli")

var (
	version    = "0.1.0"
	cfgFile    string
	remote     bool
	logLevel   string
	jsonOutput bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "dhk",
	Short: "Display HotKeys",
	Long: `dhk - query and change display modes, scaling, orientation and DPI on Windows,
save per-display profiles and switch between them with global hotkeys`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dhk v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is dhk.yaml in the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "send requests to a running 'dhk serve' instead of the OS")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config and initializes logging before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	result := c.ValidateTiered()
	if result.HasFatals() {
		return fmt.Errorf("invalid config: %w", result.Err())
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	cfg = c

	var out io.Writer = os.Stderr
	if c.LogFile != "" {
		rw, err := logging.OpenRotatingFile(c.LogFile, c.LogMaxSizeMB, c.LogMaxBackups)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logCloser = rw
		out = io.MultiWriter(os.Stderr, rw)
	}
	logging.Init(c.LogFormat, c.LogLevel, out)

	for _, w := range result.Warnings {
		log.Warn("config validation", logging.KeyError, w.Error())
	}
	return nil
}
