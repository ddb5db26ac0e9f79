package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/display"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected displays with their current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(func(api displayAPI) error {
			infos, names, err := api.DisplaysWithNames()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, struct {
					Displays []display.Info   `json:"displays"`
					Names    map[string]string `json:"names,omitempty"`
				}{infos, names})
			}
			table := newTable(out, "INDEX", "LEGACY", "PRIMARY", "NAME", "MODE", "ORIENTATION", "SCALING", "DPI", "ID")
			table.AppendBulk(displayRows(infos, names))
			table.Render()
			return nil
		})
	},
}

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Print the monitor device path of every display, in configuration order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(func(api displayAPI) error {
			ids, err := api.DisplayIDs()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of connected displays",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(func(api displayAPI) error {
			n, err := api.NumConnectedDisplays()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

var modesDistinct bool

var modesCmd = &cobra.Command{
	Use:   "modes <display>",
	Short: "List the modes a display supports",
	Long: `List the modes a display supports, in the order the driver reports them reversed.
<display> is a monitor device path or a configuration index from 'dhk list'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(func(api displayAPI) error {
			id, err := resolveDisplay(api, args[0])
			if err != nil {
				return err
			}
			modes, err := api.DisplayModes(id)
			if err != nil {
				return err
			}
			if modesDistinct {
				modes = display.Distinct(modes)
				display.SortDescending(modes)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), modes)
			}
			table := newTable(cmd.OutOrStdout(), "WIDTH", "HEIGHT", "BITS", "HZ")
			table.AppendBulk(modeRows(modes))
			table.Render()
			return nil
		})
	},
}

var orientationCmd = &cobra.Command{
	Use:   "orientation <pathIndex>",
	Short: "Print the raw rotation (1-4) of a configuration path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("path index %q: %w", args[0], err)
		}
		return withAPI(func(api displayAPI) error {
			r, err := api.DisplayOrientation(int32(idx))
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"rotation": r, "name": display.Rotation(r).String()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n", r, display.Rotation(r))
			return nil
		})
	},
}

var setFlags settingsFlags

var setCmd = &cobra.Command{
	Use:   "set <display>",
	Short: "Apply mode, scaling and DPI scale to a display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setFlags.settings()
		if err != nil {
			return err
		}
		return withAPI(func(api displayAPI) error {
			id, err := resolveDisplay(api, args[0])
			if err != nil {
				return err
			}
			if err := api.SetDisplay(id, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s, scaling %d, %d%% to %s\n", s.Mode, s.ScalingMode, s.DPIScalePercentage, id)
			return nil
		})
	},
}

var orientCmd = &cobra.Command{
	Use:   "orient <display> <orientation>",
	Short: "Rotate a display (landscape, portrait, landscape-flipped, portrait-flipped or 0-3)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := parseOrientation(args[1])
		if err != nil {
			return err
		}
		return withAPI(func(api displayAPI) error {
			id, err := resolveDisplay(api, args[0])
			if err != nil {
				return err
			}
			return api.SetOrientation(id, o)
		})
	},
}

var dpiCmd = &cobra.Command{
	Use:   "dpi <display>",
	Short: "Print the DPI scale percentage of a display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(func(api displayAPI) error {
			id, err := resolveDisplay(api, args[0])
			if err != nil {
				return err
			}
			pct, err := api.DPIScalePercentage(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d%%\n", pct)
			return nil
		})
	},
}

func init() {
	modesCmd.Flags().BoolVar(&modesDistinct, "distinct", false, "drop duplicates and sort largest first")
	setFlags.register(setCmd)

	rootCmd.AddCommand(listCmd, idsCmd, countCmd, modesCmd, orientationCmd, setCmd, orientCmd, dpiCmd)
}

func withAPI(fn func(displayAPI) error) error {
	api, err := openAPI()
	if err != nil {
		return err
	}
	defer api.Close()
	return fn(api)
}

// resolveDisplay accepts a monitor device path or a configuration index.
func resolveDisplay(api interface{ DisplayIDs() ([]string, error) }, arg string) (string, error) {
	if strings.HasPrefix(arg, `\\?\`) {
		return arg, nil
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	ids, err := api.DisplayIDs()
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(ids) {
		return "", fmt.Errorf("%w: index %d of %d", display.ErrPathIndexOutOfRange, idx, len(ids))
	}
	return ids[idx], nil
}

// settingsFlags are the flags shared by set and slot save.
type settingsFlags struct {
	width, height, bitDepth, refreshRate int32
	scaling                              string
	dpi                                  int32
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int32Var(&f.width, "width", 0, "horizontal resolution in pixels")
	cmd.Flags().Int32Var(&f.height, "height", 0, "vertical resolution in pixels")
	cmd.Flags().Int32Var(&f.bitDepth, "bit-depth", 32, "bits per pixel")
	cmd.Flags().Int32Var(&f.refreshRate, "refresh-rate", 60, "refresh rate in Hz")
	cmd.Flags().StringVar(&f.scaling, "scaling", "aspect", "scaling: aspect, stretch, center or 0-2")
	cmd.Flags().Int32Var(&f.dpi, "dpi", 100, "DPI scale percentage (100, 125, 150, ...)")
}

func (f *settingsFlags) settings() (display.Settings, error) {
	if f.width <= 0 || f.height <= 0 {
		return display.Settings{}, fmt.Errorf("--width and --height are required")
	}
	scaling, err := parseScaling(f.scaling)
	if err != nil {
		return display.Settings{}, err
	}
	if _, ok := display.DPIScaleIndex(f.dpi); !ok {
		return display.Settings{}, fmt.Errorf("--dpi %d is not one of %v", f.dpi, display.DPIScales())
	}
	return display.Settings{
		Mode: display.Mode{
			Width:       f.width,
			Height:      f.height,
			BitDepth:    f.bitDepth,
			RefreshRate: f.refreshRate,
		},
		ScalingMode:        scaling,
		DPIScalePercentage: f.dpi,
	}, nil
}

func parseScaling(s string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "aspect", "preserve-aspect":
		return display.ScaleModePreserveAspect, nil
	case "1", "stretch", "stretched":
		return display.ScaleModeStretch, nil
	case "2", "center", "centered":
		return display.ScaleModeCentered, nil
	}
	return 0, fmt.Errorf("unknown scaling %q (use aspect, stretch or center)", s)
}

func parseOrientation(s string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "landscape":
		return display.OrientationLandscape, nil
	case "1", "portrait":
		return display.OrientationPortrait, nil
	case "2", "landscape-flipped":
		return display.OrientationLandscapeFlipped, nil
	case "3", "portrait-flipped":
		return display.OrientationPortraitFlipped, nil
	}
	return 0, fmt.Errorf("unknown orientation %q", s)
}
