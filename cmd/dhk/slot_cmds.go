package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/hotkey"
	"github.com/displayhotkeys/dhk/internal/profile"
)

var slotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Manage saved per-display profile slots",
}

var slotListCmd = &cobra.Command{
	Use:   "list [display]",
	Short: "Show saved slots",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profile.Open(cfg.ProfilesFile)
		if err != nil {
			return err
		}
		ids := store.DisplayIDs()
		if len(args) == 1 {
			ids = []string{args[0]}
		}
		if jsonOutput {
			out := make(map[string]profile.Display, len(ids))
			for _, id := range ids {
				if d, ok := store.Display(id); ok {
					out[id] = d
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		}
		return writeSlotTable(cmd.OutOrStdout(), store, ids)
	},
}

var (
	slotSaveFlags   settingsFlags
	slotSaveCurrent bool
	slotSaveHotKey  string
)

var slotSaveCmd = &cobra.Command{
	Use:   "save <display> <slot>",
	Short: "Save settings into a slot",
	Long: `Save settings into a slot. With --current the display's present mode, scaling
and DPI scale are captured; otherwise they come from --width, --height and friends.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSlot(args[1])
		if err != nil {
			return err
		}
		keys, err := parseHotKeyArg(slotSaveHotKey)
		if err != nil {
			return err
		}

		return withAPI(func(api displayAPI) error {
			id, err := resolveDisplay(api, args[0])
			if err != nil {
				return err
			}

			var s display.Settings
			if slotSaveCurrent {
				s, err = currentSettings(api, id)
			} else {
				s, err = slotSaveFlags.settings()
			}
			if err != nil {
				return err
			}
			if modes, err := api.DisplayModes(id); err == nil && !containsMode(modes, s.Mode) {
				log.Warn("mode not reported by the display, saving anyway", "mode", s.Mode.String())
			}

			store, err := profile.Open(cfg.ProfilesFile)
			if err != nil {
				return err
			}
			if err := store.SetSlot(id, n, profile.Slot{Settings: s}); err != nil {
				return err
			}
			if slotSaveHotKey != "" {
				if err := store.SetHotKey(id, n, keys); err != nil {
					return err
				}
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s, scaling %d, %d%% into slot %d of %s\n", s.Mode, s.ScalingMode, s.DPIScalePercentage, n, id)
			return nil
		})
	},
}

var slotApplyCmd = &cobra.Command{
	Use:   "apply <display> <slot>",
	Short: "Apply a saved slot to a connected display",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSlot(args[1])
		if err != nil {
			return err
		}
		return withAPI(func(api displayAPI) error {
			id, err := resolveDisplay(api, args[0])
			if err != nil {
				return err
			}
			return api.ApplySlot(id, n)
		})
	},
}

var slotClearCmd = &cobra.Command{
	Use:   "clear <display> <slot>",
	Short: "Forget the settings and hotkey of a slot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSlot(args[1])
		if err != nil {
			return err
		}
		return updateStore(func(store *profile.Store) error {
			return store.ClearSlot(args[0], n)
		})
	},
}

var slotHotKeyCmd = &cobra.Command{
	Use:   "hotkey <display> <slot> <keys|none>",
	Short: "Bind a hotkey such as ctrl+alt+1 to a slot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSlot(args[1])
		if err != nil {
			return err
		}
		keys, err := parseHotKeyArg(args[2])
		if err != nil {
			return err
		}
		return updateStore(func(store *profile.Store) error {
			return store.SetHotKey(args[0], n, keys)
		})
	},
}

var slotCountCmd = &cobra.Command{
	Use:   "count <display> <n>",
	Short: "Set how many slots a display uses",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSlot(args[1])
		if err != nil {
			return err
		}
		return updateStore(func(store *profile.Store) error {
			return store.SetNumSlots(args[0], n)
		})
	},
}

var slotValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Repair saved slots against the modes the connected displays offer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(func(api displayAPI) error {
			catalog, err := api.Catalog()
			if err != nil {
				return err
			}
			return updateStore(func(store *profile.Store) error {
				fixes := store.Validate(catalog)
				for _, f := range fixes {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				if len(fixes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "profiles are valid")
				}
				return nil
			})
		})
	},
}

func init() {
	slotSaveFlags.register(slotSaveCmd)
	slotSaveCmd.Flags().BoolVar(&slotSaveCurrent, "current", false, "capture the display's current settings")
	slotSaveCmd.Flags().StringVar(&slotSaveHotKey, "hotkey", "", "hotkey to bind, e.g. ctrl+alt+1")

	slotCmd.AddCommand(slotListCmd, slotSaveCmd, slotApplyCmd, slotClearCmd, slotHotKeyCmd, slotCountCmd, slotValidateCmd)
	rootCmd.AddCommand(slotCmd)
}

func updateStore(fn func(*profile.Store) error) error {
	store, err := profile.Open(cfg.ProfilesFile)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return store.Save()
}

func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("slot %q: %w", s, err)
	}
	if n < 1 || n > profile.MaxSlots {
		return 0, fmt.Errorf("%w: got %d", profile.ErrSlotOutOfRange, n)
	}
	return n, nil
}

// parseHotKeyArg turns "ctrl+alt+1" into key names. "none" and "" clear.
func parseHotKeyArg(s string) ([]string, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	return hotkey.Normalize(hotkey.Split(s))
}

// currentSettings captures what a display shows right now.
func currentSettings(api displayAPI, id string) (display.Settings, error) {
	infos, _, err := api.DisplaysWithNames()
	if err != nil {
		return display.Settings{}, err
	}
	for _, info := range infos {
		if info.ID != id {
			continue
		}
		if info.Width == 0 || info.Height == 0 {
			return display.Settings{}, fmt.Errorf("display %s has no active source mode", id)
		}
		dpi := info.DPIScalePercentage
		if dpi == 0 {
			dpi = 100
		}
		return display.Settings{
			Mode: display.Mode{
				Width:       int32(info.Width),
				Height:      int32(info.Height),
				BitDepth:    32,
				RefreshRate: int32(math.Round(info.RefreshRate)),
			},
			ScalingMode:        info.Scaling.Code(),
			DPIScalePercentage: dpi,
		}, nil
	}
	return display.Settings{}, fmt.Errorf("%w: %s", display.ErrDisplayNotFound, id)
}

func containsMode(modes []display.Mode, m display.Mode) bool {
	for _, x := range modes {
		if x == m {
			return true
		}
	}
	return false
}

func writeSlotTable(w io.Writer, store *profile.Store, ids []string) error {
	table := newTable(w, "DISPLAY", "SLOT", "ACTIVE", "MODE", "SCALING", "DPI", "HOTKEY")
	found := false
	for _, id := range ids {
		d, ok := store.Display(id)
		if !ok {
			continue
		}
		found = true
		for i, sl := range d.Slots {
			if sl.Empty() && i >= d.NumSlots {
				continue
			}
			table.Append(slotRow(id, i+1, i < d.NumSlots, sl))
		}
	}
	if !found {
		return errors.New("no saved profiles")
	}
	table.Render()
	return nil
}

func slotRow(id string, n int, active bool, sl profile.Slot) []string {
	mode, scaling, dpi := "-", "-", "-"
	if !sl.Empty() {
		mode = sl.Mode.String()
		scaling = display.ScalingFromCode(sl.ScalingMode).String()
		dpi = fmt.Sprintf("%d%%", sl.DPIScalePercentage)
	}
	hk := "-"
	if len(sl.HotKey) > 0 {
		hk = strings.Join(sl.HotKey, "+")
	}
	act := "no"
	if active {
		act = "yes"
	}
	return []string{id, strconv.Itoa(n), act, mode, scaling, dpi, hk}
}
