package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/displayhotkeys/dhk/internal/display"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a borderless, left-aligned table in the style of
// kubectl output.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func displayRows(infos []display.Info, names map[string]string) [][]string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		legacy := "-"
		if info.LegacyIndex >= 0 {
			legacy = strconv.Itoa(info.LegacyIndex)
		}
		primary := ""
		if info.Primary {
			primary = "*"
		}
		name := names[info.ID]
		if name == "" {
			name = info.DeviceName
		}
		mode := "-"
		if info.Width > 0 {
			mode = fmt.Sprintf("%dx%d@%.0fHz", info.Width, info.Height, info.RefreshRate)
		}
		dpi := "-"
		if info.DPIScalePercentage > 0 {
			dpi = fmt.Sprintf("%d%%", info.DPIScalePercentage)
		}
		rows = append(rows, []string{
			strconv.Itoa(info.ConfigIndex),
			legacy,
			primary,
			name,
			mode,
			info.Rotation.String(),
			info.Scaling.String(),
			dpi,
			info.ID,
		})
	}
	return rows
}

func modeRows(modes []display.Mode) [][]string {
	rows := make([][]string, len(modes))
	for i, m := range modes {
		rows[i] = []string{
			strconv.Itoa(int(m.Width)),
			strconv.Itoa(int(m.Height)),
			strconv.Itoa(int(m.BitDepth)),
			strconv.Itoa(int(m.RefreshRate)),
		}
	}
	return rows
}
