package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rsoxsplan/internal/display"
	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/format"
	"rsoxsplan/internal/preset"
)

type presetsFlags struct {
	edge     string
	markdown bool
}

func newPresetsCmd(opts *rootOptions) *cobra.Command {
	var f presetsFlags
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List edge, frame and speed presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := format.ASCII
			if f.markdown {
				mode = format.Markdown
			}
			if f.edge != "" {
				return showEdge(cmd.OutOrStdout(), opts.catalog, f.edge, mode)
			}
			listPresets(cmd.OutOrStdout(), opts.catalog, mode)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.edge, "edge", "", "Show one edge and its aliases")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Render tables as Markdown")
	return cmd
}

func listPresets(w io.Writer, cat *preset.Catalog, mode format.Mode) {
	edges := format.NewTable(mode)
	edges.Header("Edge", "Name", "Thresholds (eV)", "Aliases")
	for _, name := range cat.EdgeNames() {
		_, th, _ := cat.Edge(name)
		edges.Row(name, display.Edge(name), joinFloats(th), strings.Join(cat.AliasesOf(name), ", "))
	}
	fmt.Fprintln(w, edges.String())

	frames := format.NewTable(mode)
	frames.Header("Frames", "Points")
	for _, name := range cat.FrameNames() {
		n, _ := cat.Frames(name)
		frames.Row(name, n)
	}
	frames.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	fmt.Fprintln(w)
	fmt.Fprintln(w, frames.String())

	speeds := format.NewTable(mode)
	speeds.Header("Speed", "eV/s")
	for _, name := range cat.SpeedNames() {
		v, _ := cat.Speed(name)
		speeds.Row(name, format.Seconds(v))
	}
	speeds.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	fmt.Fprintln(w)
	fmt.Fprintln(w, speeds.String())

	fmt.Fprintf(w, "\nConfigurations: %s\n", strings.Join(cat.Configurations(), ", "))
}

func showEdge(w io.Writer, cat *preset.Catalog, name string, mode format.Mode) error {
	canonical, th, ok := cat.Edge(name)
	_, nth, nok := cat.NexafsEdge(name)
	if !ok && !nok {
		return &energy.UnknownPresetError{Kind: "edge", Name: name}
	}
	if !ok {
		canonical = cat.Canonical(name)
	}
	tb := format.NewTable(mode)
	tb.Header("Scan", "Thresholds (eV)", "Default ratios")
	if ok {
		tb.Row("RSoXS", joinFloats(th), joinFloats(cat.Ratios(canonical, len(th))))
	}
	if nok {
		tb.Row("NEXAFS", joinFloats(nth), joinFloats(cat.NexafsRatios(canonical, len(nth))))
	}
	fmt.Fprintln(w, display.EdgeWithCode(canonical))
	if aliases := cat.AliasesOf(canonical); len(aliases) > 0 {
		fmt.Fprintf(w, "Aliases: %s\n", strings.Join(aliases, ", "))
	}
	fmt.Fprintln(w, tb.String())
	return nil
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = format.Energy(v)
	}
	return strings.Join(parts, ", ")
}
