package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/format"
	"rsoxsplan/internal/nexafs"
)

type nexafsFlags struct {
	edge   string
	speed  string
	ratios string
	out    outputFlags
}

func newNexafsCmd(opts *rootOptions) *cobra.Command {
	var f nexafsFlags
	cmd := &cobra.Command{
		Use:   "nexafs",
		Short: "Compute NEXAFS fly-scan segments",
		Example: `  rsoxsplan nexafs --edge carbon
  rsoxsplan nexafs --edge 270,285,300 --speed 0.5 --ratios 2,1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNexafs(cmd, opts, &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.edge, "edge", "", "NEXAFS edge name or comma-separated thresholds (required)")
	fl.StringVar(&f.speed, "speed", "normal", "Speed preset or base speed in eV/s")
	fl.StringVar(&f.ratios, "ratios", "", "Ratio table name or comma-separated speed ratios per segment")
	f.out.register(cmd)
	_ = cmd.MarkFlagRequired("edge")
	return cmd
}

func runNexafs(cmd *cobra.Command, opts *rootOptions, f *nexafsFlags) error {
	edge, err := energy.ParseEdgeSpec(f.edge)
	if err != nil {
		return err
	}
	ratios, err := energy.ParseRatioSpec(f.ratios)
	if err != nil {
		return err
	}
	segs, seconds, err := nexafs.Params(opts.catalog, edge, f.speed, ratios)
	if err != nil {
		return fmt.Errorf("nexafs params: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.out.json {
		return writeJSON(out, struct {
			Segments []nexafs.Segment `json:"segments"`
			Seconds  float64          `json:"seconds"`
		}{segs, seconds})
	}
	fmt.Fprintln(out, format.Segments(f.out.mode(), segs))
	return nil
}
