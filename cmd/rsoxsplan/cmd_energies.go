package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/exposure"
	"rsoxsplan/internal/format"
)

type energiesFlags struct {
	edge       string
	frames     string
	ratios     string
	resolution float64
	exposure   string
	scale      float64
	repeats    int
	out        outputFlags
}

type energiesResult struct {
	Energies []float64       `json:"energies"`
	Times    []float64       `json:"times,omitempty"`
	Bands    []exposure.Band `json:"bands,omitempty"`
	Seconds  float64         `json:"seconds,omitempty"`
}

func newEnergiesCmd(opts *rootOptions) *cobra.Command {
	var f energiesFlags
	cmd := &cobra.Command{
		Use:   "energies",
		Short: "Build an RSoXS energy sequence",
		Long: `Builds the energies of an RSoXS step scan from an edge and a frame policy.
With --exposure, each energy also gets an exposure time and the scan gets a
time estimate. Exposure rules are separated by ";", for example
"2;between:1870:1900=4;greater_than:1920=1". The lone number is the
exposure for energies no other rule matches.`,
		Example: `  rsoxsplan energies --edge carbon --frames short
  rsoxsplan energies --edge 270,280,290 --frames 10,20 --exposure 1
  rsoxsplan energies --edge oxygen --frames 80 --ratios 2,0.5,2 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnergies(cmd, opts, &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.edge, "edge", "", "Edge name, single energy or comma-separated thresholds (required)")
	fl.StringVar(&f.frames, "frames", "", "Frame preset, per-region count (total when --ratios is set) or comma-separated per-region counts (default full)")
	fl.StringVar(&f.ratios, "ratios", "", "Ratio table name or comma-separated relative step sizes")
	fl.Float64Var(&f.resolution, "resolution", defaultResolution, "Round interior energies to this step in eV (0 disables)")
	fl.StringVar(&f.exposure, "exposure", "", "Exposure rules in seconds")
	fl.Float64Var(&f.scale, "scale", 1, "Multiply every exposure by this factor")
	fl.IntVar(&f.repeats, "repeats", 1, "Exposures per energy for the time estimate")
	f.out.register(cmd)
	_ = cmd.MarkFlagRequired("edge")
	return cmd
}

func runEnergies(cmd *cobra.Command, opts *rootOptions, f *energiesFlags) error {
	edge, err := energy.ParseEdgeSpec(f.edge)
	if err != nil {
		return err
	}
	frames, err := energy.ParseFramePolicy(f.frames)
	if err != nil {
		return err
	}
	ratios, err := energy.ParseRatioSpec(f.ratios)
	if err != nil {
		return err
	}
	b := energy.NewBuilder(opts.catalog, energy.WithResolution(f.resolution))
	energies, err := b.BuildRatios(edge, frames, ratios)
	if err != nil {
		return fmt.Errorf("build energies: %w", err)
	}

	res := energiesResult{Energies: energies}
	var policy exposure.Policy
	if f.exposure != "" {
		policy, err = exposure.ParsePolicyString(f.exposure)
		if err != nil {
			return err
		}
		a, err := exposure.Assign(energies, policy, f.scale)
		if err != nil {
			return fmt.Errorf("assign exposures: %w", err)
		}
		seconds, err := exposure.Estimate(a.Times, f.repeats)
		if err != nil {
			return err
		}
		res.Times, res.Bands, res.Seconds = a.Times, a.Bands, seconds
	}

	out := cmd.OutOrStdout()
	if f.out.json {
		return writeJSON(out, res)
	}
	mode := f.out.mode()
	fmt.Fprintln(out, format.Energies(mode, res.Energies, res.Times))
	if res.Times == nil {
		fmt.Fprintf(out, "%d energies\n", len(res.Energies))
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, format.Bands(mode, energies, policy, exposure.Assignment{Times: res.Times, Bands: res.Bands}))
	fmt.Fprintf(out, "%d energies, estimated %s with %d repeat(s)\n", len(energies), format.Duration(res.Seconds), f.repeats)
	return nil
}
