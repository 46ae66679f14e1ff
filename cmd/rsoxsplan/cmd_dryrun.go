package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/format"
	"rsoxsplan/internal/plan"
)

type dryRunFlags struct {
	file        string
	group       string
	maxPriority int
	sortBy      []string
	reverse     []bool
	parallel    int
	resolution  float64
	saveDir     string
	steps       bool
	out         outputFlags
}

func newDryRunCmd(opts *rootOptions) *cobra.Command {
	var f dryRunFlags
	cmd := &cobra.Command{
		Use:   "dryrun",
		Short: "Expand a manifest into its step queue without running anything",
		Long: `Dryrun loads a YAML or JSON acquisition manifest, selects and orders its
acquisitions, and prints the queue they would produce with time estimates.
Acquisitions that cannot run show up as error steps; the command itself only
fails on unreadable manifests and bad options.

Acquisitions without a uid get one. With --save-dir the manifest is written
back with those uids so a later run can refer to them.`,
		Example: `  rsoxsplan dryrun -f bar7.yaml
  rsoxsplan dryrun -f bar7.yaml --group day --sort config,sample_id --reverse false,true
  rsoxsplan dryrun -f bar7.json --steps --markdown --save-dir saved`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDryRun(cmd, opts, &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "Manifest file, .yaml or .json (required)")
	fl.StringVar(&f.group, "group", "all", "Only acquisitions in this group")
	fl.IntVar(&f.maxPriority, "max-priority", 0, "Drop acquisitions with a larger priority value (0 keeps all)")
	fl.StringSliceVar(&f.sortBy, "sort", nil, "Sort keys, first is primary ("+strings.Join(plan.SortKeys, ", ")+")")
	fl.BoolSliceVar(&f.reverse, "reverse", nil, "Descending flag per sort key")
	fl.IntVar(&f.parallel, "parallel", 1, "Acquisitions expanded concurrently")
	fl.Float64Var(&f.resolution, "resolution", defaultResolution, "Energy rounding step in eV")
	fl.StringVar(&f.saveDir, "save-dir", "", "Write the manifest with generated uids to this directory")
	fl.BoolVar(&f.steps, "steps", false, "Also list every queue step")
	f.out.register(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runDryRun(cmd *cobra.Command, opts *rootOptions, f *dryRunFlags) error {
	m, err := plan.LoadManifest(f.file)
	if err != nil {
		return err
	}
	p := plan.NewPlanner(energy.NewBuilder(opts.catalog, energy.WithResolution(f.resolution)))
	q, err := p.DryRun(cmd.Context(), m, plan.Options{
		Group:       f.group,
		MaxPriority: f.maxPriority,
		SortBy:      f.sortBy,
		Reverse:     f.reverse,
		Parallel:    f.parallel,
	})
	if err != nil {
		return err
	}

	var saved string
	if f.saveDir != "" {
		name := strings.TrimSuffix(filepath.Base(f.file), filepath.Ext(f.file))
		saved, err = plan.SaveManifest(m, f.saveDir, name, time.Now())
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if f.out.json {
		return writeJSON(out, q)
	}
	mode := f.out.mode()
	fmt.Fprintln(out, format.Queue(mode, q))
	if f.steps {
		fmt.Fprintln(out)
		fmt.Fprintln(out, format.Steps(mode, q.Steps))
	}
	if len(q.Warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(q.Warnings))
		for _, w := range q.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	fmt.Fprintf(out, "\n%d acquisitions, %d steps, total %s\n", len(q.Acquisitions), len(q.Steps), format.Duration(q.TotalSeconds))
	if saved != "" {
		fmt.Fprintf(out, "Saved manifest: %s\n", saved)
	}
	return nil
}
