package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rsoxsplan/internal/format"
	"rsoxsplan/internal/logging"
	"rsoxsplan/internal/preset"
)

// version is set at build time via -ldflags.
var version = "dev"

// catalogEnv names a catalog file when --catalog is not given.
const catalogEnv = "RSOXSPLAN_CATALOG"

const defaultResolution = 0.05

type rootOptions struct {
	logLevel    string
	logFormat   string
	catalogPath string

	catalog *preset.Catalog
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rsoxsplan",
		Short: "Plan RSoXS and NEXAFS scans",
		Long: `rsoxsplan builds energy sequences and exposure tables for RSoXS scans,
computes NEXAFS fly-scan segments, and dry-runs acquisition manifests into
the queue of steps they would run, with time estimates.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format (text, json)")
	pf.StringVar(&opts.catalogPath, "catalog", os.Getenv(catalogEnv), "Preset catalog YAML merged over the built-in tables (default: $"+catalogEnv+")")

	cmd.AddCommand(
		newEnergiesCmd(opts),
		newNexafsCmd(opts),
		newPresetsCmd(opts),
		newDryRunCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func (o *rootOptions) setup(logOut io.Writer) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	if err := logging.Init(level, o.logFormat, logOut); err != nil {
		return err
	}
	if o.catalogPath == "" {
		o.catalog = preset.Default()
		return nil
	}
	cat, err := preset.LoadFile(o.catalogPath)
	if err != nil {
		return err
	}
	logging.New("cli").Debug("catalog loaded", "path", o.catalogPath)
	o.catalog = cat
	return nil
}

// outputFlags select between a terminal table, Markdown and JSON.
type outputFlags struct {
	markdown bool
	json     bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Render tables as Markdown")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON instead of tables")
	cmd.MarkFlagsMutuallyExclusive("markdown", "json")
}

func (f *outputFlags) mode() format.Mode {
	if f.markdown {
		return format.Markdown
	}
	return format.ASCII
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
