// Package mcp exposes the energy builder, exposure assigner, NEXAFS
// parameters and the dry-run planner as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/exposure"
	"rsoxsplan/internal/format"
	"rsoxsplan/internal/logging"
	"rsoxsplan/internal/nexafs"
	"rsoxsplan/internal/plan"
	"rsoxsplan/internal/preset"
)

// DefaultResolution is the energy rounding step used when a call leaves it unset.
const DefaultResolution = 0.05

// Server wraps the MCP SDK server. Every tool is stateless.
type Server struct {
	MCPServer *sdkmcp.Server

	catalog *preset.Catalog
	log     *slog.Logger
}

// NewServer registers the tools over cat, or over the built-in catalog when
// cat is nil.
func NewServer(cat *preset.Catalog, version string) *Server {
	if cat == nil {
		cat = preset.Default()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{catalog: cat, log: logging.New("mcp")}
	s.MCPServer = sdkmcp.NewServer(&sdkmcp.Implementation{Name: "rsoxsplan", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "build_energies",
		Description: "Build an RSoXS energy sequence from an edge and a frame policy, optionally with exposure times and a time estimate.",
	}, s.handleBuildEnergies)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "assign_exposures",
		Description: "Assign exposure times to a list of energies from an ordered rule list such as \"2;between:280:290=4\".",
	}, s.handleAssignExposures)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "nexafs_params",
		Description: "Compute NEXAFS fly-scan segments and the total flight time for an edge and speed.",
	}, s.handleNexafsParams)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_presets",
		Description: "List edge, frame and speed presets and the valid configurations, or the details of one edge.",
	}, s.handleListPresets)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "dry_run",
		Description: "Expand a YAML or JSON acquisition manifest into the queue of steps it would run, with time estimates, warnings and errors.",
	}, s.handleDryRun)
}

// --- Tool input/output types ---

type buildEnergiesInput struct {
	Edge       string  `json:"edge" jsonschema:"edge name (carbon), single energy (1850) or comma-separated thresholds (250,270,282)"`
	Frames     string  `json:"frames,omitempty" jsonschema:"frame preset (full, short), per-region count (40; a total when ratios are set) or per-region counts (10,5,20)"`
	Ratios     string  `json:"ratios,omitempty" jsonschema:"ratio table name or comma-separated relative step sizes"`
	Resolution float64 `json:"resolution,omitempty" jsonschema:"energy rounding step in eV (default 0.05)"`
	Exposure   string  `json:"exposure,omitempty" jsonschema:"exposure rules; when set, times and an estimate are returned"`
	Scale      float64 `json:"scale,omitempty" jsonschema:"multiplier applied to every exposure (default 1)"`
	Repeats    int     `json:"repeats,omitempty" jsonschema:"exposures per energy (default 1)"`
}

type buildEnergiesOutput struct {
	Energies []float64       `json:"energies"`
	Times    []float64       `json:"times,omitempty"`
	Bands    []exposure.Band `json:"bands,omitempty"`
	Seconds  float64         `json:"seconds,omitempty"`
	Table    string          `json:"table"`
}

type assignExposuresInput struct {
	Energies []float64 `json:"energies" jsonschema:"energies in eV"`
	Exposure string    `json:"exposure" jsonschema:"exposure rules such as \"2;between:280:290=4;greater_than:300=1\""`
	Scale    float64   `json:"scale,omitempty" jsonschema:"multiplier applied to every exposure (default 1)"`
	Repeats  int       `json:"repeats,omitempty" jsonschema:"exposures per energy (default 1)"`
}

type assignExposuresOutput struct {
	Times   []float64       `json:"times"`
	Bands   []exposure.Band `json:"bands"`
	Seconds float64         `json:"seconds"`
	Table   string          `json:"table"`
}

type nexafsParamsInput struct {
	Edge   string `json:"edge" jsonschema:"NEXAFS edge name or comma-separated thresholds"`
	Speed  string `json:"speed,omitempty" jsonschema:"speed preset (normal, quick, slow) or eV/s"`
	Ratios string `json:"ratios,omitempty" jsonschema:"ratio table name or comma-separated speed ratios"`
}

type nexafsParamsOutput struct {
	Segments []nexafs.Segment `json:"segments"`
	Seconds  float64          `json:"seconds"`
	Table    string           `json:"table"`
}

type listPresetsInput struct {
	Edge string `json:"edge,omitempty" jsonschema:"edge name or alias; empty lists every preset"`
}

type listPresetsOutput struct {
	Edges          []string          `json:"edges,omitempty"`
	Frames         []string          `json:"frames,omitempty"`
	Speeds         []string          `json:"speeds,omitempty"`
	Configurations []string          `json:"configurations,omitempty"`
	Aliases        map[string]string `json:"aliases,omitempty"`

	Edge             string    `json:"edge,omitempty"`
	Thresholds       []float64 `json:"thresholds,omitempty"`
	NexafsThresholds []float64 `json:"nexafs_thresholds,omitempty"`
	EdgeAliases      []string  `json:"edge_aliases,omitempty"`
}

type dryRunInput struct {
	Manifest    string   `json:"manifest" jsonschema:"manifest document as YAML or JSON text"`
	Group       string   `json:"group,omitempty" jsonschema:"only acquisitions in this group (case-insensitive)"`
	MaxPriority int      `json:"max_priority,omitempty" jsonschema:"drop acquisitions with a larger priority value"`
	Sort        []string `json:"sort,omitempty" jsonschema:"sort keys, first is primary"`
	Reverse     []bool   `json:"reverse,omitempty" jsonschema:"descending flag per sort key"`
	Parallel    int      `json:"parallel,omitempty" jsonschema:"acquisitions expanded concurrently"`
}

type dryRunOutput struct {
	Steps        []plan.Step    `json:"steps"`
	Acquisitions []plan.Summary `json:"acquisitions"`
	TotalSeconds float64        `json:"total_seconds"`
	Warnings     []string       `json:"warnings,omitempty"`
	Table        string         `json:"table"`
	Manifest     string         `json:"manifest" jsonschema:"the input manifest as YAML with generated acquisition UIDs filled in"`
}

// --- Tool handlers ---

func (s *Server) handleBuildEnergies(_ context.Context, _ *sdkmcp.CallToolRequest, in buildEnergiesInput) (*sdkmcp.CallToolResult, buildEnergiesOutput, error) {
	edge, err := energy.ParseEdgeSpec(in.Edge)
	if err != nil {
		return nil, buildEnergiesOutput{}, err
	}
	frames, err := energy.ParseFramePolicy(in.Frames)
	if err != nil {
		return nil, buildEnergiesOutput{}, err
	}
	ratios, err := energy.ParseRatioSpec(in.Ratios)
	if err != nil {
		return nil, buildEnergiesOutput{}, err
	}
	res := in.Resolution
	if res == 0 {
		res = DefaultResolution
	}
	b := energy.NewBuilder(s.catalog, energy.WithResolution(res))
	energies, err := b.BuildRatios(edge, frames, ratios)
	if err != nil {
		return nil, buildEnergiesOutput{}, fmt.Errorf("build energies: %w", err)
	}
	out := buildEnergiesOutput{Energies: energies}
	if in.Exposure == "" {
		out.Table = format.Energies(format.Markdown, energies, nil)
		return nil, out, nil
	}

	a, seconds, err := assign(energies, in.Exposure, in.Scale, in.Repeats)
	if err != nil {
		return nil, buildEnergiesOutput{}, err
	}
	out.Times, out.Bands, out.Seconds = a.Times, a.Bands, seconds
	out.Table = format.Energies(format.Markdown, energies, a.Times)
	s.log.Debug("built energies", "edge", edge.String(), "points", len(energies), "seconds", seconds)
	return nil, out, nil
}

func (s *Server) handleAssignExposures(_ context.Context, _ *sdkmcp.CallToolRequest, in assignExposuresInput) (*sdkmcp.CallToolResult, assignExposuresOutput, error) {
	a, seconds, err := assign(in.Energies, in.Exposure, in.Scale, in.Repeats)
	if err != nil {
		return nil, assignExposuresOutput{}, err
	}
	policy, _ := exposure.ParsePolicyString(in.Exposure)
	return nil, assignExposuresOutput{
		Times:   a.Times,
		Bands:   a.Bands,
		Seconds: seconds,
		Table:   format.Bands(format.Markdown, in.Energies, policy, a),
	}, nil
}

func assign(energies []float64, rules string, scale float64, repeats int) (exposure.Assignment, float64, error) {
	policy, err := exposure.ParsePolicyString(rules)
	if err != nil {
		return exposure.Assignment{}, 0, err
	}
	if scale == 0 {
		scale = 1
	}
	if repeats == 0 {
		repeats = 1
	}
	a, err := exposure.Assign(energies, policy, scale)
	if err != nil {
		return exposure.Assignment{}, 0, fmt.Errorf("assign exposures: %w", err)
	}
	seconds, err := exposure.Estimate(a.Times, repeats)
	if err != nil {
		return exposure.Assignment{}, 0, err
	}
	return a, seconds, nil
}

func (s *Server) handleNexafsParams(_ context.Context, _ *sdkmcp.CallToolRequest, in nexafsParamsInput) (*sdkmcp.CallToolResult, nexafsParamsOutput, error) {
	edge, err := energy.ParseEdgeSpec(in.Edge)
	if err != nil {
		return nil, nexafsParamsOutput{}, err
	}
	ratios, err := energy.ParseRatioSpec(in.Ratios)
	if err != nil {
		return nil, nexafsParamsOutput{}, err
	}
	segs, seconds, err := nexafs.Params(s.catalog, edge, in.Speed, ratios)
	if err != nil {
		return nil, nexafsParamsOutput{}, fmt.Errorf("nexafs params: %w", err)
	}
	return nil, nexafsParamsOutput{
		Segments: segs,
		Seconds:  seconds,
		Table:    format.Segments(format.Markdown, segs),
	}, nil
}

func (s *Server) handleListPresets(_ context.Context, _ *sdkmcp.CallToolRequest, in listPresetsInput) (*sdkmcp.CallToolResult, listPresetsOutput, error) {
	cat := s.catalog
	if in.Edge == "" {
		return nil, listPresetsOutput{
			Edges:          cat.EdgeNames(),
			Frames:         cat.FrameNames(),
			Speeds:         cat.SpeedNames(),
			Configurations: cat.Configurations(),
			Aliases:        cat.Aliases(),
		}, nil
	}

	name, thresholds, ok := cat.Edge(in.Edge)
	_, nexafsThresholds, nexafsOK := cat.NexafsEdge(in.Edge)
	if !ok && !nexafsOK {
		return nil, listPresetsOutput{}, &energy.UnknownPresetError{Kind: "edge", Name: in.Edge}
	}
	if !ok {
		name = cat.Canonical(in.Edge)
	}
	return nil, listPresetsOutput{
		Edge:             name,
		Thresholds:       thresholds,
		NexafsThresholds: nexafsThresholds,
		EdgeAliases:      cat.AliasesOf(name),
	}, nil
}

func (s *Server) handleDryRun(ctx context.Context, _ *sdkmcp.CallToolRequest, in dryRunInput) (*sdkmcp.CallToolResult, dryRunOutput, error) {
	m, err := plan.ParseManifest([]byte(in.Manifest), "")
	if err != nil {
		return nil, dryRunOutput{}, err
	}
	p := plan.NewPlanner(energy.NewBuilder(s.catalog, energy.WithResolution(DefaultResolution)))
	q, err := p.DryRun(ctx, m, plan.Options{
		Group:       in.Group,
		MaxPriority: in.MaxPriority,
		SortBy:      in.Sort,
		Reverse:     in.Reverse,
		Parallel:    in.Parallel,
	})
	if err != nil {
		return nil, dryRunOutput{}, err
	}
	doc, err := yaml.Marshal(m)
	if err != nil {
		return nil, dryRunOutput{}, fmt.Errorf("encode manifest: %w", err)
	}
	s.log.Info("dry run", "acquisitions", len(q.Acquisitions), "seconds", q.TotalSeconds, "warnings", len(q.Warnings))
	return nil, dryRunOutput{
		Steps:        q.Steps,
		Acquisitions: q.Acquisitions,
		TotalSeconds: q.TotalSeconds,
		Warnings:     q.Warnings,
		Table:        format.Queue(format.Markdown, q),
		Manifest:     string(doc),
	}, nil
}
