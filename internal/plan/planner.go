// Package plan turns an acquisition manifest into a dry-run step queue with
// time estimates, validation errors and warnings. Nothing is executed.
package plan

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/exposure"
	"rsoxsplan/internal/logging"
)

// Options select and order the acquisitions of a dry run.
type Options struct {
	Group       string   // case-insensitive; "" or "all" keeps every group
	MaxPriority int      // drop acquisitions with a larger priority value; 0 keeps all
	SortBy      []string // sort keys, first is primary; default sample_num
	Reverse     []bool   // per-key descending flag, co-indexed with SortBy
	Parallel    int      // acquisitions expanded concurrently; default 1
}

// SortKeys lists the accepted Options.SortBy values.
var SortKeys = []string{"sample_id", "project", "config", "type", "edge", "proposal", "spriority", "apriority", "sample_num"}

// Planner expands manifests. It is safe for concurrent use.
type Planner struct {
	builder *energy.Builder
	log     *slog.Logger
}

// NewPlanner returns a planner that builds energies with b, or with a
// default builder when b is nil.
func NewPlanner(b *energy.Builder) *Planner {
	if b == nil {
		b = energy.NewBuilder(nil)
	}
	return &Planner{builder: b, log: logging.New("plan")}
}

type entry struct {
	sample    *Sample
	acq       *Acquisition
	sampleNum int
	priority  int
}

func (e entry) key(name string) (string, int) {
	switch name {
	case "sample_id":
		return e.sample.ID, 0
	case "project":
		return e.sample.Project, 0
	case "config":
		return e.acq.Configuration, 0
	case "type":
		return e.acq.Type, 0
	case "edge":
		return e.acq.Edge.String(), 0
	case "proposal":
		return e.sample.ProposalID, 0
	case "spriority":
		return "", e.sample.Priority
	case "apriority":
		return "", e.priority
	default:
		return "", e.sampleNum
	}
}

// DryRun builds the step queue for m. Acquisitions without a UID get a
// time-based UUID written back into m, so a manifest saved afterwards keeps
// them. Problems with single acquisitions become error steps; only bad
// options and cancellation return an error.
func (p *Planner) DryRun(ctx context.Context, m *Manifest, opts Options) (*Queue, error) {
	sortBy := opts.SortBy
	if len(sortBy) == 0 {
		sortBy = []string{"sample_num"}
	}
	for _, k := range sortBy {
		if !slices.Contains(SortKeys, k) {
			return nil, fmt.Errorf("unknown sort key %q (want one of %s)", k, strings.Join(SortKeys, ", "))
		}
	}

	entries, err := p.selectAcquisitions(m, opts)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		for i, k := range sortBy {
			as, ai := a.key(k)
			bs, bi := b.key(k)
			c := cmp.Or(strings.Compare(as, bs), cmp.Compare(ai, bi))
			if c == 0 {
				continue
			}
			if i < len(opts.Reverse) && opts.Reverse[i] {
				return -c
			}
			return c
		}
		return 0
	})
	p.log.Info("dry run", "acquisitions", len(entries), "group", opts.Group, "sort", sortBy)

	expanded := make([]expansion, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			expanded[i] = p.expand(e.sample, e.acq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}

	return p.assemble(entries, expanded), nil
}

func (p *Planner) selectAcquisitions(m *Manifest, opts Options) ([]entry, error) {
	group := strings.ToLower(strings.TrimSpace(opts.Group))
	var entries []entry
	for si := range m.Samples {
		s := &m.Samples[si]
		for ai := range s.Acquisitions {
			a := &s.Acquisitions[ai]
			if group != "" && group != "all" && strings.ToLower(a.Group) != group {
				continue
			}
			prio := a.EffectivePriority()
			if opts.MaxPriority > 0 && prio > opts.MaxPriority {
				continue
			}
			if a.UID == "" {
				id, err := uuid.NewUUID()
				if err != nil {
					return nil, fmt.Errorf("acquisition uid: %w", err)
				}
				a.UID = id.String()
			}
			entries = append(entries, entry{sample: s, acq: a, sampleNum: si, priority: prio})
		}
	}
	return entries, nil
}

// assemble lays the expanded acquisitions out in queue order and fills in
// the time bookkeeping.
func (p *Planner) assemble(entries []entry, expanded []expansion) *Queue {
	q := &Queue{}
	cat := p.builder.Catalog()
	var total float64
	previous := ""
	for i, e := range entries {
		x := expanded[i]
		sum := Summary{
			Index:         i,
			SampleID:      e.sample.ID,
			SampleName:    e.sample.Name,
			Project:       e.sample.Project,
			Configuration: e.acq.Configuration,
			Type:          e.acq.Type,
			Edge:          e.acq.Edge.String(),
			Group:         e.acq.Group,
			Priority:      e.priority,
			UID:           e.acq.UID,
			Seconds:       x.seconds,
		}
		if e.acq.Configuration != previous {
			total += ConfigChangeSeconds
			sum.ConfigChange = true
		}
		sum.Start = total

		if x.seconds > exposure.LongStepSeconds {
			q.warn(p.log, "acquisition %d (%s) will take %.1f minutes, more than %d", i, sampleLabel(e.sample), x.seconds/60, exposure.LongStepSeconds/60)
		}
		if !cat.ValidConfiguration(e.acq.Configuration) {
			q.warn(p.log, "acquisition %d (%s) has an invalid configuration %q", i, sampleLabel(e.sample), e.acq.Configuration)
		}

		for j, st := range x.steps {
			st.AcqIndex = i
			st.QueueStep = j
			st.AcqTime = x.seconds
			st.TotalAcq = len(entries)
			st.TimeBefore = total
			st.Priority = e.priority
			st.UID = e.acq.UID
			st.Group = e.acq.Group
			if st.Action == ActionError {
				sum.Errors++
				q.warn(p.log, "acquisition %d (%s) has an error: %s", i, sampleLabel(e.sample), st.Description)
			}
			q.Steps = append(q.Steps, st)
		}
		q.Acquisitions = append(q.Acquisitions, sum)
		total += x.seconds
		previous = e.acq.Configuration
	}
	for i := range q.Steps {
		q.Steps[i].TotalQueueTime = total
		q.Steps[i].TimeAfter = total - q.Steps[i].TimeBefore - q.Steps[i].AcqTime
	}
	q.TotalSeconds = total
	return q
}

func (q *Queue) warn(log *slog.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn(msg)
	q.Warnings = append(q.Warnings, msg)
}
