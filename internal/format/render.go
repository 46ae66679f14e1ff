package format

import (
	"strconv"

	"rsoxsplan/internal/display"
	"rsoxsplan/internal/exposure"
	"rsoxsplan/internal/nexafs"
	"rsoxsplan/internal/plan"
)

// Energies renders one row per energy. times may be nil; otherwise it is
// co-indexed with energies.
func Energies(m Mode, energies, times []float64) string {
	tb := NewTable(m)
	if times == nil {
		tb.Header("#", "Energy (eV)")
	} else {
		tb.Header("#", "Energy (eV)", "Exposure (s)")
	}
	for i, e := range energies {
		if times == nil {
			tb.Row(i, Energy(e))
			continue
		}
		tb.Row(i, Energy(e), Seconds(times[i]))
	}
	numeric(tb, 3)
	return tb.String()
}

// Bands renders the runs of energies that share an exposure rule.
func Bands(m Mode, energies []float64, policy exposure.Policy, a exposure.Assignment) string {
	tb := NewTable(m)
	tb.Header("Rule", "From (eV)", "To (eV)", "Points", "Exposure (s)")
	for _, b := range a.Bands {
		rule := strconv.Itoa(b.Rule)
		if b.Rule < len(policy) {
			rule = display.Rule(policy[b.Rule].String())
		}
		tb.Row(rule, Energy(energies[b.Start]), Energy(energies[b.Start+b.Count-1]), b.Count, Seconds(b.Exposure))
	}
	numeric(tb, 5, 1)
	return tb.String()
}

// Segments renders NEXAFS fly-scan segments with the total flight time.
func Segments(m Mode, segs []nexafs.Segment) string {
	tb := NewTable(m)
	tb.Header("From (eV)", "To (eV)", "Speed (eV/s)", "Time")
	var total float64
	for _, s := range segs {
		sec := s.Seconds()
		total += sec
		tb.Row(Energy(s.Start), Energy(s.End), Seconds(s.Speed), Duration(sec))
	}
	tb.Footer("TOTAL", "", "", Duration(total))
	numeric(tb, 4)
	return tb.String()
}

// Queue renders one row per acquisition of a dry run.
func Queue(m Mode, q *plan.Queue) string {
	tb := NewTable(m)
	tb.Header("#", "Sample", "Config", "Reload", "Type", "Edge", "Priority", "Start", "Duration", "Errors")
	for _, s := range q.Acquisitions {
		sample := s.SampleID
		if s.SampleName != "" {
			sample += " " + s.SampleName
		}
		tb.Row(s.Index, Truncate(sample, 32), s.Configuration, BoolMark(s.ConfigChange),
			display.AcquisitionType(s.Type), display.Edge(s.Edge),
			s.Priority, Duration(s.Start), Duration(s.Seconds), s.Errors)
	}
	tb.Footer("TOTAL", "", "", "", "", "", "", "", Duration(q.TotalSeconds), len(q.Errors()))
	tb.Columns(
		ColumnConfig{Number: 1, Align: AlignRight},
		ColumnConfig{Number: 4, Align: AlignCenter},
		ColumnConfig{Number: 7, Align: AlignRight},
		ColumnConfig{Number: 8, Align: AlignRight},
		ColumnConfig{Number: 9, Align: AlignRight},
		ColumnConfig{Number: 10, Align: AlignRight},
	)
	return tb.String()
}

// Steps renders every queue step.
func Steps(m Mode, steps []plan.Step) string {
	tb := NewTable(m)
	tb.Header("Acq", "Step", "Action", "Description", "Before", "After")
	for _, s := range steps {
		tb.Row(s.AcqIndex, s.QueueStep, display.Action(s.Action), Truncate(s.Description, 72),
			Duration(s.TimeBefore), Duration(s.TimeAfter))
	}
	tb.Columns(
		ColumnConfig{Number: 1, Align: AlignRight},
		ColumnConfig{Number: 2, Align: AlignRight},
		ColumnConfig{Number: 5, Align: AlignRight},
		ColumnConfig{Number: 6, Align: AlignRight},
	)
	return tb.String()
}
