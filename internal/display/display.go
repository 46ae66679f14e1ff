// Package display provides human-readable names for machine codes.
//
// Rule: codes are for machines, words are for humans.
// Use these functions in CLI tables and Markdown reports.
// Keep raw codes in JSON and YAML output and in comparisons.
package display

import "strings"

// --- Edges ---

var edges = map[string]string{
	"carbon":             "Carbon K",
	"carbon nonaromatic": "Carbon K (non-aromatic)",
	"nitrogen":           "Nitrogen K",
	"oxygen":             "Oxygen K",
	"fluorine":           "Fluorine K",
	"aluminium":          "Aluminium K",
	"magnesium":          "Magnesium K",
	"siliconk":           "Silicon K",
	"calcium":            "Calcium L",
	"zincl":              "Zinc L",
	"sulfurl":            "Sulfur L",
	"ironl":              "Iron L",
}

// Edge returns the human-readable name for a canonical edge name.
// "carbon" -> "Carbon K". Unknown names, including threshold lists,
// are returned as-is.
func Edge(name string) string {
	if label, ok := edges[strings.ToLower(name)]; ok {
		return label
	}
	return name
}

// EdgeWithCode returns "Carbon K (carbon)" format.
func EdgeWithCode(name string) string {
	label, ok := edges[strings.ToLower(name)]
	if !ok {
		return name
	}
	return label + " (" + name + ")"
}

// --- Queue actions ---

var actions = map[string]string{
	"load_configuration": "Load configuration",
	"load_sample":        "Load sample",
	"move":               "Move motor",
	"temp":               "Set temperature",
	"diode_high":         "Diode high range",
	"diode_low":          "Diode low range",
	"rsoxs_scan_core":    "RSoXS scan",
	"nexafs_scan_core":   "NEXAFS scan",
	"spiral_scan_core":   "Spiral scan",
	"sleep":              "Sleep",
	"message":            "Message",
	"warning":            "Warning",
	"error":              "Error",
}

// Action returns the human-readable name for a queue step action.
// "rsoxs_scan_core" -> "RSoXS scan".
func Action(code string) string {
	if name, ok := actions[code]; ok {
		return name
	}
	return code
}

// --- Acquisition types ---

var acqTypes = map[string]string{
	"rsoxs":  "RSoXS",
	"nexafs": "NEXAFS",
	"spiral": "Spiral",
	"sleep":  "Sleep",
	"wait":   "Sleep",
	"pause":  "Sleep",
}

// AcquisitionType returns the display name for a manifest acquisition type,
// matched case-insensitively.
func AcquisitionType(t string) string {
	if name, ok := acqTypes[strings.ToLower(t)]; ok {
		return name
	}
	return t
}

// --- Exposure rule tags ---

var tags = map[string]string{
	"between":      "between",
	"greater_than": "above",
	"less_than":    "below",
	"equals":       "at",
}

// Rule humanizes an exposure rule in its "tag:b1:b2=value" form.
// "between:280:290=4" -> "between 280-290 eV: 4 s", "2" -> "otherwise: 2 s".
func Rule(rule string) string {
	test, value, ok := strings.Cut(rule, "=")
	if !ok {
		return "otherwise: " + rule + " s"
	}
	parts := strings.Split(test, ":")
	tag, ok := tags[parts[0]]
	if !ok {
		return rule
	}
	return tag + " " + strings.Join(parts[1:], "-") + " eV: " + value + " s"
}
