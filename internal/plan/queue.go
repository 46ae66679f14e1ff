package plan

// Step actions emitted by a dry run.
const (
	ActionLoadConfiguration = "load_configuration"
	ActionLoadSample        = "load_sample"
	ActionMove              = "move"
	ActionTemp              = "temp"
	ActionDiodeHigh         = "diode_high"
	ActionDiodeLow          = "diode_low"
	ActionRSoXS             = "rsoxs_scan_core"
	ActionNEXAFS            = "nexafs_scan_core"
	ActionSpiral            = "spiral_scan_core"
	ActionSleep             = "sleep"
	ActionMessage           = "message"
	ActionWarning           = "warning"
	ActionError             = "error"
)

// ConfigChangeSeconds is added whenever consecutive acquisitions use
// different configurations.
const ConfigChangeSeconds = 120

// Step is one queue entry. Kwargs are the arguments the executing plan
// would receive.
type Step struct {
	Action      string         `json:"action" yaml:"action"`
	Description string         `json:"description" yaml:"description"`
	Kwargs      map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`

	AcqIndex       int     `json:"acq_index" yaml:"acq_index"`
	QueueStep      int     `json:"queue_step" yaml:"queue_step"`
	AcqTime        float64 `json:"acq_time" yaml:"acq_time"`
	TotalAcq       int     `json:"total_acq" yaml:"total_acq"`
	TimeBefore     float64 `json:"time_before" yaml:"time_before"`
	TotalQueueTime float64 `json:"total_queue_time" yaml:"total_queue_time"`
	TimeAfter      float64 `json:"time_after" yaml:"time_after"`
	Priority       int     `json:"priority" yaml:"priority"`
	UID            string  `json:"uid" yaml:"uid"`
	Group          string  `json:"group" yaml:"group"`
}

// Summary describes one acquisition in queue order.
type Summary struct {
	Index         int     `json:"index" yaml:"index"`
	SampleID      string  `json:"sample_id" yaml:"sample_id"`
	SampleName    string  `json:"sample_name" yaml:"sample_name"`
	Project       string  `json:"project" yaml:"project"`
	Configuration string  `json:"configuration" yaml:"configuration"`
	Type          string  `json:"type" yaml:"type"`
	Edge          string  `json:"edge" yaml:"edge"`
	Group         string  `json:"group" yaml:"group"`
	Priority      int     `json:"priority" yaml:"priority"`
	UID           string  `json:"uid" yaml:"uid"`
	Start         float64 `json:"start" yaml:"start"`
	Seconds       float64 `json:"seconds" yaml:"seconds"`
	ConfigChange  bool    `json:"config_change" yaml:"config_change"`
	Errors        int     `json:"errors" yaml:"errors"`
}

// Queue is the dry-run result.
type Queue struct {
	Steps        []Step    `json:"steps" yaml:"steps"`
	Acquisitions []Summary `json:"acquisitions" yaml:"acquisitions"`
	TotalSeconds float64   `json:"total_seconds" yaml:"total_seconds"`
	Warnings     []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Errors returns the error steps.
func (q *Queue) Errors() []Step {
	var out []Step
	for _, s := range q.Steps {
		if s.Action == ActionError {
			out = append(out, s)
		}
	}
	return out
}
