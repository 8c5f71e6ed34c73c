package harness

// StepRecord is the trace entry of one executed step.
type StepRecord struct {
	Step    int        `json:"step"`
	Op      string     `json:"op"`
	Seq     int64      `json:"seq,omitempty"`
	Changed bool       `json:"changed"`
	CueID   string     `json:"cue_id,omitempty"`
	Hash    string     `json:"hash,omitempty"`
	Groups  [][]string `json:"groups,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds one record per step, in order.
	Trace []StepRecord `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Groups is the final order as cue ids per group.
	Groups [][]string `json:"groups"`

	// FinalHash is the order hash of the final cues.
	FinalHash string `json:"final_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepRecord{},
		Errors: []string{},
		Groups: [][]string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step record to the trace.
func (r *Result) AddStep(rec StepRecord) {
	r.Trace = append(r.Trace, rec)
}
