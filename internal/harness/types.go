package harness

import (
	"github.com/roach88/consumable/internal/events"
	"github.com/roach88/consumable/internal/trace"
)

// value is the payload type every scenario queue carries.
type value struct {
	N int
}

// Observation is what one observing system saw during one execution.
type Observation struct {
	Round    int64  `json:"round"`
	SubRound int    `json:"sub_round,omitempty"`
	System   string `json:"system"`
	Values   []int  `json:"values"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: no system failed and every
	// expectation matched.
	Pass bool `json:"pass"`

	// RunID identifies the run in the trace journal.
	RunID string `json:"run_id"`

	// Observations in execution order.
	Observations []Observation `json:"observations"`

	// Final is the queue snapshot after the last round.
	Final events.Stats `json:"final"`

	// Trace is every event the host emitted.
	Trace []trace.Event `json:"-"`

	// Digest is trace.Digest over Trace.
	Digest string `json:"digest"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:         true,
		Observations: []Observation{},
		Errors:       []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Observed returns the observation of system in round/subRound.
func (r *Result) Observed(round int64, subRound int, system string) (Observation, bool) {
	for _, o := range r.Observations {
		if o.Round == round && o.SubRound == subRound && o.System == system {
			return o, true
		}
	}
	return Observation{}, false
}
