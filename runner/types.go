package runner

import (
	"time"
)

// StepName identifies one workflow step.
type StepName string

const (
	StepSiteAccess          StepName = "site_access"
	StepLogin               StepName = "login"
	StepVehicleSearch       StepName = "vehicle_search"
	StepVehicleSelection    StepName = "vehicle_selection"
	StepDiscountApplication StepName = "discount_application"
)

// Steps lists every step in execution and display order.
var Steps = []StepName{
	StepSiteAccess,
	StepLogin,
	StepVehicleSearch,
	StepVehicleSelection,
	StepDiscountApplication,
}

// Index returns the position of the step in Steps, or -1.
func (s StepName) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

// StepOutcome represents the result of one step attempt
type StepOutcome struct {
	Step       StepName  `json:"step"`
	Succeeded  bool      `json:"succeeded"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RunResult represents the result of running the workflow once
type RunResult struct {
	ID        string        `json:"id"`
	LookupKey string        `json:"lookup_key"`
	Outcomes  []StepOutcome `json:"outcomes"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Failed returns the failing outcome, if any. It is always the last entry.
func (r RunResult) Failed() (StepOutcome, bool) {
	if n := len(r.Outcomes); n > 0 && !r.Outcomes[n-1].Succeeded {
		return r.Outcomes[n-1], true
	}
	return StepOutcome{}, false
}

// Successes counts the succeeded outcomes.
func (r RunResult) Successes() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded {
			n++
		}
	}
	return n
}
