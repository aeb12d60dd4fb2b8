package harness

import "github.com/roach88/factlog/internal/ir"

// StepTrace records the settled store after installation or one step.
type StepTrace struct {
	Action  string `json:"action"` // "install" or a step kind
	Epoch   int64  `json:"epoch"`
	Base    int    `json:"base"`
	Derived int    `json:"derived"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace holds one entry for installation and one per step.
	Trace []StepTrace `json:"trace"`

	// Statements is Base ∪ Derived after the last step.
	Statements []ir.Fact `json:"-"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
