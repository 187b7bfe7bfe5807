package domain

// CheckResult is the outcome of one named validation check.
type CheckResult struct {
	Name   string  `json:"check_name"`
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
}

// ValidationReport is the result of running all ground-truth-independent
// checks against one extraction result. It is derived deterministically and
// can be recomputed whenever needed; nothing in this core persists it.
type ValidationReport struct {
	Checks []CheckResult `json:"checks"`
	Score  float64       `json:"score"`
}

// Passed reports whether every check in the report passed.
func (r ValidationReport) Passed() bool {
	return r.Score == 1.0
}

// Check returns the named check result and whether it was present.
func (r ValidationReport) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}
