package domain

// Validation check names. Stable identifiers: they appear in reports,
// evaluation output, and logs.
const (
	CheckArithmeticClosure = "arithmetic_closure"
	CheckTallyBound        = "tally_bound"
	CheckNumberUniqueness  = "number_uniqueness"
	CheckNamePresence      = "name_presence"
)

// ValidateExtraction runs the ground-truth-independent validation engine over
// one extraction result and returns a report with one entry per check.
//
// Validation failures are diagnostics, never errors: the result under
// validation is not modified, and callers are expected to keep using it
// regardless of the report's outcome.
func ValidateExtraction(r *ExtractionResult) ValidationReport {
	checks := []CheckResult{
		checkArithmeticClosure(r),
		checkTallyBound(r),
		checkNumberUniqueness(r),
		checkNamePresence(r),
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	return ValidationReport{
		Checks: checks,
		Score:  float64(passed) / float64(len(checks)),
	}
}

// checkArithmeticClosure verifies used == good + bad + no_vote.
func checkArithmeticClosure(r *ExtractionResult) CheckResult {
	b := r.BallotStatistics
	ok := b.BallotsUsed == b.GoodBallots+b.BadBallots+b.NoVoteBallots
	return boolCheck(CheckArithmeticClosure, ok)
}

// checkTallyBound verifies that the summed tally does not exceed the used
// ballot count. Equality is not required: spoiled ballots may carry no tally
// entry, so the sum is allowed to fall short.
func checkTallyBound(r *ExtractionResult) CheckResult {
	ok := r.TallySum() <= r.BallotStatistics.BallotsUsed
	return boolCheck(CheckTallyBound, ok)
}

// checkNumberUniqueness verifies that vote entry numbers are distinct within
// the record.
func checkNumberUniqueness(r *ExtractionResult) CheckResult {
	seen := make(map[int]struct{}, len(r.VoteResults))
	ok := true
	for _, entry := range r.VoteResults {
		if _, dup := seen[entry.Number]; dup {
			ok = false
			break
		}
		seen[entry.Number] = struct{}{}
	}
	return boolCheck(CheckNumberUniqueness, ok)
}

// checkNamePresence verifies the form-type-dependent name requirement:
// constituency entries need a candidate name, party-list entries a party
// name. The two requirements are mutually exclusive by form type.
func checkNamePresence(r *ExtractionResult) CheckResult {
	ok := true
	for _, entry := range r.VoteResults {
		if r.FormInfo.FormType.RequiresCandidateNames() {
			if entry.CandidateName == "" {
				ok = false
				break
			}
		} else if entry.PartyName == "" {
			ok = false
			break
		}
	}
	return boolCheck(CheckNamePresence, ok)
}

func boolCheck(name string, passed bool) CheckResult {
	score := 0.0
	if passed {
		score = 1.0
	}
	return CheckResult{Name: name, Passed: passed, Score: score}
}
