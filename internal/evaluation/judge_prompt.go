package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// judgeSystemPrompt frames the judge's role and the scoring rubric. The
// numeric bands keep scores comparable across judge models.
const judgeSystemPrompt = `You are an exacting grader of structured data extracted from scanned election
tally forms. You compare an extraction against ground truth and return a
single holistic quality score with structured diagnostics.

Assess four dimensions:
1. form_info — form type, date, and administrative location fields
2. voter_statistics — eligible voters and voters present
3. ballot_statistics — all six ballot accounting fields
4. vote_results — entry numbers, names, and vote counts

Scoring rubric:
- 1.0: perfect extraction, every field matches
- 0.8-0.9: very good, only minor discrepancies (e.g. formatting of a date)
- 0.6-0.7: good, a few wrong fields with limited impact
- 0.4-0.5: fair, noticeable errors including some wrong counts
- 0.0-0.3: poor, systematic errors or wrong/missing tally entries

Respond with only a JSON object of the form
{"score": <float 0..1>, "reasoning": <string>, "errors": [{"field": <string>,
"expected": <string>, "actual": <string>, "severity": <string>}],
"summary": <string>}.`

// buildJudgePrompt serializes the record's output and ground truth into the
// judge's user prompt.
func buildJudgePrompt(s Sample) (string, error) {
	output, err := json.MarshalIndent(s.Output, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize output: %w", err)
	}
	expected, err := json.MarshalIndent(s.Expected, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize expected output: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: structured extraction of the multi-page tally form set %q", s.Input.FormSetName)
	if s.Input.Context != "" {
		fmt.Fprintf(&b, " (%s)", s.Input.Context)
	}
	b.WriteString(".\n\nExtracted output:\n")
	b.Write(output)
	b.WriteString("\n\nGround truth:\n")
	b.Write(expected)
	b.WriteString("\n\nGrade the extraction per the rubric and respond with the JSON object only.")
	return b.String(), nil
}
