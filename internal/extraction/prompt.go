package extraction

import (
	"fmt"
	"strings"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

// systemPrompt instructs the model to transcribe, not infer. The numeric
// fields must come off the page even when they fail arithmetic: the
// validation engine is the component that judges consistency.
const systemPrompt = `You are a meticulous election document transcriber. You are given every page
of one polling station tally form as images. Read all pages together: ballot
statistics, voter statistics, and vote tallies may appear on different pages
of the same form.

Transcribe exactly what is written on the form into the required JSON
structure. Copy numbers as written even if they look arithmetically
inconsistent. Thai digits and handwritten numerals must be converted to
integers; keep the handwritten spelled-out count in vote_count_text verbatim.

form_type is "constituency" when the form tallies individual candidates and
"party_list" when it tallies parties. Constituency entries must carry
candidate_name; party_list entries must carry party_name.

Return only the JSON object, no commentary.`

// buildUserContext renders the textual part of the request that accompanies
// the page images. attached may be lower than the recorded page count when
// some pages could not be resolved.
func buildUserContext(input domain.FormInput, attached int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Form set: %s\n", input.FormSetName)
	fmt.Fprintf(&b, "Pages attached: %d of %d recorded\n", attached, input.PageCount)
	if input.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", input.Context)
	}
	b.WriteString("Extract the complete form into the required JSON structure.")
	return b.String()
}
