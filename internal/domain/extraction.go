// Package domain defines the core data model for structured extraction of
// scanned election tally forms and its evaluation: extraction results,
// dataset records, validation reports, and experiment run/batch results.
//
// All types are plain values with explicit Validate methods. Nothing in this
// package performs I/O; transport, storage, and orchestration live in their
// own packages and depend on these types, never the other way around.
package domain

import (
	"fmt"
)

// FormType discriminates the two tally form layouts. The form type of the
// parent record determines which name field is mandatory on each vote entry:
// constituency forms tally candidates, party-list forms tally parties.
type FormType string

const (
	// FormTypeConstituency is a per-candidate tally form.
	FormTypeConstituency FormType = "constituency"

	// FormTypePartyList is a per-party tally form.
	FormTypePartyList FormType = "party_list"
)

// Valid reports whether the form type is one of the known layouts.
func (t FormType) Valid() bool {
	return t == FormTypeConstituency || t == FormTypePartyList
}

// RequiresCandidateNames reports whether vote entries of this form type must
// carry a candidate name. Party-list entries require a party name instead;
// the two requirements are mutually exclusive by form type.
func (t FormType) RequiresCandidateNames() bool {
	return t == FormTypeConstituency
}

// FormInfo identifies one physical tally form: its layout, date, and the
// administrative location of the polling station it was filled in at.
type FormInfo struct {
	FormType             FormType `json:"form_type"              validate:"required"`
	Date                 string   `json:"date"`
	Province             string   `json:"province"`
	District             string   `json:"district"`
	SubDistrict          string   `json:"sub_district"`
	ConstituencyNumber   int      `json:"constituency_number"    validate:"min=0"`
	PollingStationNumber string   `json:"polling_station_number"`
}

// VoterStatistics holds the turnout figures recorded on the form.
type VoterStatistics struct {
	EligibleVoters int `json:"eligible_voters" validate:"min=0"`
	VotersPresent  int `json:"voters_present"  validate:"min=0"`
}

// BallotStatistics is the six-field ballot accounting for one form.
// The arithmetic invariant used == good + bad + no_vote is checked by the
// validation engine, not enforced here: extraction output is recorded as the
// model produced it.
type BallotStatistics struct {
	BallotsAllocated int `json:"ballots_allocated" validate:"min=0"`
	BallotsUsed      int `json:"ballots_used"      validate:"min=0"`
	GoodBallots      int `json:"good_ballots"      validate:"min=0"`
	BadBallots       int `json:"bad_ballots"       validate:"min=0"`
	NoVoteBallots    int `json:"no_vote_ballots"   validate:"min=0"`
	BallotsRemaining int `json:"ballots_remaining" validate:"min=0"`
}

// VoteEntry is one tally row, keyed by Number within its record.
//
// The wire format carries no per-entry discriminator; the parent record's
// form_type selects which variant an entry is. Use NewConstituencyEntry or
// NewPartyListEntry to construct entries of a known variant. The
// mutually-exclusive name requirement is enforced by ValidateExtraction.
type VoteEntry struct {
	Number        int    `json:"number"                   validate:"min=1"`
	CandidateName string `json:"candidate_name,omitempty"`
	PartyName     string `json:"party_name,omitempty"`
	VoteCount     int    `json:"vote_count"               validate:"min=0"`
	VoteCountText string `json:"vote_count_text,omitempty"`
}

// NewConstituencyEntry builds a vote entry for a constituency form.
func NewConstituencyEntry(number int, candidate, party string, votes int, votesText string) VoteEntry {
	return VoteEntry{
		Number:        number,
		CandidateName: candidate,
		PartyName:     party,
		VoteCount:     votes,
		VoteCountText: votesText,
	}
}

// NewPartyListEntry builds a vote entry for a party-list form.
func NewPartyListEntry(number int, party string, votes int, votesText string) VoteEntry {
	return VoteEntry{
		Number:        number,
		PartyName:     party,
		VoteCount:     votes,
		VoteCountText: votesText,
	}
}

// ExtractionResult is the structured output of one extraction call over all
// pages of a form set. It is created fresh per task invocation and never
// mutated after being returned.
type ExtractionResult struct {
	FormInfo         FormInfo         `json:"form_info"         validate:"required"`
	VoterStatistics  VoterStatistics  `json:"voter_statistics"`
	BallotStatistics BallotStatistics `json:"ballot_statistics"`
	VoteResults      []VoteEntry      `json:"vote_results"      validate:"dive"`
}

// Validate checks structural integrity: known form type, field ranges, and
// per-record uniqueness of vote entry numbers. Arithmetic invariants are the
// validation engine's concern and are deliberately not checked here.
func (r *ExtractionResult) Validate() error {
	if !r.FormInfo.FormType.Valid() {
		return fmt.Errorf("%w: unknown form_type %q", ErrInvalidExtraction, r.FormInfo.FormType)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExtraction, err)
	}
	seen := make(map[int]struct{}, len(r.VoteResults))
	for _, entry := range r.VoteResults {
		if _, dup := seen[entry.Number]; dup {
			return fmt.Errorf("%w: duplicate vote entry number %d", ErrInvalidExtraction, entry.Number)
		}
		seen[entry.Number] = struct{}{}
	}
	return nil
}

// TallySum returns the sum of vote counts over all entries.
func (r *ExtractionResult) TallySum() int {
	total := 0
	for _, entry := range r.VoteResults {
		total += entry.VoteCount
	}
	return total
}
