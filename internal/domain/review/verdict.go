package review

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome is the decision carried by a verdict.
type Outcome string

const (
	OutcomeApproved       Outcome = "APPROVED"
	OutcomeAutoApproved   Outcome = "AUTO_APPROVED"
	OutcomeDenied         Outcome = "DENIED"
	OutcomeActionRequired Outcome = "ACTION_REQUIRED"
)

func ParseOutcome(raw string) (Outcome, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Outcome(norm) {
	case OutcomeApproved, OutcomeAutoApproved, OutcomeDenied, OutcomeActionRequired:
		return Outcome(norm), nil
	case "GOLD_CARD":
		return OutcomeAutoApproved, nil
	}
	return "", fmt.Errorf("unknown verdict outcome %q", raw)
}

// Status is the case status a verdict with this outcome moves the case to.
func (o Outcome) Status() Status {
	switch o {
	case OutcomeApproved:
		return StatusApproved
	case OutcomeAutoApproved:
		return StatusAutoApproved
	case OutcomeDenied:
		return StatusDenied
	case OutcomeActionRequired:
		return StatusActionRequired
	}
	return StatusPending
}

type EvidenceCitation struct {
	Quote string `json:"quote"`
	// Page is 1-based; zero means the engine gave no page hint.
	Page int `json:"page,omitempty"`
}

// Verdict is the output of one analysis attempt. It is never modified after
// NewVerdict returns; a later attempt produces a new value.
type Verdict struct {
	Attempt               int               `json:"attempt"`
	Outcome               Outcome           `json:"outcome"`
	Reasoning             string            `json:"reasoning"`
	Entities              []string          `json:"entities"`
	CriteriaMet           *bool             `json:"criteria_met,omitempty"`
	DocumentationComplete *bool             `json:"documentation_complete,omitempty"`
	PolicyMatch           *bool             `json:"policy_match,omitempty"`
	MissingCriteria       string            `json:"missing_criteria,omitempty"`
	MissingDocumentation  string            `json:"missing_documentation,omitempty"`
	PriorAuthStatus       string            `json:"prior_auth_status,omitempty"`
	Evidence              *EvidenceCitation `json:"evidence,omitempty"`
	Decision              json.RawMessage   `json:"decision,omitempty"`
	SuggestedRFI          string            `json:"suggested_rfi,omitempty"`
	CompletedAt           time.Time         `json:"completed_at"`
}

// VerdictInput is the raw material a gateway hands back.
type VerdictInput struct {
	Outcome               Outcome
	Reasoning             string
	Entities              []string
	CriteriaMet           *bool
	DocumentationComplete *bool
	PolicyMatch           *bool
	MissingCriteria       string
	MissingDocumentation  string
	PriorAuthStatus       string
	Evidence              *EvidenceCitation
	Decision              json.RawMessage
	SuggestedRFI          string
}

// NewVerdict deep-copies in so the caller cannot alter the verdict afterwards.
func NewVerdict(in VerdictInput, attempt int, completedAt time.Time) (*Verdict, error) {
	if in.Outcome.Status() == StatusPending {
		return nil, fmt.Errorf("unknown verdict outcome %q", in.Outcome)
	}
	v := &Verdict{
		Attempt:               attempt,
		Outcome:               in.Outcome,
		Reasoning:             strings.TrimSpace(in.Reasoning),
		Entities:              append([]string{}, in.Entities...),
		CriteriaMet:           copyBool(in.CriteriaMet),
		DocumentationComplete: copyBool(in.DocumentationComplete),
		PolicyMatch:           copyBool(in.PolicyMatch),
		MissingCriteria:       strings.TrimSpace(in.MissingCriteria),
		MissingDocumentation:  strings.TrimSpace(in.MissingDocumentation),
		PriorAuthStatus:       strings.TrimSpace(in.PriorAuthStatus),
		SuggestedRFI:          in.SuggestedRFI,
		CompletedAt:           completedAt.UTC(),
	}
	if in.Evidence != nil && strings.TrimSpace(in.Evidence.Quote) != "" {
		page := in.Evidence.Page
		if page < 0 {
			page = 0
		}
		v.Evidence = &EvidenceCitation{Quote: strings.TrimSpace(in.Evidence.Quote), Page: page}
	}
	if len(in.Decision) > 0 {
		v.Decision = append(json.RawMessage{}, in.Decision...)
	}
	return v, nil
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func Bool(v bool) *bool { return &v }
