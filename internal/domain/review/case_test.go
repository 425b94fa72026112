package review

import (
	"testing"
	"time"
)

func TestStatusDurable(t *testing.T) {
	if got := StatusAnalyzing.Durable(); got != StatusPending {
		t.Fatalf("Analyzing.Durable: want=%s got=%s", StatusPending, got)
	}
	if got := StatusDenied.Durable(); got != StatusDenied {
		t.Fatalf("Denied.Durable: want=%s got=%s", StatusDenied, got)
	}
}

func TestParseOutcome(t *testing.T) {
	cases := map[string]Outcome{
		"approved":        OutcomeApproved,
		"ACTION_REQUIRED": OutcomeActionRequired,
		"action required": OutcomeActionRequired,
		"auto-approved":   OutcomeAutoApproved,
		"gold card":       OutcomeAutoApproved,
	}
	for raw, want := range cases {
		got, err := ParseOutcome(raw)
		if err != nil {
			t.Fatalf("ParseOutcome(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseOutcome(%q): want=%s got=%s", raw, want, got)
		}
	}
	if _, err := ParseOutcome("UNKNOWN"); err == nil {
		t.Fatalf("ParseOutcome(UNKNOWN): expected error")
	}
}

func TestNewVerdictCopiesInput(t *testing.T) {
	entities := []string{"CRP", "MRI"}
	in := VerdictInput{
		Outcome:  OutcomeActionRequired,
		Entities: entities,
		Evidence: &EvidenceCitation{Quote: "  elevated CRP ", Page: 3},
		Decision: []byte(`{"resourceType":"Bundle"}`),
	}
	v, err := NewVerdict(in, 2, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("NewVerdict: %v", err)
	}
	entities[0] = "mutated"
	in.Decision[0] = 'X'
	if v.Entities[0] != "CRP" {
		t.Fatalf("entities aliased caller slice: %v", v.Entities)
	}
	if v.Decision[0] != '{' {
		t.Fatalf("decision aliased caller bytes")
	}
	if v.Evidence == nil || v.Evidence.Quote != "elevated CRP" || v.Evidence.Page != 3 {
		t.Fatalf("evidence: got=%+v", v.Evidence)
	}
	if v.Attempt != 2 {
		t.Fatalf("attempt: want=2 got=%d", v.Attempt)
	}
}

func TestNewVerdictDropsEmptyQuote(t *testing.T) {
	v, err := NewVerdict(VerdictInput{Outcome: OutcomeDenied, Evidence: &EvidenceCitation{Quote: "   "}}, 1, time.Now())
	if err != nil {
		t.Fatalf("NewVerdict: %v", err)
	}
	if v.Evidence != nil {
		t.Fatalf("expected nil evidence for blank quote")
	}
}

func TestNewVerdictRejectsUnknownOutcome(t *testing.T) {
	if _, err := NewVerdict(VerdictInput{Outcome: "MAYBE"}, 1, time.Now()); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
}

func TestCaseCloneOwnsRFI(t *testing.T) {
	sent := time.Now()
	c := &Case{ID: "case-001", RFI: &RFIState{Draft: "a", SentAt: &sent}}
	cp := c.Clone()
	cp.RFI.Draft = "b"
	*cp.RFI.SentAt = sent.Add(time.Hour)
	if c.RFI.Draft != "a" {
		t.Fatalf("clone shares RFI draft")
	}
	if !c.RFI.SentAt.Equal(sent) {
		t.Fatalf("clone shares SentAt")
	}
}
