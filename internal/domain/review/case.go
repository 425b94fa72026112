package review

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSLAHours is applied when a case is registered without an SLA budget.
const DefaultSLAHours = 72

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusAnalyzing      Status = "ANALYZING"
	StatusApproved       Status = "APPROVED"
	StatusAutoApproved   Status = "AUTO_APPROVED"
	StatusDenied         Status = "DENIED"
	StatusActionRequired Status = "ACTION_REQUIRED"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusApproved,
	StatusAutoApproved,
	StatusDenied,
	StatusActionRequired,
}

// Statuses lists every status in display order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range allStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown case status %q", raw)
}

// Terminal reports whether no automatic transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusAutoApproved || s == StatusDenied
}

// Durable maps a status to the value that may be written to storage.
// Analyzing only exists while a submission is in flight.
func (s Status) Durable() Status {
	if s == StatusAnalyzing {
		return StatusPending
	}
	return s
}

// Case is the record of one prior-authorization request under review.
type Case struct {
	ID            string    `json:"id"`
	PatientName   string    `json:"patient_name"`
	PolicyID      string    `json:"policy_id"`
	PolicyName    string    `json:"policy_name"`
	ProviderID    string    `json:"provider_id,omitempty"`
	ProviderEmail string    `json:"provider_email,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
	SLAHours      float64   `json:"sla_hours"`
	Status        Status    `json:"status"`
	Verdict       *Verdict  `json:"verdict,omitempty"`
	// VerdictCount is the number of verdicts ever attached, the latest included.
	VerdictCount int `json:"verdict_count"`
	// Attempts is the number of analysis submissions ever started, failed
	// and in-flight ones included.
	Attempts    int       `json:"attempts"`
	RFI         *RFIState `json:"rfi,omitempty"`
	DocumentRef string    `json:"document_ref"`
	Version     uint64    `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy that shares the immutable verdict but owns its RFI state.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	if c.RFI != nil {
		rfi := c.RFI.clone()
		out.RFI = &rfi
	}
	return &out
}

func (c *Case) HasVerdict() bool { return c != nil && c.Verdict != nil }

// SettledStatus is the status the case falls back to when no analysis is in
// flight: the latest verdict's status, or PENDING when there is none.
func (c *Case) SettledStatus() Status {
	if c.Status != StatusAnalyzing {
		return c.Status
	}
	if c.Verdict != nil {
		return c.Verdict.Outcome.Status()
	}
	return StatusPending
}

// RFIState tracks one request-for-information round.
type RFIState struct {
	Round       int        `json:"round"`
	Draft       string     `json:"draft"`
	Sent        bool       `json:"sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	SentMessage string     `json:"sent_message,omitempty"`
	SentBy      string     `json:"sent_by,omitempty"`
	AckID       string     `json:"ack_id,omitempty"`
}

func (r RFIState) clone() RFIState {
	out := r
	if r.SentAt != nil {
		t := *r.SentAt
		out.SentAt = &t
	}
	return out
}
