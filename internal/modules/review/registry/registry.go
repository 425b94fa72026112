// Package registry keeps the listing view over every known case.
//
// The registry holds copies; the lifecycle is the only writer and pushes a
// fresh snapshot after every transition. Snapshots carry a version so a
// late writer can never roll a record back.
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/modules/review/sla"
)

type Filter string

const (
	FilterAll            Filter = "all"
	FilterPending        Filter = "pending"
	FilterActionRequired Filter = "action_required"
	FilterApproved       Filter = "approved"
)

type SortKey string

const (
	SortReceivedDate SortKey = "received_date"
	SortSLARemaining SortKey = "sla_remaining"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Query struct {
	Filter    Filter
	Sort      SortKey
	Direction Direction
}

// DefaultQuery lists everything, most urgent deadline first.
func DefaultQuery() Query {
	return Query{Filter: FilterAll, Sort: SortSLARemaining, Direction: Asc}
}

func ParseQuery(filter, sortKey, dir string) (Query, error) {
	q := DefaultQuery()
	switch f := Filter(strings.ToLower(strings.TrimSpace(filter))); f {
	case "":
	case FilterAll, FilterPending, FilterActionRequired, FilterApproved:
		q.Filter = f
	default:
		return q, fmt.Errorf("unknown filter %q", filter)
	}
	switch s := SortKey(strings.ToLower(strings.TrimSpace(sortKey))); s {
	case "":
	case SortReceivedDate, SortSLARemaining:
		q.Sort = s
	default:
		return q, fmt.Errorf("unknown sort key %q", sortKey)
	}
	switch d := Direction(strings.ToLower(strings.TrimSpace(dir))); d {
	case "":
	case Asc, Desc:
		q.Direction = d
	default:
		return q, fmt.Errorf("unknown sort direction %q", dir)
	}
	return q, nil
}

// Matches reports whether a case in status s belongs to filter f.
// An in-flight case still counts as pending.
func (f Filter) Matches(s review.Status) bool {
	switch f {
	case FilterPending:
		return s == review.StatusPending || s == review.StatusAnalyzing
	case FilterActionRequired:
		return s == review.StatusActionRequired
	case FilterApproved:
		return s == review.StatusApproved || s == review.StatusAutoApproved
	default:
		return true
	}
}

// Summary is one row of the case listing.
type Summary struct {
	ID          string         `json:"id"`
	PatientName string         `json:"patient_name"`
	PolicyID    string         `json:"policy_id"`
	PolicyName  string         `json:"policy_name"`
	ReceivedAt  time.Time      `json:"received_at"`
	Status      review.Status  `json:"status"`
	Outcome     review.Outcome `json:"outcome,omitempty"`
	RFISent     bool           `json:"rfi_sent"`
	SLA         sla.View       `json:"sla"`
	Version     uint64         `json:"version"`
}

type Registry struct {
	mu    sync.RWMutex
	cases map[string]*review.Case
	seq   int
}

func New() *Registry {
	return &Registry{cases: map[string]*review.Case{}}
}

// Upsert stores a copy of c. It returns false and keeps the stored record when
// c is older than what the registry already holds.
func (r *Registry) Upsert(c *review.Case) bool {
	if c == nil || c.ID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.cases[c.ID]; ok && cur.Version > c.Version {
		return false
	}
	r.cases[c.ID] = c.Clone()
	if n, ok := parseSeq(c.ID); ok && n > r.seq {
		r.seq = n
	}
	return true
}

func (r *Registry) Get(id string) (*review.Case, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}

// Snapshot returns copies of every case ordered by id.
func (r *Registry) Snapshot() []*review.Case {
	r.mu.RLock()
	out := make([]*review.Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, c.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) List(q Query, now time.Time) []Summary {
	r.mu.RLock()
	out := make([]Summary, 0, len(r.cases))
	for _, c := range r.cases {
		if !q.Filter.Matches(c.Status) {
			continue
		}
		out = append(out, summarize(c, now))
	}
	r.mu.RUnlock()

	desc := q.Direction == Desc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch q.Sort {
		case SortReceivedDate:
			cmp = compareTime(a.ReceivedAt, b.ReceivedAt)
		default:
			cmp = compareFloat(a.SLA.HoursRemaining, b.SLA.HoursRemaining)
		}
		if desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		// ties always break on id ascending, whatever the direction
		return a.ID < b.ID
	})
	return out
}

// Counts tallies cases per status. Every status is present, zero or not.
func (r *Registry) Counts() map[review.Status]int {
	out := make(map[review.Status]int, len(review.Statuses()))
	for _, s := range review.Statuses() {
		out[s] = 0
	}
	r.mu.RLock()
	for _, c := range r.cases {
		out[c.Status]++
	}
	r.mu.RUnlock()
	return out
}

// NextID reserves the next case-NNN id.
func (r *Registry) NextID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		r.seq++
		id := fmt.Sprintf("case-%03d", r.seq)
		if _, taken := r.cases[id]; !taken {
			return id
		}
	}
}

func summarize(c *review.Case, now time.Time) Summary {
	s := Summary{
		ID:          c.ID,
		PatientName: c.PatientName,
		PolicyID:    c.PolicyID,
		PolicyName:  c.PolicyName,
		ReceivedAt:  c.ReceivedAt,
		Status:      c.Status,
		SLA:         sla.ForCase(c, now),
		Version:     c.Version,
	}
	if c.Verdict != nil {
		s.Outcome = c.Verdict.Outcome
	}
	if c.RFI != nil {
		s.RFISent = c.RFI.Sent
	}
	return s
}

func parseSeq(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "case-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
