package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T) *Registry {
	t.Helper()
	r := New()
	for _, c := range []*review.Case{
		{ID: "case-003", ReceivedAt: t0, SLAHours: 24, Status: review.StatusPending},
		{ID: "case-001", ReceivedAt: t0.Add(-10 * time.Hour), SLAHours: 72, Status: review.StatusActionRequired},
		{ID: "case-002", ReceivedAt: t0, SLAHours: 24, Status: review.StatusAnalyzing},
		{ID: "case-004", ReceivedAt: t0.Add(-1 * time.Hour), SLAHours: 72, Status: review.StatusAutoApproved},
		{ID: "case-005", ReceivedAt: t0.Add(-2 * time.Hour), SLAHours: 72, Status: review.StatusApproved},
		{ID: "case-006", ReceivedAt: t0.Add(-3 * time.Hour), SLAHours: 72, Status: review.StatusDenied},
	} {
		if !r.Upsert(c) {
			t.Fatalf("upsert %s rejected", c.ID)
		}
	}
	return r
}

func ids(rows []Summary) []string {
	out := make([]string, 0, len(rows))
	for _, s := range rows {
		out = append(out, s.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListFilters(t *testing.T) {
	r := seed(t)
	cases := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"case-002", "case-003", "case-001", "case-006", "case-005", "case-004"}},
		{FilterPending, []string{"case-002", "case-003"}},
		{FilterActionRequired, []string{"case-001"}},
		{FilterApproved, []string{"case-005", "case-004"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			got := ids(r.List(Query{Filter: tc.filter, Sort: SortSLARemaining, Direction: Asc}, t0))
			if !equal(got, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestListSortByReceivedDateTiesBreakOnID(t *testing.T) {
	r := seed(t)
	asc := ids(r.List(Query{Filter: FilterAll, Sort: SortReceivedDate, Direction: Asc}, t0))
	wantAsc := []string{"case-001", "case-006", "case-005", "case-004", "case-002", "case-003"}
	if !equal(asc, wantAsc) {
		t.Fatalf("asc: want=%v got=%v", wantAsc, asc)
	}
	desc := ids(r.List(Query{Filter: FilterAll, Sort: SortReceivedDate, Direction: Desc}, t0))
	wantDesc := []string{"case-002", "case-003", "case-004", "case-005", "case-006", "case-001"}
	if !equal(desc, wantDesc) {
		t.Fatalf("desc: want=%v got=%v", wantDesc, desc)
	}
}

func TestUpsertIgnoresOlderVersion(t *testing.T) {
	r := New()
	r.Upsert(&review.Case{ID: "case-001", Status: review.StatusDenied, Version: 3})
	if r.Upsert(&review.Case{ID: "case-001", Status: review.StatusPending, Version: 2}) {
		t.Fatalf("older version should be rejected")
	}
	c, _ := r.Get("case-001")
	if c.Status != review.StatusDenied {
		t.Fatalf("status: want=%s got=%s", review.StatusDenied, c.Status)
	}
}

func TestUpsertStoresCopy(t *testing.T) {
	r := New()
	c := &review.Case{ID: "case-001", RFI: &review.RFIState{Draft: "a"}}
	r.Upsert(c)
	c.RFI.Draft = "b"
	got, _ := r.Get("case-001")
	if got.RFI.Draft != "a" {
		t.Fatalf("registry copy mutated: %q", got.RFI.Draft)
	}
}

func TestCountsCoverEveryStatus(t *testing.T) {
	r := seed(t)
	counts := r.Counts()
	if len(counts) != len(review.Statuses()) {
		t.Fatalf("counts size: want=%d got=%d", len(review.Statuses()), len(counts))
	}
	if counts[review.StatusPending] != 1 || counts[review.StatusAnalyzing] != 1 || counts[review.StatusApproved] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestNextIDSkipsExisting(t *testing.T) {
	r := seed(t)
	if got := r.NextID(); got != "case-007" {
		t.Fatalf("next id: want=case-007 got=%s", got)
	}
	if got := r.NextID(); got != "case-008" {
		t.Fatalf("next id: want=case-008 got=%s", got)
	}
}

func TestNextIDConcurrentUnique(t *testing.T) {
	r := New()
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.NextID()
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %s", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("", "", "")
	if err != nil || q != DefaultQuery() {
		t.Fatalf("defaults: got=%+v err=%v", q, err)
	}
	q, err = ParseQuery("Approved", "received_date", "DESC")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Filter != FilterApproved || q.Sort != SortReceivedDate || q.Direction != Desc {
		t.Fatalf("unexpected query: %+v", q)
	}
	if _, err := ParseQuery("bogus", "", ""); err == nil {
		t.Fatalf("expected error for unknown filter")
	}
}
