// Package evidence maps an analysis citation to a place in the source document.
package evidence

import "github.com/yungbote/prism-backend/internal/domain/review"

// Target is where a viewer should jump to verify a quote.
type Target struct {
	Quote string `json:"quote"`
	Page  int    `json:"page"`
}

// Locate returns the target for v's citation. A citation without a page hint
// points at page 1. Whether the viewer is currently linked to the target is
// the caller's state, not ours.
func Locate(v *review.Verdict) (Target, bool) {
	if v == nil || v.Evidence == nil || v.Evidence.Quote == "" {
		return Target{}, false
	}
	page := v.Evidence.Page
	if page <= 0 {
		page = 1
	}
	return Target{Quote: v.Evidence.Quote, Page: page}, true
}

// LocateCase is Locate over a case's current verdict.
func LocateCase(c *review.Case) (Target, bool) {
	if c == nil {
		return Target{}, false
	}
	return Locate(c.Verdict)
}
