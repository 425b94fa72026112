package review

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewError(KindAnalysisRejected, "case-001", errors.New("bad pdf")))
	if !errors.Is(err, ErrAnalysisRejected) {
		t.Fatalf("expected errors.Is to match ErrAnalysisRejected")
	}
	if errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("rejected must not match unavailable")
	}
	if got := KindOf(err); got != KindAnalysisRejected {
		t.Fatalf("KindOf: want=%s got=%s", KindAnalysisRejected, got)
	}
}

func TestTimeoutIsTreatedAsUnavailable(t *testing.T) {
	err := NewError(KindAnalysisTimeout, "case-002", nil)
	if !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("timeout should match ErrAnalysisUnavailable")
	}
	if !errors.Is(err, ErrAnalysisTimeout) {
		t.Fatalf("timeout should match ErrAnalysisTimeout")
	}
	if errors.Is(ErrAnalysisUnavailable, ErrAnalysisTimeout) {
		t.Fatalf("unavailable must not match timeout")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != "" {
		t.Fatalf("KindOf: want empty got=%s", got)
	}
}
