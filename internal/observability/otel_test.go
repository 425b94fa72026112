package observability

import "testing"

func TestParseHeaderList(t *testing.T) {
	got := parseHeaderList(" authorization = Bearer abc , broken, =novalue, x-team=prism ")
	if len(got) != 2 {
		t.Fatalf("headers: want=2 got=%d (%v)", len(got), got)
	}
	if got["authorization"] != "Bearer abc" || got["x-team"] != "prism" {
		t.Fatalf("unexpected headers: %v", got)
	}
	if parseHeaderList("") != nil {
		t.Fatalf("empty list should be nil")
	}
}

func TestClamp01(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0.25: 0.25, 3: 1} {
		if got := clamp01(in); got != want {
			t.Fatalf("clamp01(%v): want=%v got=%v", in, want, got)
		}
	}
}
