package sla

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeAtReceipt(t *testing.T) {
	v := Compute(t0, 72, t0)
	if !approx(v.HoursRemaining, 72) {
		t.Fatalf("hours remaining: want=72 got=%v", v.HoursRemaining)
	}
	if !approx(v.ProgressPercent, 0) {
		t.Fatalf("progress: want=0 got=%v", v.ProgressPercent)
	}
	if v.Urgency != UrgencyNormal {
		t.Fatalf("urgency: want=%s got=%s", UrgencyNormal, v.Urgency)
	}
	if !v.Deadline.Equal(t0.Add(72 * time.Hour)) {
		t.Fatalf("deadline: got=%s", v.Deadline)
	}
}

func TestComputeOverdueClampsProgress(t *testing.T) {
	v := Compute(t0, 72, t0.Add(75*time.Hour))
	if !approx(v.HoursRemaining, -3) {
		t.Fatalf("hours remaining: want=-3 got=%v", v.HoursRemaining)
	}
	if v.Urgency != UrgencyOverdue {
		t.Fatalf("urgency: want=%s got=%s", UrgencyOverdue, v.Urgency)
	}
	if !approx(v.ProgressPercent, 100) {
		t.Fatalf("progress: want=100 got=%v", v.ProgressPercent)
	}
}

func TestComputeBeforeReceiptClampsToZero(t *testing.T) {
	v := Compute(t0, 24, t0.Add(-2*time.Hour))
	if !approx(v.ProgressPercent, 0) {
		t.Fatalf("progress: want=0 got=%v", v.ProgressPercent)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		hours float64
		want  Urgency
	}{
		{-0.01, UrgencyOverdue},
		{0, UrgencyCritical},
		{4, UrgencyCritical},
		{4.01, UrgencyUrgent},
		{24, UrgencyUrgent},
		{24.5, UrgencyWarning},
		{48, UrgencyWarning},
		{48.01, UrgencyNormal},
	}
	for _, tc := range cases {
		if got := Classify(tc.hours); got != tc.want {
			t.Fatalf("Classify(%v): want=%s got=%s", tc.hours, tc.want, got)
		}
	}
}

func TestComputeStrictlyDecreasingInNow(t *testing.T) {
	for _, budget := range []float64{1, 24, 72, 200} {
		prev := math.Inf(1)
		for step := -10; step <= 300; step++ {
			now := t0.Add(time.Duration(step) * 37 * time.Minute)
			v := Compute(t0, budget, now)
			if !(v.HoursRemaining < prev) {
				t.Fatalf("budget=%v step=%d: hours remaining not strictly decreasing (%v >= %v)", budget, step, v.HoursRemaining, prev)
			}
			if v.ProgressPercent < 0 || v.ProgressPercent > 100 {
				t.Fatalf("budget=%v step=%d: progress out of range %v", budget, step, v.ProgressPercent)
			}
			prev = v.HoursRemaining
		}
	}
}

func TestComputeDefaultsNonPositiveBudget(t *testing.T) {
	v := Compute(t0, 0, t0)
	if !approx(v.HoursRemaining, 72) {
		t.Fatalf("hours remaining: want=72 got=%v", v.HoursRemaining)
	}
}
