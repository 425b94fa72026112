// Package sla turns a case's received time and SLA budget into a live
// deadline view. Everything here is pure; callers recompute on every tick.
package sla

import (
	"time"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

type Urgency string

const (
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyWarning  Urgency = "WARNING"
	UrgencyUrgent   Urgency = "URGENT"
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyOverdue  Urgency = "OVERDUE"
)

// Upper bounds (inclusive, in hours remaining) for each urgency band.
const (
	CriticalHours = 4
	UrgentHours   = 24
	WarningHours  = 48
)

type View struct {
	Deadline        time.Time `json:"deadline"`
	HoursRemaining  float64   `json:"hours_remaining"`
	ProgressPercent float64   `json:"progress_percent"`
	Urgency         Urgency   `json:"urgency"`
}

// Compute evaluates the SLA for a case received at receivedAt with a budget of
// slaHours, as seen at now. A non-positive budget falls back to the default.
func Compute(receivedAt time.Time, slaHours float64, now time.Time) View {
	if slaHours <= 0 {
		slaHours = review.DefaultSLAHours
	}
	deadline := receivedAt.Add(time.Duration(slaHours * float64(time.Hour)))
	remaining := deadline.Sub(now).Hours()
	return View{
		Deadline:        deadline,
		HoursRemaining:  remaining,
		ProgressPercent: clamp((slaHours-remaining)/slaHours*100, 0, 100),
		Urgency:         Classify(remaining),
	}
}

// Classify maps hours remaining to an urgency band; the first matching rule wins.
func Classify(hoursRemaining float64) Urgency {
	switch {
	case hoursRemaining < 0:
		return UrgencyOverdue
	case hoursRemaining <= CriticalHours:
		return UrgencyCritical
	case hoursRemaining <= UrgentHours:
		return UrgencyUrgent
	case hoursRemaining <= WarningHours:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// ForCase is Compute applied to a case record.
func ForCase(c *review.Case, now time.Time) View {
	if c == nil {
		return View{}
	}
	return Compute(c.ReceivedAt, c.SLAHours, now)
}

// Urgencies lists the bands from least to most pressing.
func Urgencies() []Urgency {
	return []Urgency{UrgencyNormal, UrgencyWarning, UrgencyUrgent, UrgencyCritical, UrgencyOverdue}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
