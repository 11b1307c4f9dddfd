// Package scoring computes the priority ranking score for work items.
//
// The score is a pure function of (impact, urgency, due date, now, weights).
// It is never cached across a time boundary: the sync layer recomputes it on
// every snapshot and on every weight change, and nothing in the system
// treats a stored score as truth.
package scoring

import (
	"math"
	"time"

	"workboard/internal/domain"
)

// maxDeadlineContribution is the deadline term for an item due today or
// overdue; the contribution decays hyperbolically as the deadline recedes
// and never drops below 1.
const maxDeadlineContribution = 10.0

// Score ranks a work item. Higher is more urgent.
//
//	score = impact*w.Impact + urgency*w.Urgency + deadline*w.Deadline
//
// where impact/urgency are the level ordinals (Low=1..High=3) and deadline
// is max(1, 10/daysRemaining) with daysRemaining clamped to at least 1. A
// zero due date means "far future" and takes the minimal contribution, so a
// malformed date can never rank an item to the top.
func Score(impact, urgency domain.Level, due, now time.Time, w domain.Weights) float64 {
	return float64(impact.Ordinal())*w.Impact +
		float64(urgency.Ordinal())*w.Urgency +
		deadlineContribution(due, now)*w.Deadline
}

func deadlineContribution(due, now time.Time) float64 {
	if due.IsZero() {
		return 1
	}
	days := math.Ceil(due.Sub(now).Hours() / 24)
	if days < 1 {
		days = 1
	}
	contribution := maxDeadlineContribution / days
	if contribution < 1 {
		return 1
	}
	return contribution
}

// Rescore returns items with PriorityScore recomputed against now and w.
// The input slice is not mutated; mirrors hand out copies only.
func Rescore(items []domain.WorkItem, now time.Time, w domain.Weights) []domain.WorkItem {
	out := make([]domain.WorkItem, len(items))
	for i, item := range items {
		item.PriorityScore = Score(item.Impact, item.Urgency, item.DueDate, now, w)
		out[i] = item
	}
	return out
}
