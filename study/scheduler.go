package study

import "time"

// MaxIntervalDays caps every computed review interval.
const MaxIntervalDays = 30

// Schedule is the result of reviewing a card once.
type Schedule struct {
	IntervalDays int  `json:"interval_days"`
	Learned      bool `json:"learned"`
}

// ComputeNextReview returns the next interval and learned flag for a card.
// reviewCount is the count after the current review has been added.
//
// The constants are a fixed table, not SM-2: there is no ease factor and
// no per-card memory model.
func ComputeNextReview(reviewCount int, outcome Outcome) Schedule {
	var s Schedule
	switch outcome {
	case Hard:
		s.IntervalDays = max(1, reviewCount*6/5)
		s.Learned = reviewCount >= 3
	case Good:
		s.IntervalDays = max(1, reviewCount*2)
		s.Learned = reviewCount >= 2
	case Easy:
		s.IntervalDays = max(3, reviewCount*3)
		s.Learned = true
	default:
		s.IntervalDays = 1
		s.Learned = false
	}
	if s.IntervalDays > MaxIntervalDays {
		s.IntervalDays = MaxIntervalDays
	}
	return s
}

// ApplyOutcome records a review with the given outcome at now. The input
// card is not mutated.
func ApplyOutcome(card Card, outcome Outcome, now time.Time) (Card, Schedule) {
	c := card.clone()
	c.ReviewCount++
	s := ComputeNextReview(c.ReviewCount, outcome)
	return stamp(c, s, now), s
}

// ApplyResult records a boolean review. An incorrect answer behaves like
// Again. A correct one uses the Good interval and marks the card learned
// once it has been reviewed requiredReviews times.
func ApplyResult(card Card, correct bool, requiredReviews int, now time.Time) (Card, Schedule) {
	c := card.clone()
	c.ReviewCount++
	if !correct {
		s := ComputeNextReview(c.ReviewCount, Again)
		return stamp(c, s, now), s
	}
	s := ComputeNextReview(c.ReviewCount, Good)
	if requiredReviews < 1 {
		requiredReviews = 1
	}
	s.Learned = c.ReviewCount >= requiredReviews
	return stamp(c, s, now), s
}

func stamp(c Card, s Schedule, now time.Time) Card {
	reviewed := now
	next := now.AddDate(0, 0, s.IntervalDays)
	c.LastReviewed = &reviewed
	c.NextReview = &next
	c.Learned = s.Learned
	return c
}
