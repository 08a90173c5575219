package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andrewpaige1/nodebook-study/models"
)

// Kind selects how a reminder repeats.
type Kind string

const (
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindInterval Kind = "interval"
)

var (
	ErrInvalidRecurrence = errors.New("notify: invalid recurrence")
	ErrRecurrenceEnded   = errors.New("notify: recurrence has no future occurrence")
)

// Recurrence describes when a reminder fires. Daily and weekly times are
// wall-clock times in UTC.
type Recurrence struct {
	Kind      Kind
	TimeOfDay string // HH:MM
	Weekday   time.Weekday
	Interval  time.Duration
	Start     time.Time
	End       *time.Time
}

func (r Recurrence) clock() (hour, minute int, err error) {
	h, m, ok := strings.Cut(r.TimeOfDay, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time of day %q", ErrInvalidRecurrence, r.TimeOfDay)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time of day %q", ErrInvalidRecurrence, r.TimeOfDay)
	}
	return hour, minute, nil
}

func (r Recurrence) Validate() error {
	switch r.Kind {
	case KindDaily:
		_, _, err := r.clock()
		return err
	case KindWeekly:
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRecurrence, r.Weekday)
		}
		_, _, err := r.clock()
		return err
	case KindInterval:
		if r.Interval < time.Minute {
			return fmt.Errorf("%w: interval must be at least one minute", ErrInvalidRecurrence)
		}
		if r.Start.IsZero() {
			return fmt.Errorf("%w: interval needs a start time", ErrInvalidRecurrence)
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidRecurrence, r.Kind)
	}
}

// Next returns the first occurrence strictly after after. The boolean is
// false when the recurrence is invalid or the occurrence would fall after
// End.
func (r Recurrence) Next(after time.Time) (time.Time, bool) {
	if r.Validate() != nil {
		return time.Time{}, false
	}
	after = after.UTC()
	if !r.Start.IsZero() && after.Before(r.Start) {
		after = r.Start.UTC().Add(-time.Nanosecond)
	}

	var next time.Time
	switch r.Kind {
	case KindInterval:
		start := r.Start.UTC()
		k := after.Sub(start)/r.Interval + 1
		next = start.Add(k * r.Interval)
	case KindDaily, KindWeekly:
		hour, minute, _ := r.clock()
		next = time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, time.UTC)
		step := 1
		if r.Kind == KindWeekly {
			step = 7
			next = next.AddDate(0, 0, (int(r.Weekday)-int(next.Weekday())+7)%7)
		}
		if !next.After(after) {
			next = next.AddDate(0, 0, step)
		}
	}

	if r.End != nil && next.After(*r.End) {
		return time.Time{}, false
	}
	return next, true
}

// RecurrenceOf reads the recurrence stored on a schedule row.
func RecurrenceOf(s models.ReminderSchedule) Recurrence {
	return Recurrence{
		Kind:      Kind(s.Kind),
		TimeOfDay: s.TimeOfDay,
		Weekday:   time.Weekday(s.Weekday),
		Interval:  time.Duration(s.IntervalMinutes) * time.Minute,
		Start:     s.StartAt,
		End:       s.EndAt,
	}
}
