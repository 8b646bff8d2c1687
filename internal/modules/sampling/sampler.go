// Package sampling chooses the dates a valuation series is evaluated on.
package sampling

import (
	"sort"
	"time"

	"github.com/aristath/folio/internal/domain"
)

const (
	// Spans longer than this many days are sampled monthly
	MonthlyThresholdDays = 1095
	// Spans longer than this many days (and not monthly) are sampled weekly
	WeeklyThresholdDays = 365
)

// Schedule is an ordered, duplicate-free set of evaluation dates and the
// granularity that produced them.
type Schedule struct {
	Granularity domain.Granularity
	Dates       []time.Time
}

// GranularityFor returns the sampling granularity for the span between start and end.
func GranularityFor(start, end time.Time) domain.Granularity {
	days := domain.Day(end).Sub(domain.Day(start)).Hours() / 24
	switch {
	case days > MonthlyThresholdDays:
		return domain.GranularityMonthly
	case days > WeeklyThresholdDays:
		return domain.GranularityWeekly
	default:
		return domain.GranularityDaily
	}
}

// SampleDates returns the evaluation dates for [start, end].
func SampleDates(start, end time.Time, forced []time.Time) []time.Time {
	return Sample(start, end, forced).Dates
}

// Sample builds the schedule for [start, end]. start, end and every forced date are
// always present. A zero bound or end before start yields an empty schedule.
func Sample(start, end time.Time, forced []time.Time) Schedule {
	start, end = domain.Day(start), domain.Day(end)
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return Schedule{Granularity: domain.GranularityDaily}
	}

	granularity := GranularityFor(start, end)

	var dates []time.Time
	switch granularity {
	case domain.GranularityMonthly:
		dates = firstBusinessDays(start, end)
	case domain.GranularityWeekly:
		dates = mondays(start, end)
	default:
		dates = weekdays(start, end)
	}

	dates = append(dates, start, end)
	for _, d := range forced {
		if !d.IsZero() {
			dates = append(dates, domain.Day(d))
		}
	}

	return Schedule{Granularity: granularity, Dates: dedupeSorted(dates)}
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func weekdays(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if isWeekday(d) {
			out = append(out, d)
		}
	}
	return out
}

func mondays(start, end time.Time) []time.Time {
	offset := (int(time.Monday) - int(start.Weekday()) + 7) % 7
	var out []time.Time
	for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out
}

// firstBusinessDays returns the first weekday of every calendar month that falls in range.
func firstBusinessDays(start, end time.Time) []time.Time {
	var out []time.Time
	month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !month.After(end) {
		d := month
		for !isWeekday(d) {
			d = d.AddDate(0, 0, 1)
		}
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
		month = month.AddDate(0, 1, 0)
	}
	return out
}

func dedupeSorted(dates []time.Time) []time.Time {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:0]
	for _, d := range dates {
		if n := len(out); n > 0 && out[n-1].Equal(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
