package pets

import (
	"sort"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
)

// StreakSummary is the outcome of ComputeStreak.
type StreakSummary struct {
	Current     int
	Longest     int
	Last        *date.Date
	LoggedToday bool
}

// ComputeStreak derives the logging streak from log timestamps. Days are
// taken in loc. The current run ends today, or yesterday when nothing has
// been logged yet today.
func ComputeStreak(times []time.Time, loc *time.Location, today date.Date) StreakSummary {
	if loc == nil {
		loc = time.UTC
	}
	seen := make(map[string]date.Date, len(times))
	for _, t := range times {
		d := date.In(t, loc)
		seen[d.String()] = d
	}
	if len(seen) == 0 {
		return StreakSummary{}
	}

	days := make([]date.Date, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDays(1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	summary := StreakSummary{Longest: longest}
	last := days[len(days)-1]
	summary.Last = &last
	_, summary.LoggedToday = seen[today.String()]

	anchor := today
	if !summary.LoggedToday {
		anchor = today.AddDays(-1)
	}
	for {
		if _, ok := seen[anchor.String()]; !ok {
			break
		}
		summary.Current++
		anchor = anchor.AddDays(-1)
	}
	return summary
}
