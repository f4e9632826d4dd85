package recur

import "time"

// Occurrence is one concrete (start, end) instant pair produced by
// expanding a rule.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Expand generates the ordered, finite occurrence sequence for a rule.
//
// The base occurrence (start, end) is the anchor of the series; every
// generated occurrence keeps the same duration. Generation halts the first
// time a candidate start passes the until bound; a candidate exactly equal
// to the bound is still included.
//
// A nil rule (or FreqNone) yields just the base occurrence. For daily rules
// with a weekday filter the cursor still advances through filtered-out days,
// they simply produce no occurrence. For monthly nth-weekday rules the
// occurrence is computed per candidate month; a month lacking the Nth
// weekday contributes nothing, and a computed date before the anchor is
// not emitted.
func Expand(start, end time.Time, rule *Rule, until time.Time) []Occurrence {
	start = start.UTC()
	end = end.UTC()
	until = until.UTC()
	dur := end.Sub(start)

	if rule == nil || rule.Frequency == FreqNone {
		return []Occurrence{{Start: start, End: end}}
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	var out []Occurrence
	emit := func(t time.Time) {
		out = append(out, Occurrence{Start: t, End: t.Add(dur)})
	}

	switch rule.Frequency {
	case FreqDaily:
		emit(start)
		for cur := start.AddDate(0, 0, interval); !cur.After(until); cur = cur.AddDate(0, 0, interval) {
			if len(rule.Weekdays) > 0 && !containsWeekday(rule.Weekdays, cur.Weekday()) {
				continue
			}
			emit(cur)
		}

	case FreqWeekly:
		emit(start)
		target := start.Weekday()
		if len(rule.Weekdays) > 0 {
			target = rule.Weekdays[0]
		}
		cur := start
		if cur.Weekday() == target {
			cur = cur.AddDate(0, 0, 7*interval)
		} else {
			// Align to the configured weekday first, then step by weeks.
			days := (int(target) - int(cur.Weekday()) + 7) % 7
			cur = cur.AddDate(0, 0, days)
		}
		for ; !cur.After(until); cur = cur.AddDate(0, 0, 7*interval) {
			emit(cur)
		}

	case FreqMonthly:
		if rule.MonthlyNth != nil {
			expandMonthlyNth(start, rule.MonthlyNth, interval, until, emit)
		} else {
			expandMonthlyDay(start, rule.MonthlyDay, interval, until, emit)
		}
	}

	return out
}

// expandMonthlyNth emits the Nth occurrence of the configured weekday in
// each candidate month, at the anchor's time of day, starting with the
// anchor's own month.
func expandMonthlyNth(start time.Time, nth *NthWeekday, interval int, until time.Time, emit func(time.Time)) {
	year, month := start.Year(), start.Month()
	for {
		monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if monthStart.After(until) {
			return
		}
		if day, ok := nthWeekdayOfMonth(year, month, nth.N, nth.Weekday); ok {
			cand := time.Date(year, month, day,
				start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), time.UTC)
			if cand.After(until) {
				return
			}
			if !cand.Before(start) {
				emit(cand)
			}
		}
		year, month = stepMonths(year, month, interval)
	}
}

// expandMonthlyDay emits the base occurrence, then steps whole calendar
// months preserving the configured day-of-month. The day is re-applied from
// the rule each step, so an overflow in one month (day 31 stepping into
// February lands in early March via time.Date normalization) does not drift
// later months.
func expandMonthlyDay(start time.Time, monthlyDay *int, interval int, until time.Time, emit func(time.Time)) {
	day := start.Day()
	if monthlyDay != nil {
		day = *monthlyDay
	}

	emit(start)
	year, month := start.Year(), start.Month()
	for {
		year, month = stepMonths(year, month, interval)
		cand := time.Date(year, month, day,
			start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), time.UTC)
		if cand.After(until) {
			return
		}
		emit(cand)
	}
}

// nthWeekdayOfMonth returns the day-of-month of the Nth given weekday in
// the month, or false when the month has no Nth occurrence of it.
func nthWeekdayOfMonth(year int, month time.Month, n int, weekday time.Weekday) (int, bool) {
	if n < 1 {
		return 0, false
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (n-1)*7
	if day > daysInMonth(year, month) {
		return 0, false
	}
	return day, true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// stepMonths advances a (year, month) cursor, normalizing month overflow.
func stepMonths(year int, month time.Month, interval int) (int, time.Month) {
	t := time.Date(year, month+time.Month(interval), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}
