package recur

import (
	"fmt"
	"time"
)

// Request is the loosely-typed recurrence description supplied by callers
// (API clients, stored drafts). Normalize converts it into a Rule.
type Request struct {
	Frequency  string         `json:"frequency"`
	Interval   int            `json:"interval,omitempty"`
	Weekdays   []time.Weekday `json:"weekdays,omitempty"`
	MonthlyNth *NthWeekday    `json:"monthly_nth,omitempty"`
	MonthlyDay *int           `json:"monthly_day,omitempty"`
}

// Normalize validates a Request against the supported recurrence subset and
// produces the canonical Rule. It is a pure function; anchorStart becomes
// part of the rule so later expansion is self-contained.
//
// Frequency-specific behavior:
//   - daily: the weekday filter is copied as-is; absence means unfiltered
//     daily stepping.
//   - weekly: the first supplied weekday wins; with none supplied, the
//     anchor's own weekday is used. The result is always a single weekday.
//   - monthly: a supplied nth-weekday pattern is preferred, then a supplied
//     fixed day-of-month. With neither supplied, the anchor's day-of-month
//     is used. Silently defaulting instead of erroring on the ambiguous
//     "neither" case is deliberate.
func Normalize(req Request, anchorStart time.Time) (*Rule, error) {
	interval := req.Interval
	if interval < 1 {
		interval = 1
	}

	rule := &Rule{
		Interval: interval,
		Anchor:   anchorStart.UTC(),
	}

	switch Frequency(req.Frequency) {
	case FreqDaily:
		rule.Frequency = FreqDaily
		rule.Weekdays = append([]time.Weekday(nil), req.Weekdays...)

	case FreqWeekly:
		rule.Frequency = FreqWeekly
		day := anchorStart.UTC().Weekday()
		if len(req.Weekdays) > 0 {
			day = req.Weekdays[0]
		}
		rule.Weekdays = []time.Weekday{day}

	case FreqMonthly:
		rule.Frequency = FreqMonthly
		switch {
		case req.MonthlyNth != nil:
			nth := *req.MonthlyNth
			rule.MonthlyNth = &nth
		case req.MonthlyDay != nil:
			day := *req.MonthlyDay
			rule.MonthlyDay = &day
		default:
			day := anchorStart.UTC().Day()
			rule.MonthlyDay = &day
		}

	default:
		return nil, fmt.Errorf("unsupported recurrence frequency %q", req.Frequency)
	}

	return rule, nil
}
