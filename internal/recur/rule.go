// Package recur implements the recurrence engine: the canonical rule
// representation, normalization of caller-supplied recurrence requests,
// and expansion of rules into concrete occurrences.
//
// All date arithmetic is performed in UTC. The engine supports a
// deliberately restricted subset of recurrence shapes: daily (optional
// weekday filter), weekly (single weekday), and monthly (nth weekday of
// the month or a fixed day of the month), each with interval stepping.
package recur

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frequency identifies the recurrence stepping unit.
type Frequency string

const (
	FreqNone    Frequency = ""
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// NthWeekday describes "the Nth occurrence of weekday W in the month",
// e.g. {N: 1, Weekday: time.Wednesday} is the first Wednesday.
type NthWeekday struct {
	N       int          `json:"n"`
	Weekday time.Weekday `json:"weekday"`
}

// Rule is the canonical, validated recurrence representation. It is
// self-contained: the anchor start instant is part of the rule, so a
// persisted snapshot can be expanded without any other context.
//
// Exactly one pattern qualifier is populated per frequency:
//   - daily: Weekdays (optional filter; empty means every stepped day)
//   - weekly: Weekdays (always a single element)
//   - monthly: MonthlyNth or MonthlyDay, never both
type Rule struct {
	Frequency  Frequency      `json:"frequency"`
	Interval   int            `json:"interval"`
	Anchor     time.Time      `json:"anchor"`
	Weekdays   []time.Weekday `json:"weekdays,omitempty"`
	MonthlyNth *NthWeekday    `json:"monthly_nth,omitempty"`
	MonthlyDay *int           `json:"monthly_day,omitempty"`
}

// Marshal serializes the rule for persistence alongside an event row.
func (r *Rule) Marshal() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal rule: %w", err)
	}
	return string(data), nil
}

// Unmarshal restores a rule from its persisted form. The round trip is
// exact: frequency, interval and qualifiers come back unchanged.
func Unmarshal(s string) (*Rule, error) {
	if s == "" {
		return nil, nil
	}
	var r Rule
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("unmarshal rule: %w", err)
	}
	return &r, nil
}
