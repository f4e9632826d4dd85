package service

import (
	"fmt"
	"time"

	"github.com/ryanbeasley/odsa-app-sub000/internal/clients/discord"
	"github.com/ryanbeasley/odsa-app-sub000/internal/recur"
)

// Translation between the canonical rule and Discord's recurrence shape.
// Discord numbers weekdays 0=Monday..6=Sunday; time.Weekday is 0=Sunday.

func weekdayFromDiscord(d int) time.Weekday {
	return time.Weekday((d + 1) % 7)
}

func weekdayToDiscord(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// supportedRecurrence reports whether a remote rule falls inside the subset
// the engine can faithfully expand. A non-nil error names the reason so the
// caller can log and skip; rules outside the subset are never approximated.
func supportedRecurrence(r *discord.RecurrenceRule) error {
	if r.Frequency == nil {
		return fmt.Errorf("recurrence rule missing frequency")
	}
	if r.Interval > 1 {
		return fmt.Errorf("unsupported recurrence interval %d", r.Interval)
	}

	switch *r.Frequency {
	case discord.FrequencyDaily:
		if len(r.ByMonth) > 0 || len(r.ByMonthDay) > 0 || len(r.ByNWeekday) > 0 {
			return fmt.Errorf("daily rule with month or month-day qualifiers")
		}
	case discord.FrequencyWeekly:
		if len(r.ByWeekday) > 1 {
			return fmt.Errorf("weekly rule with %d weekdays", len(r.ByWeekday))
		}
		if len(r.ByMonth) > 0 || len(r.ByMonthDay) > 0 || len(r.ByNWeekday) > 0 {
			return fmt.Errorf("weekly rule with month or month-day qualifiers")
		}
	case discord.FrequencyMonthly:
		if len(r.ByMonth) > 0 {
			return fmt.Errorf("monthly rule with month-of-year filter")
		}
		if len(r.ByWeekday) > 0 {
			return fmt.Errorf("monthly rule with plain weekday filter")
		}
		hasNth := len(r.ByNWeekday) > 0
		hasDay := len(r.ByMonthDay) > 0
		if hasNth == hasDay {
			return fmt.Errorf("monthly rule must have exactly one of nth-weekday or month-day")
		}
	default:
		return fmt.Errorf("unsupported recurrence frequency %d", *r.Frequency)
	}

	return nil
}

// toCanonicalRule converts a supported remote rule to the canonical
// representation. Callers must have checked supportedRecurrence first.
func toCanonicalRule(r *discord.RecurrenceRule, anchor time.Time) *recur.Rule {
	rule := &recur.Rule{
		Interval: 1,
		Anchor:   anchor.UTC(),
	}

	switch *r.Frequency {
	case discord.FrequencyDaily:
		rule.Frequency = recur.FreqDaily
		for _, d := range r.ByWeekday {
			rule.Weekdays = append(rule.Weekdays, weekdayFromDiscord(d))
		}
	case discord.FrequencyWeekly:
		rule.Frequency = recur.FreqWeekly
		day := anchor.UTC().Weekday()
		if len(r.ByWeekday) == 1 {
			day = weekdayFromDiscord(r.ByWeekday[0])
		}
		rule.Weekdays = []time.Weekday{day}
	case discord.FrequencyMonthly:
		rule.Frequency = recur.FreqMonthly
		if len(r.ByNWeekday) > 0 {
			rule.MonthlyNth = &recur.NthWeekday{
				N:       r.ByNWeekday[0].N,
				Weekday: weekdayFromDiscord(r.ByNWeekday[0].Day),
			}
		} else {
			day := r.ByMonthDay[0]
			rule.MonthlyDay = &day
		}
	}

	return rule
}

// toRemoteRule converts a canonical rule to Discord's shape. A nil rule
// produces no remote recurrence block at all (a plain one-off event).
func toRemoteRule(rule *recur.Rule) *discord.RecurrenceRule {
	if rule == nil || rule.Frequency == recur.FreqNone {
		return nil
	}

	remote := &discord.RecurrenceRule{
		Start:    rule.Anchor.UTC().Format(time.RFC3339),
		Interval: rule.Interval,
	}

	switch rule.Frequency {
	case recur.FreqDaily:
		freq := discord.FrequencyDaily
		remote.Frequency = &freq
		for _, w := range rule.Weekdays {
			remote.ByWeekday = append(remote.ByWeekday, weekdayToDiscord(w))
		}
	case recur.FreqWeekly:
		freq := discord.FrequencyWeekly
		remote.Frequency = &freq
		for _, w := range rule.Weekdays {
			remote.ByWeekday = append(remote.ByWeekday, weekdayToDiscord(w))
		}
	case recur.FreqMonthly:
		freq := discord.FrequencyMonthly
		remote.Frequency = &freq
		if rule.MonthlyNth != nil {
			remote.ByNWeekday = []discord.NWeekday{{
				N:   rule.MonthlyNth.N,
				Day: weekdayToDiscord(rule.MonthlyNth.Weekday),
			}}
		} else if rule.MonthlyDay != nil {
			remote.ByMonthDay = []int{*rule.MonthlyDay}
		}
	}

	return remote
}
