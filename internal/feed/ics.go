package feed

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"
	"github.com/ryanbeasley/odsa-app-sub000/internal/recur"
)

// EventSource is the read-only slice of storage the feed needs.
type EventSource interface {
	ListEvents(from, to time.Time) ([]*domain.Event, error)
}

// Generator renders the chapter calendar as an iCalendar feed. Recurring
// series are collapsed back into a single VEVENT carrying an RRULE so
// subscribing clients do their own expansion; standalone events become plain
// VEVENTs.
type Generator struct {
	source EventSource
	host   string // UID domain part
	now    func() time.Time
}

// NewGenerator creates a feed generator. host names the UID domain for
// events without a remote identifier.
func NewGenerator(source EventSource, host string) *Generator {
	if host == "" {
		host = "calendar.local"
	}
	return &Generator{source: source, host: host, now: time.Now}
}

// Generate renders events in [from, to] as an iCalendar document.
func (g *Generator) Generate(from, to time.Time) ([]byte, error) {
	events, err := g.source.ListEvents(from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Chapter Calendar//EN")

	seen := make(map[string]bool)
	for _, e := range events {
		if e.SeriesID != "" {
			if seen[e.SeriesID] {
				continue
			}
			seen[e.SeriesID] = true
		}

		vevent, err := g.buildVEvent(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", e.ID, err)
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// buildVEvent renders one event row. ListEvents returns rows ordered by
// start time, so the first row seen for a series is its anchor and carries
// the RRULE for the whole series.
func (g *Generator) buildVEvent(e *domain.Event) (*ical.Event, error) {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, g.eventUID(e))
	vevent.Props.SetText(ical.PropSummary, e.Title)
	if e.Description != "" {
		vevent.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.LocationLabel != "" {
		vevent.Props.SetText(ical.PropLocation, e.LocationLabel)
	} else if e.Location != "" {
		vevent.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Location != "" {
		vevent.Props.SetText(ical.PropURL, e.Location)
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, g.now().UTC())

	if e.IsRecurring() {
		rule, err := recur.Unmarshal(e.RecurrenceJSON)
		if err != nil {
			return nil, fmt.Errorf("decode rule snapshot: %w", err)
		}
		rr, err := rruleString(rule, e.RecurUntil)
		if err != nil {
			return nil, err
		}
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.SetValueType(ical.ValueRecurrence)
		prop.Value = rr
		vevent.Props.Set(prop)
	}

	return vevent, nil
}

func (g *Generator) eventUID(e *domain.Event) string {
	if e.DiscordEventID != "" {
		return e.DiscordEventID + "@" + g.host
	}
	if e.SeriesID != "" {
		return e.SeriesID + "@" + g.host
	}
	return fmt.Sprintf("%d@%s", e.ID, g.host)
}

// rruleString renders a canonical rule as an RFC 5545 RRULE property value.
func rruleString(rule *recur.Rule, until *time.Time) (string, error) {
	opt := rrule.ROption{Interval: rule.Interval}
	if until != nil {
		opt.Until = until.UTC()
	}

	switch rule.Frequency {
	case recur.FreqDaily:
		opt.Freq = rrule.DAILY
		for _, w := range rule.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekday(w))
		}
	case recur.FreqWeekly:
		opt.Freq = rrule.WEEKLY
		for _, w := range rule.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekday(w))
		}
	case recur.FreqMonthly:
		opt.Freq = rrule.MONTHLY
		switch {
		case rule.MonthlyNth != nil:
			wd := rruleWeekday(rule.MonthlyNth.Weekday)
			opt.Byweekday = []rrule.Weekday{wd.Nth(rule.MonthlyNth.N)}
		case rule.MonthlyDay != nil:
			opt.Bymonthday = []int{*rule.MonthlyDay}
		}
	default:
		return "", fmt.Errorf("unsupported frequency %q", rule.Frequency)
	}

	return opt.RRuleString(), nil
}

func rruleWeekday(w time.Weekday) rrule.Weekday {
	return [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}[int(w)]
}
