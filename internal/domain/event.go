package domain

import "time"

// Event represents one concrete calendar occurrence. Recurring events are
// stored as one row per occurrence; rows belonging to the same series share
// a SeriesID and carry identical RecurrenceJSON and RecurUntil values.
//
// SeriesID, RecurrenceJSON and RecurUntil are either all set or all empty:
// a standalone event is never partially tagged as recurring.
type Event struct {
	ID             int64
	Title          string
	Description    string
	GroupID        *int64 // Optional link to a working group
	StartTime      time.Time
	EndTime        time.Time
	Location       string // URL or free-text location
	LocationLabel  string // Optional human-readable label for Location
	DiscordEventID string // Remote scheduled event ID, set on at most one row per series
	SeriesID       string // UUID shared by all occurrences of one series
	RecurrenceJSON string // Serialized canonical rule snapshot
	RecurUntil     *time.Time
	CreatedAt      time.Time
}

// IsRecurring reports whether the event belongs to a series.
func (e *Event) IsRecurring() bool {
	return e.SeriesID != ""
}

// Duration returns the event length.
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// FormatTimeRange returns formatted start/end time for display.
func (e *Event) FormatTimeRange() string {
	if e.EndTime.IsZero() {
		return e.StartTime.Format("15:04")
	}
	return e.StartTime.Format("15:04") + "-" + e.EndTime.Format("15:04")
}

// IsUpcoming reports whether the event starts after the given instant.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.StartTime.After(now)
}
