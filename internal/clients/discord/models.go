package discord

// Guild scheduled event entity types.
const (
	EntityTypeStage    = 1
	EntityTypeVoice    = 2
	EntityTypeExternal = 3
)

// Recurrence rule frequencies, as numbered by the API.
const (
	FrequencyYearly  = 0
	FrequencyMonthly = 1
	FrequencyWeekly  = 2
	FrequencyDaily   = 3
)

// ScheduledEvent represents a Discord guild scheduled event.
type ScheduledEvent struct {
	ID                 string          `json:"id"`
	GuildID            string          `json:"guild_id"`
	ChannelID          string          `json:"channel_id,omitempty"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	ScheduledStartTime string          `json:"scheduled_start_time"` // RFC3339
	ScheduledEndTime   string          `json:"scheduled_end_time,omitempty"`
	EntityType         int             `json:"entity_type"`
	EntityMetadata     *EntityMetadata `json:"entity_metadata,omitempty"`
	RecurrenceRule     *RecurrenceRule `json:"recurrence_rule,omitempty"`
	Status             int             `json:"status,omitempty"`
	PrivacyLevel       int             `json:"privacy_level,omitempty"`
	CreatorID          string          `json:"creator_id,omitempty"`
}

// EntityMetadata carries the free-text location for external events.
type EntityMetadata struct {
	Location string `json:"location,omitempty"`
}

// RecurrenceRule is Discord's recurrence shape. It is richer than the
// engine's canonical rule; frequency is a pointer so a rule missing the
// field can be told apart from FrequencyYearly (0).
type RecurrenceRule struct {
	Start      string     `json:"start,omitempty"`
	Frequency  *int       `json:"frequency,omitempty"`
	Interval   int        `json:"interval,omitempty"`
	ByWeekday  []int      `json:"by_weekday,omitempty"`   // 0=Monday .. 6=Sunday
	ByNWeekday []NWeekday `json:"by_n_weekday,omitempty"` // nth weekday of the month
	ByMonth    []int      `json:"by_month,omitempty"`
	ByMonthDay []int      `json:"by_month_day,omitempty"`
	Count      *int       `json:"count,omitempty"`
}

// NWeekday is Discord's "Nth weekday of the month" element.
type NWeekday struct {
	N   int `json:"n"`   // 1..5
	Day int `json:"day"` // 0=Monday .. 6=Sunday
}

// EventRequest is the payload for creating or modifying a scheduled event.
type EventRequest struct {
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	ScheduledStartTime string          `json:"scheduled_start_time"`
	ScheduledEndTime   string          `json:"scheduled_end_time,omitempty"`
	EntityType         int             `json:"entity_type"`
	EntityMetadata     *EntityMetadata `json:"entity_metadata,omitempty"`
	RecurrenceRule     *RecurrenceRule `json:"recurrence_rule,omitempty"`
	PrivacyLevel       int             `json:"privacy_level"`
}
