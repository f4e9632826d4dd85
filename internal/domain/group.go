package domain

import "time"

// WorkingGroup is an organizational sub-group that events can belong to.
// Discord has no native concept of this grouping, so the mapping travels
// as a tag embedded in the scheduled event description.
type WorkingGroup struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ContactInfo string    `json:"contact_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Announcement is a short broadcast message shown to members.
type Announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	GroupID   *int64    `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportLink is a labeled external resource link.
type SupportLink struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
