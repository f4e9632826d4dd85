package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"
	"github.com/ryanbeasley/odsa-app-sub000/internal/recur"
)

// fakeStore is an in-memory EventStore for service tests.
type fakeStore struct {
	events map[int64]*domain.Event
	groups map[string]*domain.WorkingGroup
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: make(map[int64]*domain.Event),
		groups: make(map[string]*domain.WorkingGroup),
	}
}

func (f *fakeStore) addGroup(name string) *domain.WorkingGroup {
	f.nextID++
	g := &domain.WorkingGroup{ID: f.nextID, Name: name}
	f.groups[name] = g
	return g
}

func (f *fakeStore) CreateEvent(e *domain.Event) error {
	f.nextID++
	e.ID = f.nextID
	copy := *e
	f.events[e.ID] = &copy
	return nil
}

func (f *fakeStore) CreateEventsBatch(events []*domain.Event) error {
	for _, e := range events {
		if err := f.CreateEvent(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ReplaceSeries(oldSeriesID string, oldEventID int64, events []*domain.Event) error {
	if oldSeriesID != "" {
		for id, e := range f.events {
			if e.SeriesID == oldSeriesID {
				delete(f.events, id)
			}
		}
	} else if oldEventID != 0 {
		delete(f.events, oldEventID)
	}
	return f.CreateEventsBatch(events)
}

func (f *fakeStore) UpdateEvent(e *domain.Event) error {
	if _, ok := f.events[e.ID]; !ok {
		return fmt.Errorf("event %d not found", e.ID)
	}
	copy := *e
	f.events[e.ID] = &copy
	return nil
}

func (f *fakeStore) DeleteEventByID(id int64) error {
	delete(f.events, id)
	return nil
}

func (f *fakeStore) DeleteEventsBySeries(seriesID string) error {
	for id, e := range f.events {
		if e.SeriesID == seriesID {
			delete(f.events, id)
		}
	}
	return nil
}

func (f *fakeStore) GetEventByDiscordID(discordID string) (*domain.Event, error) {
	for _, e := range f.events {
		if e.DiscordEventID == discordID {
			copy := *e
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetWorkingGroupByName(name string) (*domain.WorkingGroup, error) {
	return f.groups[name], nil
}

func (f *fakeStore) GetWorkingGroupByID(id int64) (*domain.WorkingGroup, error) {
	for _, g := range f.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) bySeries(seriesID string) []*domain.Event {
	var out []*domain.Event
	for _, e := range f.events {
		if e.SeriesID == seriesID {
			out = append(out, e)
		}
	}
	return out
}

func weeklyRule(anchor time.Time) *recur.Rule {
	return &recur.Rule{
		Frequency: recur.FreqWeekly,
		Interval:  1,
		Anchor:    anchor,
		Weekdays:  []time.Weekday{anchor.Weekday()},
	}
}

func TestCreateSeries(t *testing.T) {
	store := newFakeStore()
	svc := NewSeriesService(store)

	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	base := &domain.Event{
		Title:          "Weekly check-in",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		DiscordEventID: "remote-1",
	}
	until := start.AddDate(0, 0, 28)

	events, err := svc.CreateSeries(base, weeklyRule(start), until)
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(events))
	}

	seriesID := events[0].SeriesID
	if seriesID == "" {
		t.Fatal("series identity not assigned")
	}
	for i, e := range events {
		if e.SeriesID != seriesID {
			t.Errorf("occurrence %d has series %q, want %q", i, e.SeriesID, seriesID)
		}
		if e.RecurrenceJSON != events[0].RecurrenceJSON {
			t.Errorf("occurrence %d has a different rule snapshot", i)
		}
		if e.RecurUntil == nil || !e.RecurUntil.Equal(until) {
			t.Errorf("occurrence %d bound = %v, want %v", i, e.RecurUntil, until)
		}
		if i == 0 && e.DiscordEventID != "remote-1" {
			t.Errorf("first occurrence lost the remote link")
		}
		if i > 0 && e.DiscordEventID != "" {
			t.Errorf("occurrence %d carries the remote link", i)
		}
	}

	if got := len(store.bySeries(seriesID)); got != 5 {
		t.Errorf("persisted %d rows, want 5", got)
	}
}

func TestRegenerateSeriesIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewSeriesService(store)

	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	base := &domain.Event{Title: "Weekly check-in", StartTime: start, EndTime: start.Add(time.Hour)}
	until := start.AddDate(0, 2, 0)

	first, err := svc.CreateSeries(base, weeklyRule(start), until)
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	// Regenerate from the persisted anchor with the same rule: identical
	// count and instants, no duplicates left behind.
	anchor := *first[0]
	second, err := svc.RegenerateSeries(&anchor, weeklyRule(start), until)
	if err != nil {
		t.Fatalf("RegenerateSeries: %v", err)
	}

	if len(second) != len(first) {
		t.Fatalf("regeneration changed count: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if !second[i].StartTime.Equal(first[i].StartTime) {
			t.Errorf("occurrence %d drifted: %v -> %v", i, first[i].StartTime, second[i].StartTime)
		}
	}

	if len(store.events) != len(second) {
		t.Errorf("store holds %d rows, want %d (old series not removed?)", len(store.events), len(second))
	}
}

func TestRegenerateSeriesNonRecurring(t *testing.T) {
	store := newFakeStore()
	svc := NewSeriesService(store)

	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	base := &domain.Event{Title: "Weekly check-in", StartTime: start, EndTime: start.Add(time.Hour)}

	created, err := svc.CreateSeries(base, weeklyRule(start), start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	// Editing the anchor to non-recurring clears series membership and
	// leaves a single standalone row.
	anchor := *created[0]
	events, err := svc.RegenerateSeries(&anchor, nil, time.Time{})
	if err != nil {
		t.Fatalf("RegenerateSeries: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 row, got %d", len(events))
	}
	e := events[0]
	if e.SeriesID != "" || e.RecurrenceJSON != "" || e.RecurUntil != nil {
		t.Errorf("series membership not cleared: %+v", e)
	}
	if len(store.events) != 1 {
		t.Errorf("store holds %d rows, want 1", len(store.events))
	}
}

func TestDeleteSeries(t *testing.T) {
	store := newFakeStore()
	svc := NewSeriesService(store)

	start := time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)
	created, err := svc.CreateSeries(
		&domain.Event{Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour)},
		weeklyRule(start), start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	if err := svc.DeleteSeries(created[0].SeriesID); err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}
	if len(store.events) != 0 {
		t.Errorf("store holds %d rows after series delete", len(store.events))
	}
}
