package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"
	"github.com/ryanbeasley/odsa-app-sub000/internal/recur"
)

// EventStore is the persistence collaborator the engine depends on. The
// engine never issues raw queries itself; *storage.Storage satisfies this.
type EventStore interface {
	CreateEvent(e *domain.Event) error
	CreateEventsBatch(events []*domain.Event) error
	ReplaceSeries(oldSeriesID string, oldEventID int64, events []*domain.Event) error
	UpdateEvent(e *domain.Event) error
	DeleteEventByID(id int64) error
	DeleteEventsBySeries(seriesID string) error
	GetEventByDiscordID(discordID string) (*domain.Event, error)
	GetWorkingGroupByName(name string) (*domain.WorkingGroup, error)
	GetWorkingGroupByID(id int64) (*domain.WorkingGroup, error)
}

// SeriesService owns the series invariant: the persisted rows sharing a
// series identity are always the exact expansion of a single current rule.
// Any change to a rule or its anchor event regenerates the whole series;
// members are never edited individually.
type SeriesService struct {
	store EventStore
}

// NewSeriesService creates a new series lifecycle manager.
func NewSeriesService(store EventStore) *SeriesService {
	return &SeriesService{store: store}
}

// CreateSeries expands the rule from the base event, assigns one fresh
// series identity to every occurrence, and persists them as a single batch
// tagged with the same rule snapshot and end bound.
func (s *SeriesService) CreateSeries(base *domain.Event, rule *recur.Rule, until time.Time) ([]*domain.Event, error) {
	events, err := buildSeries(base, rule, until)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateEventsBatch(events); err != nil {
		return nil, fmt.Errorf("persist series: %w", err)
	}
	return events, nil
}

// RegenerateSeries deletes every existing member (by series identity if the
// base already belongs to one, else the single prior row) and recreates the
// series from the current rule. Delete-then-recreate guarantees the
// persisted set is exactly the current expansion; per-occurrence state on
// the deleted rows is discarded.
//
// A nil rule is a non-recurring edit: prior series membership is cleared
// and a single standalone row is persisted.
func (s *SeriesService) RegenerateSeries(base *domain.Event, rule *recur.Rule, until time.Time) ([]*domain.Event, error) {
	var events []*domain.Event

	if rule == nil {
		row := *base
		row.ID = 0
		row.SeriesID = ""
		row.RecurrenceJSON = ""
		row.RecurUntil = nil
		events = []*domain.Event{&row}
	} else {
		var err error
		events, err = buildSeries(base, rule, until)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.ReplaceSeries(base.SeriesID, base.ID, events); err != nil {
		return nil, fmt.Errorf("replace series: %w", err)
	}
	return events, nil
}

// DeleteSeries removes every member of a series.
func (s *SeriesService) DeleteSeries(seriesID string) error {
	return s.store.DeleteEventsBySeries(seriesID)
}

// buildSeries expands the rule and materializes one event row per
// occurrence. Every row carries the same series identity, rule snapshot and
// end bound; only the chronologically-first occurrence keeps the remote
// link so a later sync pass finds the series through that one anchor.
func buildSeries(base *domain.Event, rule *recur.Rule, until time.Time) ([]*domain.Event, error) {
	snapshot, err := rule.Marshal()
	if err != nil {
		return nil, err
	}

	occs := recur.Expand(base.StartTime, base.EndTime, rule, until)
	seriesID := uuid.NewString()
	boundCopy := until.UTC()

	events := make([]*domain.Event, 0, len(occs))
	for i, occ := range occs {
		row := *base
		row.ID = 0
		row.StartTime = occ.Start
		row.EndTime = occ.End
		row.SeriesID = seriesID
		row.RecurrenceJSON = snapshot
		row.RecurUntil = &boundCopy
		if i > 0 {
			row.DiscordEventID = ""
		}
		events = append(events, &row)
	}
	return events, nil
}
