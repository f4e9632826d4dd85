package service

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/ryanbeasley/odsa-app-sub000/internal/clients/discord"
	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"
	"github.com/ryanbeasley/odsa-app-sub000/internal/recur"
)

const (
	// syncHorizonMonths bounds how far ahead inbound series are expanded.
	syncHorizonMonths = 3

	// defaultEventDuration applies when a remote event carries no end time.
	defaultEventDuration = time.Hour

	mapSearchBaseURL = "https://www.google.com/maps/search/?api=1&query="
)

// ProviderClient is the slice of the Discord client the sync adapter uses.
type ProviderClient interface {
	IsConfigured() bool
	GuildID() string
	ListScheduledEvents() ([]discord.ScheduledEvent, error)
	CreateScheduledEvent(req *discord.EventRequest) (*discord.ScheduledEvent, error)
	ModifyScheduledEvent(eventID string, req *discord.EventRequest) (*discord.ScheduledEvent, error)
	DeleteScheduledEvent(eventID string) error
}

// SyncService orchestrates inbound and outbound synchronization with
// Discord guild scheduled events.
type SyncService struct {
	store  EventStore
	client ProviderClient
	series *SeriesService
	now    func() time.Time // injectable for tests
}

// NewSyncService creates a new sync adapter.
func NewSyncService(store EventStore, client ProviderClient, series *SeriesService) *SyncService {
	return &SyncService{
		store:  store,
		client: client,
		series: series,
		now:    time.Now,
	}
}

// SyncResult contains inbound sync pass totals.
type SyncResult struct {
	Synced  int `json:"synced"`  // rows created or updated, counting every occurrence of a regenerated series
	Skipped int `json:"skipped"` // remote items rejected per-item (bad start, unsupported rule, unknown group)
}

// SyncFromDiscord runs one inbound sync pass: it pulls the guild's
// scheduled events, resolves their series, and upserts or regenerates local
// rows. Transport failures abort the whole pass; per-item problems are
// counted as skips and the pass continues.
func (s *SyncService) SyncFromDiscord() (*SyncResult, error) {
	if !s.client.IsConfigured() {
		return nil, fmt.Errorf("discord credentials not configured")
	}

	remote, err := s.client.ListScheduledEvents()
	if err != nil {
		return nil, fmt.Errorf("list scheduled events: %w", err)
	}

	result := &SyncResult{}
	until := s.now().UTC().AddDate(0, syncHorizonMonths, 0)

	for i := range remote {
		re := &remote[i]
		n, err := s.syncRemoteEvent(re, until)
		if err != nil {
			log.Printf("sync: skipping remote event %s (%q): %v", re.ID, re.Name, err)
			result.Skipped++
			continue
		}
		result.Synced += n
	}

	return result, nil
}

// syncRemoteEvent processes one remote item and returns the number of local
// rows persisted for it.
func (s *SyncService) syncRemoteEvent(re *discord.ScheduledEvent, until time.Time) (int, error) {
	if re.ScheduledStartTime == "" {
		return 0, fmt.Errorf("missing start time")
	}
	start, err := time.Parse(time.RFC3339, re.ScheduledStartTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", re.ScheduledStartTime, err)
	}
	start = start.UTC()

	end := start.Add(defaultEventDuration)
	if re.ScheduledEndTime != "" {
		parsed, err := time.Parse(time.RFC3339, re.ScheduledEndTime)
		if err != nil {
			return 0, fmt.Errorf("invalid end time %q: %w", re.ScheduledEndTime, err)
		}
		end = parsed.UTC()
	}

	groupName, description := extractGroupTag(re.Description)
	var groupID *int64
	if groupName != "" {
		group, err := s.store.GetWorkingGroupByName(groupName)
		if err != nil {
			return 0, fmt.Errorf("resolve working group: %w", err)
		}
		if group == nil {
			return 0, fmt.Errorf("unknown working group %q", groupName)
		}
		groupID = &group.ID
	}

	location, label := s.deriveLocation(re)

	base := &domain.Event{
		Title:          re.Name,
		Description:    description,
		GroupID:        groupID,
		StartTime:      start,
		EndTime:        end,
		Location:       location,
		LocationLabel:  label,
		DiscordEventID: re.ID,
	}

	if re.RecurrenceRule == nil {
		return s.upsertStandalone(base)
	}

	if err := supportedRecurrence(re.RecurrenceRule); err != nil {
		return 0, err
	}
	rule := toCanonicalRule(re.RecurrenceRule, start)

	// Any existing local link is replaced wholesale: the whole series if
	// the link belongs to one, else the lone linked row.
	existing, err := s.store.GetEventByDiscordID(re.ID)
	if err != nil {
		return 0, fmt.Errorf("look up remote link: %w", err)
	}
	if existing != nil {
		base.ID = existing.ID
		base.SeriesID = existing.SeriesID
	}

	events, err := s.series.RegenerateSeries(base, rule, until)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// upsertStandalone performs the single-row idempotent upsert keyed by the
// remote identifier. If the remote item stopped being recurring, the stale
// local series is cleared through regeneration instead.
func (s *SyncService) upsertStandalone(base *domain.Event) (int, error) {
	existing, err := s.store.GetEventByDiscordID(base.DiscordEventID)
	if err != nil {
		return 0, fmt.Errorf("look up remote link: %w", err)
	}

	if existing == nil {
		if err := s.store.CreateEvent(base); err != nil {
			return 0, err
		}
		return 1, nil
	}

	if existing.SeriesID != "" {
		base.ID = existing.ID
		base.SeriesID = existing.SeriesID
		events, err := s.series.RegenerateSeries(base, nil, time.Time{})
		if err != nil {
			return 0, err
		}
		return len(events), nil
	}

	base.ID = existing.ID
	base.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateEvent(base); err != nil {
		return 0, err
	}
	return 1, nil
}

// deriveLocation maps the remote item's location kind onto a local link and
// optional display label:
//   - external with an http(s) location: the URL itself, no label
//   - external with free-text location: a map-search link, raw text label
//   - voice/stage: a deep link into Discord with a fixed label
func (s *SyncService) deriveLocation(re *discord.ScheduledEvent) (string, string) {
	switch re.EntityType {
	case discord.EntityTypeExternal:
		loc := ""
		if re.EntityMetadata != nil {
			loc = strings.TrimSpace(re.EntityMetadata.Location)
		}
		if loc == "" {
			return "", ""
		}
		if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
			return loc, ""
		}
		return mapSearchBaseURL + url.QueryEscape(loc), loc
	case discord.EntityTypeVoice:
		return s.channelDeepLink(re), "Voice Channel"
	case discord.EntityTypeStage:
		return s.channelDeepLink(re), "Stage Channel"
	}
	return "", ""
}

func (s *SyncService) channelDeepLink(re *discord.ScheduledEvent) string {
	guildID := re.GuildID
	if guildID == "" {
		guildID = s.client.GuildID()
	}
	return "https://discord.com/channels/" + guildID + "/" + re.ChannelID
}

// PushEvent publishes a local event as a guild scheduled event: a patch if
// the event already carries a remote link, otherwise a create whose
// returned identifier is persisted back onto the event. A non-success
// provider response fails this single push; retrying is the caller's
// concern.
func (s *SyncService) PushEvent(e *domain.Event) error {
	if !s.client.IsConfigured() {
		return fmt.Errorf("discord credentials not configured")
	}

	description := e.Description
	if e.GroupID != nil {
		group, err := s.store.GetWorkingGroupByID(*e.GroupID)
		if err != nil {
			return fmt.Errorf("resolve working group: %w", err)
		}
		if group != nil {
			description = appendGroupTag(description, group.Name)
		}
	}

	rule, err := recur.Unmarshal(e.RecurrenceJSON)
	if err != nil {
		return fmt.Errorf("decode rule snapshot: %w", err)
	}

	req := &discord.EventRequest{
		Name:               e.Title,
		Description:        description,
		ScheduledStartTime: e.StartTime.UTC().Format(time.RFC3339),
		ScheduledEndTime:   e.EndTime.UTC().Format(time.RFC3339),
		EntityType:         discord.EntityTypeExternal,
		EntityMetadata:     &discord.EntityMetadata{Location: pushLocation(e)},
		RecurrenceRule:     toRemoteRule(rule),
		PrivacyLevel:       discord.PrivacyLevelGuildOnly,
	}

	if e.DiscordEventID != "" {
		if _, err := s.client.ModifyScheduledEvent(e.DiscordEventID, req); err != nil {
			return fmt.Errorf("update scheduled event %s: %w", e.DiscordEventID, err)
		}
		return nil
	}

	created, err := s.client.CreateScheduledEvent(req)
	if err != nil {
		return fmt.Errorf("create scheduled event: %w", err)
	}

	e.DiscordEventID = created.ID
	if err := s.store.UpdateEvent(e); err != nil {
		return fmt.Errorf("persist remote link: %w", err)
	}
	return nil
}

// DeleteRemote removes the guild scheduled event linked to a local event.
// Unlinked events and an unconfigured client are no-ops.
func (s *SyncService) DeleteRemote(e *domain.Event) error {
	if e.DiscordEventID == "" || !s.client.IsConfigured() {
		return nil
	}
	if err := s.client.DeleteScheduledEvent(e.DiscordEventID); err != nil {
		return fmt.Errorf("delete scheduled event %s: %w", e.DiscordEventID, err)
	}
	return nil
}

// pushLocation picks the outbound location string: the human-readable label
// when one exists, else the stored link. Discord requires a location for
// external events.
func pushLocation(e *domain.Event) string {
	if e.LocationLabel != "" {
		return e.LocationLabel
	}
	if e.Location != "" {
		return e.Location
	}
	return "TBA"
}
