package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ryanbeasley/odsa-app-sub000/internal/clients/discord"
	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"
)

// fakeProvider is an in-memory ProviderClient for sync tests.
type fakeProvider struct {
	configured bool
	guildID    string
	events     []discord.ScheduledEvent
	listErr    error

	created  []*discord.EventRequest
	modified map[string]*discord.EventRequest
	deleted  []string
	nextID   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		configured: true,
		guildID:    "guild-1",
		modified:   make(map[string]*discord.EventRequest),
	}
}

func (f *fakeProvider) IsConfigured() bool { return f.configured }
func (f *fakeProvider) GuildID() string    { return f.guildID }

func (f *fakeProvider) ListScheduledEvents() ([]discord.ScheduledEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeProvider) CreateScheduledEvent(req *discord.EventRequest) (*discord.ScheduledEvent, error) {
	f.created = append(f.created, req)
	f.nextID++
	return &discord.ScheduledEvent{ID: fmt.Sprintf("created-%d", f.nextID), Name: req.Name}, nil
}

func (f *fakeProvider) ModifyScheduledEvent(eventID string, req *discord.EventRequest) (*discord.ScheduledEvent, error) {
	f.modified[eventID] = req
	return &discord.ScheduledEvent{ID: eventID, Name: req.Name}, nil
}

func (f *fakeProvider) DeleteScheduledEvent(eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

func newTestSync(store *fakeStore, provider *fakeProvider) *SyncService {
	svc := NewSyncService(store, provider, NewSeriesService(store))
	svc.now = func() time.Time {
		return time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func externalEvent(id, name, start string) discord.ScheduledEvent {
	return discord.ScheduledEvent{
		ID:                 id,
		GuildID:            "guild-1",
		Name:               name,
		ScheduledStartTime: start,
		EntityType:         discord.EntityTypeExternal,
	}
}

func TestSyncStandaloneInsert(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	ev := externalEvent("d1", "General Meeting", "2024-02-10T18:00:00Z")
	ev.ScheduledEndTime = "2024-02-10T20:00:00Z"
	provider.events = []discord.ScheduledEvent{ev}

	result, err := newTestSync(store, provider).SyncFromDiscord()
	if err != nil {
		t.Fatalf("SyncFromDiscord: %v", err)
	}
	if result.Synced != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 1 synced / 0 skipped", result)
	}

	got, err := store.GetEventByDiscordID("d1")
	if err != nil || got == nil {
		t.Fatalf("event not persisted: %v", err)
	}
	if got.Title != "General Meeting" {
		t.Errorf("title = %q", got.Title)
	}
	if !got.EndTime.Equal(got.StartTime.Add(2 * time.Hour)) {
		t.Errorf("end time not taken from remote: %v", got.EndTime)
	}
}

func TestSyncStandaloneUpdateIdempotent(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.events = []discord.ScheduledEvent{externalEvent("d1", "General Meeting", "2024-02-10T18:00:00Z")}

	svc := newTestSync(store, provider)
	if _, err := svc.SyncFromDiscord(); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first, _ := store.GetEventByDiscordID("d1")

	provider.events[0].Name = "General Meeting (rescheduled)"
	if _, err := svc.SyncFromDiscord(); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if len(store.events) != 1 {
		t.Fatalf("second pass duplicated the row: %d rows", len(store.events))
	}
	second, _ := store.GetEventByDiscordID("d1")
	if second.ID != first.ID {
		t.Errorf("row identity changed: %d -> %d", first.ID, second.ID)
	}
	if second.Title != "General Meeting (rescheduled)" {
		t.Errorf("title not updated: %q", second.Title)
	}
}

func TestSyncMissingEndDefaults(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.events = []discord.ScheduledEvent{externalEvent("d1", "Social", "2024-02-10T18:00:00Z")}

	if _, err := newTestSync(store, provider).SyncFromDiscord(); err != nil {
		t.Fatalf("SyncFromDiscord: %v", err)
	}
	got, _ := store.GetEventByDiscordID("d1")
	if !got.EndTime.Equal(got.StartTime.Add(time.Hour)) {
		t.Errorf("missing end time should default to one hour, got %v", got.EndTime.Sub(got.StartTime))
	}
}

func TestSyncRecurringExpansion(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	ev := externalEvent("d1", "Weekly Check-in", "2024-01-02T19:00:00Z") // Tuesday
	ev.RecurrenceRule = &discord.RecurrenceRule{
		Frequency: intp(discord.FrequencyWeekly),
		Interval:  1,
		ByWeekday: []int{1}, // Tuesday
	}
	provider.events = []discord.ScheduledEvent{ev}

	svc := newTestSync(store, provider)
	result, err := svc.SyncFromDiscord()
	if err != nil {
		t.Fatalf("SyncFromDiscord: %v", err)
	}

	// Weekly Tuesdays from Jan 2 19:00 through Apr 1 12:00 (now + 3 months):
	// the last in-bound occurrence is Mar 26, 13 rows.
	if result.Synced != 13 {
		t.Errorf("synced = %d, want 13", result.Synced)
	}
	if len(store.events) != 13 {
		t.Fatalf("store holds %d rows, want 13", len(store.events))
	}

	linked := 0
	var seriesID string
	for _, e := range store.events {
		if seriesID == "" {
			seriesID = e.SeriesID
		}
		if e.SeriesID != seriesID || e.SeriesID == "" {
			t.Fatalf("inconsistent series identity on %+v", e)
		}
		if e.DiscordEventID != "" {
			linked++
		}
	}
	if linked != 1 {
		t.Errorf("%d rows carry the remote link, want exactly 1", linked)
	}

	// A second identical pass regenerates in place without duplicating.
	if _, err := svc.SyncFromDiscord(); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(store.events) != 13 {
		t.Errorf("second pass changed row count to %d", len(store.events))
	}
}

func TestSyncRecurringToStandalone(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	ev := externalEvent("d1", "Weekly Check-in", "2024-01-02T19:00:00Z")
	ev.RecurrenceRule = &discord.RecurrenceRule{
		Frequency: intp(discord.FrequencyWeekly), Interval: 1, ByWeekday: []int{1},
	}
	provider.events = []discord.ScheduledEvent{ev}

	svc := newTestSync(store, provider)
	if _, err := svc.SyncFromDiscord(); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(store.events) < 2 {
		t.Fatalf("expected a multi-row series, got %d rows", len(store.events))
	}

	// Remote item dropped its recurrence: the stale series collapses to one
	// standalone row.
	provider.events[0].RecurrenceRule = nil
	if _, err := svc.SyncFromDiscord(); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(store.events))
	}
	got, _ := store.GetEventByDiscordID("d1")
	if got == nil || got.SeriesID != "" {
		t.Errorf("surviving row still in a series: %+v", got)
	}
}

func TestSyncSkipsBadItems(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()

	unsupported := externalEvent("d2", "Biweekly", "2024-01-02T19:00:00Z")
	unsupported.RecurrenceRule = &discord.RecurrenceRule{
		Frequency: intp(discord.FrequencyWeekly), Interval: 2, ByWeekday: []int{1},
	}
	unknownGroup := externalEvent("d3", "Orphan", "2024-01-05T19:00:00Z")
	unknownGroup.Description = "```working-group-id=Nonexistent```"

	provider.events = []discord.ScheduledEvent{
		externalEvent("d1", "No Start", ""),
		unsupported,
		unknownGroup,
		externalEvent("d4", "Fine", "2024-01-06T10:00:00Z"),
	}

	result, err := newTestSync(store, provider).SyncFromDiscord()
	if err != nil {
		t.Fatalf("per-item problems must not fail the pass: %v", err)
	}
	if result.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", result.Skipped)
	}
	if result.Synced != 1 {
		t.Errorf("synced = %d, want 1", result.Synced)
	}
	if got, _ := store.GetEventByDiscordID("d4"); got == nil {
		t.Error("healthy item was not persisted")
	}
}

func TestSyncTransportFailureAborts(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.listErr = fmt.Errorf("API error 500: upstream unavailable")

	if _, err := newTestSync(store, provider).SyncFromDiscord(); err == nil {
		t.Fatal("transport failure must abort the pass")
	}

	provider.listErr = nil
	provider.configured = false
	if _, err := newTestSync(store, provider).SyncFromDiscord(); err == nil {
		t.Fatal("missing credentials must abort the pass")
	}
}

func TestSyncGroupTagResolution(t *testing.T) {
	store := newFakeStore()
	g := store.addGroup("Mutual Aid")
	provider := newFakeProvider()
	ev := externalEvent("d1", "Food Distribution", "2024-02-03T10:00:00Z")
	ev.Description = "Meet at the park entrance.\n```working-group-id=Mutual Aid```"
	provider.events = []discord.ScheduledEvent{ev}

	if _, err := newTestSync(store, provider).SyncFromDiscord(); err != nil {
		t.Fatalf("SyncFromDiscord: %v", err)
	}

	got, _ := store.GetEventByDiscordID("d1")
	if got.GroupID == nil || *got.GroupID != g.ID {
		t.Errorf("group not resolved: %+v", got.GroupID)
	}
	if strings.Contains(got.Description, "working-group-id") {
		t.Errorf("tag left in stored description: %q", got.Description)
	}
	if got.Description != "Meet at the park entrance." {
		t.Errorf("description = %q", got.Description)
	}
}

func TestDeriveLocation(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestSync(store, provider)

	external := func(loc string) *discord.ScheduledEvent {
		return &discord.ScheduledEvent{
			EntityType:     discord.EntityTypeExternal,
			EntityMetadata: &discord.EntityMetadata{Location: loc},
		}
	}

	t.Run("url passes through", func(t *testing.T) {
		location, label := svc.deriveLocation(external("https://meet.example.org/room"))
		if location != "https://meet.example.org/room" || label != "" {
			t.Errorf("got %q / %q", location, label)
		}
	})

	t.Run("free text becomes map search", func(t *testing.T) {
		location, label := svc.deriveLocation(external("123 Main St, Springfield"))
		if label != "123 Main St, Springfield" {
			t.Errorf("label = %q", label)
		}
		if !strings.HasPrefix(location, mapSearchBaseURL) {
			t.Errorf("location = %q", location)
		}
		if strings.Contains(location, " ") {
			t.Errorf("address not escaped: %q", location)
		}
	})

	t.Run("voice channel deep link", func(t *testing.T) {
		re := &discord.ScheduledEvent{
			EntityType: discord.EntityTypeVoice,
			GuildID:    "g9",
			ChannelID:  "c7",
		}
		location, label := svc.deriveLocation(re)
		if location != "https://discord.com/channels/g9/c7" {
			t.Errorf("location = %q", location)
		}
		if label != "Voice Channel" {
			t.Errorf("label = %q", label)
		}
	})

	t.Run("stage falls back to configured guild", func(t *testing.T) {
		re := &discord.ScheduledEvent{EntityType: discord.EntityTypeStage, ChannelID: "c7"}
		location, label := svc.deriveLocation(re)
		if location != "https://discord.com/channels/guild-1/c7" {
			t.Errorf("location = %q", location)
		}
		if label != "Stage Channel" {
			t.Errorf("label = %q", label)
		}
	})
}

func TestPushEventCreate(t *testing.T) {
	store := newFakeStore()
	g := store.addGroup("Housing")
	provider := newFakeProvider()
	svc := newTestSync(store, provider)

	start := time.Date(2024, time.April, 1, 18, 0, 0, 0, time.UTC)
	e := &domain.Event{
		Title:         "Tenant Organizing 101",
		Description:   "Bring a friend.",
		GroupID:       &g.ID,
		StartTime:     start,
		EndTime:       start.Add(90 * time.Minute),
		LocationLabel: "Community Center",
	}
	if err := store.CreateEvent(e); err != nil {
		t.Fatal(err)
	}

	if err := svc.PushEvent(e); err != nil {
		t.Fatalf("PushEvent: %v", err)
	}

	if len(provider.created) != 1 {
		t.Fatalf("created %d remote events, want 1", len(provider.created))
	}
	req := provider.created[0]
	if !strings.Contains(req.Description, "```working-group-id=Housing```") {
		t.Errorf("group tag missing from outbound description: %q", req.Description)
	}
	if req.EntityMetadata == nil || req.EntityMetadata.Location != "Community Center" {
		t.Errorf("outbound location = %+v", req.EntityMetadata)
	}

	if e.DiscordEventID == "" {
		t.Fatal("remote identifier not set on the event")
	}
	stored := store.events[e.ID]
	if stored.DiscordEventID != e.DiscordEventID {
		t.Errorf("remote link not persisted: %q vs %q", stored.DiscordEventID, e.DiscordEventID)
	}
}

func TestPushEventModify(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestSync(store, provider)

	start := time.Date(2024, time.April, 1, 18, 0, 0, 0, time.UTC)
	e := &domain.Event{
		Title:          "Tenant Organizing 101",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		DiscordEventID: "d42",
	}
	if err := store.CreateEvent(e); err != nil {
		t.Fatal(err)
	}

	if err := svc.PushEvent(e); err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	if len(provider.created) != 0 {
		t.Error("linked event must be modified, not recreated")
	}
	if _, ok := provider.modified["d42"]; !ok {
		t.Error("modify was not issued for the linked remote event")
	}
}

func TestDeleteRemote(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestSync(store, provider)

	if err := svc.DeleteRemote(&domain.Event{}); err != nil {
		t.Fatalf("unlinked event must be a no-op: %v", err)
	}
	if len(provider.deleted) != 0 {
		t.Fatal("delete issued for unlinked event")
	}

	if err := svc.DeleteRemote(&domain.Event{DiscordEventID: "d9"}); err != nil {
		t.Fatalf("DeleteRemote: %v", err)
	}
	if len(provider.deleted) != 1 || provider.deleted[0] != "d9" {
		t.Errorf("deleted = %v, want [d9]", provider.deleted)
	}
}

func TestPushEventRecurring(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	svc := newTestSync(store, provider)

	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	rule := weeklyRule(start)
	snapshot, err := rule.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	e := &domain.Event{
		Title:          "Weekly Check-in",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		RecurrenceJSON: snapshot,
	}
	if err := store.CreateEvent(e); err != nil {
		t.Fatal(err)
	}

	if err := svc.PushEvent(e); err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	req := provider.created[0]
	if req.RecurrenceRule == nil {
		t.Fatal("outbound request carries no recurrence rule")
	}
	if req.RecurrenceRule.Frequency == nil || *req.RecurrenceRule.Frequency != discord.FrequencyWeekly {
		t.Errorf("frequency = %v", req.RecurrenceRule.Frequency)
	}
	if len(req.RecurrenceRule.ByWeekday) != 1 || req.RecurrenceRule.ByWeekday[0] != 1 {
		t.Errorf("ByWeekday = %v, want [1]", req.RecurrenceRule.ByWeekday)
	}
}
