package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"
	"github.com/ryanbeasley/odsa-app-sub000/internal/recur"
)

// defaultRecurWindow bounds locally-created series when the caller gives no
// explicit end date.
const defaultRecurWindow = time.Hour * 24 * 365

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

type eventRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	GroupID       *int64         `json:"group_id"`
	StartTime     string         `json:"start_time"` // RFC 3339
	EndTime       string         `json:"end_time"`   // RFC 3339, optional
	Location      string         `json:"location"`
	LocationLabel string         `json:"location_label"`
	Recurrence    *recur.Request `json:"recurrence"`
	RecurUntil    string         `json:"recur_until"` // RFC 3339, optional
}

type eventResponse struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	GroupID        *int64 `json:"group_id,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Location       string `json:"location,omitempty"`
	LocationLabel  string `json:"location_label,omitempty"`
	DiscordEventID string `json:"discord_event_id,omitempty"`
	SeriesID       string `json:"series_id,omitempty"`
	Recurring      bool   `json:"recurring"`
}

func toEventResponse(e *domain.Event) eventResponse {
	return eventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		GroupID:        e.GroupID,
		StartTime:      e.StartTime.UTC().Format(time.RFC3339),
		EndTime:        e.EndTime.UTC().Format(time.RFC3339),
		Location:       e.Location,
		LocationLabel:  e.LocationLabel,
		DiscordEventID: e.DiscordEventID,
		SeriesID:       e.SeriesID,
		Recurring:      e.IsRecurring(),
	}
}

func eventsToResponse(events []*domain.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

// parseEventRequest validates the payload and builds the unsaved event plus
// its rule and end bound.
func (s *Server) parseEventRequest(req *eventRequest) (*domain.Event, *recur.Rule, time.Time, error) {
	var zero time.Time

	if req.Title == "" {
		return nil, nil, zero, errBadRequest("title is required")
	}
	if req.StartTime == "" {
		return nil, nil, zero, errBadRequest("start_time is required")
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, nil, zero, errBadRequest("invalid start_time (use RFC 3339)")
	}
	start = start.UTC()

	end := start.Add(time.Hour)
	if req.EndTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return nil, nil, zero, errBadRequest("invalid end_time (use RFC 3339)")
		}
		end = parsed.UTC()
	}
	if !end.After(start) {
		return nil, nil, zero, errBadRequest("end_time must be after start_time")
	}

	if req.GroupID != nil {
		group, err := s.store.GetWorkingGroupByID(*req.GroupID)
		if err != nil {
			return nil, nil, zero, err
		}
		if group == nil {
			return nil, nil, zero, errBadRequest("unknown working group")
		}
	}

	e := &domain.Event{
		Title:         req.Title,
		Description:   req.Description,
		GroupID:       req.GroupID,
		StartTime:     start,
		EndTime:       end,
		Location:      req.Location,
		LocationLabel: req.LocationLabel,
	}

	if req.Recurrence == nil {
		return e, nil, zero, nil
	}

	rule, err := recur.Normalize(*req.Recurrence, start)
	if err != nil {
		return nil, nil, zero, errBadRequest(err.Error())
	}

	until := start.Add(defaultRecurWindow)
	if req.RecurUntil != "" {
		parsed, err := time.Parse(time.RFC3339, req.RecurUntil)
		if err != nil {
			return nil, nil, zero, errBadRequest("invalid recur_until (use RFC 3339)")
		}
		until = parsed.UTC()
	}
	return e, rule, until, nil
}

type badRequestError string

func errBadRequest(msg string) error    { return badRequestError(msg) }
func (e badRequestError) Error() string { return string(e) }
func isBadRequest(err error) bool       { _, ok := err.(badRequestError); return ok }
func statusFor(err error) int {
	if isBadRequest(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GET /api/events?from=...&to=...
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from, to := now, now.AddDate(0, 3, 0)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from (use RFC 3339)")
			return
		}
		from = parsed.UTC()
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to (use RFC 3339)")
			return
		}
		to = parsed.UTC()
	}

	events, err := s.store.ListEvents(from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eventsToResponse(events))
}

// POST /api/events
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, rule, until, err := s.parseEventRequest(&req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if rule == nil {
		if err := s.store.CreateEvent(e); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(e))
		return
	}

	events, err := s.series.CreateSeries(e, rule, until)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, eventsToResponse(events))
}

// GET /api/events/{id}
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	e, err := s.store.GetEventByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// PUT /api/events/{id} replaces the event with the supplied state. Editing
// any member of a series regenerates the whole series; dropping the
// recurrence block collapses it to a single event.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	existing, err := s.store.GetEventByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, rule, until, err := s.parseEventRequest(&req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	e.ID = existing.ID
	e.SeriesID = existing.SeriesID
	e.DiscordEventID = existing.DiscordEventID
	e.CreatedAt = existing.CreatedAt

	if rule == nil && existing.SeriesID == "" {
		if err := s.store.UpdateEvent(e); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(e))
		return
	}

	events, err := s.series.RegenerateSeries(e, rule, until)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eventsToResponse(events))
}

// DELETE /api/events/{id} removes the event, and with it the whole series
// when the event is a series member. A linked remote scheduled event is
// deleted best-effort; the local delete proceeds either way.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	e, err := s.store.GetEventByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	linked := e
	if e.SeriesID != "" {
		// Only one series member carries the remote link.
		members, err := s.store.ListEventsBySeries(e.SeriesID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, m := range members {
			if m.DiscordEventID != "" {
				linked = m
				break
			}
		}
	}
	if err := s.sync.DeleteRemote(linked); err != nil {
		log.Printf("Error deleting remote event for %d: %v", e.ID, err)
	}

	if e.SeriesID != "" {
		err = s.series.DeleteSeries(e.SeriesID)
	} else {
		err = s.store.DeleteEventByID(e.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// POST /api/events/{id}/push
func (s *Server) handlePushEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	e, err := s.store.GetEventByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if err := s.sync.PushEvent(e); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// POST /api/sync
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.SyncFromDiscord()
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /calendar.ics
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	data, err := s.feed.Generate(now.AddDate(0, -1, 0), now.AddDate(1, 0, 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = w.Write(data)
}

// GET /api/groups
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListWorkingGroups()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if groups == nil {
		groups = []*domain.WorkingGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// POST /api/groups
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var g domain.WorkingGroup
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if g.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := s.store.CreateWorkingGroup(&g); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// PUT /api/groups/{id}
func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	var g domain.WorkingGroup
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g.ID = id
	if err := s.store.UpdateWorkingGroup(&g); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// DELETE /api/groups/{id}
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if err := s.store.DeleteWorkingGroup(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GET /api/announcements
func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListAnnouncements()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*domain.Announcement{}
	}
	writeJSON(w, http.StatusOK, items)
}

// POST /api/announcements
func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var a domain.Announcement
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if a.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.store.CreateAnnouncement(&a); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// DELETE /api/announcements/{id}
func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid announcement id")
		return
	}
	if err := s.store.DeleteAnnouncement(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GET /api/support-links
func (s *Server) handleListSupportLinks(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListSupportLinks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*domain.SupportLink{}
	}
	writeJSON(w, http.StatusOK, items)
}

// POST /api/support-links
func (s *Server) handleCreateSupportLink(w http.ResponseWriter, r *http.Request) {
	var l domain.SupportLink
	if err := decodeJSON(r, &l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if l.Label == "" || l.URL == "" {
		writeError(w, http.StatusBadRequest, "label and url are required")
		return
	}
	if err := s.store.CreateSupportLink(&l); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// DELETE /api/support-links/{id}
func (s *Server) handleDeleteSupportLink(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid support link id")
		return
	}
	if err := s.store.DeleteSupportLink(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
