package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ryanbeasley/odsa-app-sub000/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS working_groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			description TEXT DEFAULT '',
			contact_info TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			group_id INTEGER REFERENCES working_groups(id),
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			location TEXT DEFAULT '',
			location_label TEXT DEFAULT '',
			discord_event_id TEXT DEFAULT '',
			series_id TEXT DEFAULT '',
			recurrence_json TEXT DEFAULT '',
			recur_until DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			body TEXT DEFAULT '',
			group_id INTEGER REFERENCES working_groups(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS support_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_events_series_id ON events(series_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_discord_event_id ON events(discord_event_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// --- Events ---

const eventColumns = `id, title, description, group_id, start_time, end_time,
	location, location_label, discord_event_id, series_id, recurrence_json,
	recur_until, created_at`

func (s *Storage) CreateEvent(e *domain.Event) error {
	res, err := s.db.Exec(`INSERT INTO events
		(title, description, group_id, start_time, end_time, location,
		 location_label, discord_event_id, series_id, recurrence_json, recur_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, nullInt64(e.GroupID),
		e.StartTime.UTC(), e.EndTime.UTC(), e.Location, e.LocationLabel,
		e.DiscordEventID, e.SeriesID, e.RecurrenceJSON, nullTime(e.RecurUntil))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// CreateEventsBatch inserts all events in one transaction so a series is
// never persisted half-written.
func (s *Storage) CreateEventsBatch(events []*domain.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvents(tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReplaceSeries atomically deletes prior rows (by series ID if known,
// otherwise by single-row ID) and inserts the regenerated occurrences, so a
// crash mid-regeneration never leaves a series half-deleted.
func (s *Storage) ReplaceSeries(oldSeriesID string, oldEventID int64, events []*domain.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if oldSeriesID != "" {
		if _, err := tx.Exec(`DELETE FROM events WHERE series_id = ?`, oldSeriesID); err != nil {
			return fmt.Errorf("delete series %s: %w", oldSeriesID, err)
		}
	} else if oldEventID != 0 {
		if _, err := tx.Exec(`DELETE FROM events WHERE id = ?`, oldEventID); err != nil {
			return fmt.Errorf("delete event %d: %w", oldEventID, err)
		}
	}

	if err := insertEvents(tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertEvents(tx *sql.Tx, events []*domain.Event) error {
	stmt, err := tx.Prepare(`INSERT INTO events
		(title, description, group_id, start_time, end_time, location,
		 location_label, discord_event_id, series_id, recurrence_json, recur_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		res, err := stmt.Exec(
			e.Title, e.Description, nullInt64(e.GroupID),
			e.StartTime.UTC(), e.EndTime.UTC(), e.Location, e.LocationLabel,
			e.DiscordEventID, e.SeriesID, e.RecurrenceJSON, nullTime(e.RecurUntil))
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	}
	return nil
}

func (s *Storage) UpdateEvent(e *domain.Event) error {
	_, err := s.db.Exec(`UPDATE events SET
		title = ?, description = ?, group_id = ?, start_time = ?, end_time = ?,
		location = ?, location_label = ?, discord_event_id = ?, series_id = ?,
		recurrence_json = ?, recur_until = ?
		WHERE id = ?`,
		e.Title, e.Description, nullInt64(e.GroupID),
		e.StartTime.UTC(), e.EndTime.UTC(), e.Location, e.LocationLabel,
		e.DiscordEventID, e.SeriesID, e.RecurrenceJSON, nullTime(e.RecurUntil),
		e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (s *Storage) GetEventByID(id int64) (*domain.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventByDiscordID returns the local event linked to a remote scheduled
// event, or nil if the remote ID has never been seen.
func (s *Storage) GetEventByDiscordID(discordID string) (*domain.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events
		WHERE discord_event_id = ?`, discordID)
	return scanEvent(row)
}

func (s *Storage) DeleteEventByID(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

func (s *Storage) DeleteEventsBySeries(seriesID string) error {
	if _, err := s.db.Exec(`DELETE FROM events WHERE series_id = ?`, seriesID); err != nil {
		return fmt.Errorf("delete series %s: %w", seriesID, err)
	}
	return nil
}

func (s *Storage) ListEvents(from, to time.Time) ([]*domain.Event, error) {
	rows, err := s.db.Query(`SELECT `+eventColumns+` FROM events
		WHERE start_time >= ? AND start_time <= ?
		ORDER BY start_time`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Storage) ListEventsBySeries(seriesID string) ([]*domain.Event, error) {
	rows, err := s.db.Query(`SELECT `+eventColumns+` FROM events
		WHERE series_id = ? ORDER BY start_time`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query series events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var groupID sql.NullInt64
	var recurUntil sql.NullTime

	err := row.Scan(&e.ID, &e.Title, &e.Description, &groupID,
		&e.StartTime, &e.EndTime, &e.Location, &e.LocationLabel,
		&e.DiscordEventID, &e.SeriesID, &e.RecurrenceJSON,
		&recurUntil, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if groupID.Valid {
		e.GroupID = &groupID.Int64
	}
	if recurUntil.Valid {
		t := recurUntil.Time.UTC()
		e.RecurUntil = &t
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Working groups ---

func (s *Storage) CreateWorkingGroup(g *domain.WorkingGroup) error {
	res, err := s.db.Exec(`INSERT INTO working_groups (name, description, contact_info)
		VALUES (?, ?, ?)`, g.Name, g.Description, g.ContactInfo)
	if err != nil {
		return fmt.Errorf("insert working group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

func (s *Storage) UpdateWorkingGroup(g *domain.WorkingGroup) error {
	_, err := s.db.Exec(`UPDATE working_groups SET name = ?, description = ?, contact_info = ?
		WHERE id = ?`, g.Name, g.Description, g.ContactInfo, g.ID)
	if err != nil {
		return fmt.Errorf("update working group: %w", err)
	}
	return nil
}

func (s *Storage) DeleteWorkingGroup(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM working_groups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete working group %d: %w", id, err)
	}
	return nil
}

func (s *Storage) GetWorkingGroupByID(id int64) (*domain.WorkingGroup, error) {
	row := s.db.QueryRow(`SELECT id, name, description, contact_info, created_at
		FROM working_groups WHERE id = ?`, id)
	return scanWorkingGroup(row)
}

// GetWorkingGroupByName resolves a group by exact name match.
func (s *Storage) GetWorkingGroupByName(name string) (*domain.WorkingGroup, error) {
	row := s.db.QueryRow(`SELECT id, name, description, contact_info, created_at
		FROM working_groups WHERE name = ?`, name)
	return scanWorkingGroup(row)
}

func (s *Storage) ListWorkingGroups() ([]*domain.WorkingGroup, error) {
	rows, err := s.db.Query(`SELECT id, name, description, contact_info, created_at
		FROM working_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query working groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.WorkingGroup
	for rows.Next() {
		g, err := scanWorkingGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func scanWorkingGroup(row rowScanner) (*domain.WorkingGroup, error) {
	var g domain.WorkingGroup
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.ContactInfo, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan working group: %w", err)
	}
	return &g, nil
}

// --- Announcements ---

func (s *Storage) CreateAnnouncement(a *domain.Announcement) error {
	res, err := s.db.Exec(`INSERT INTO announcements (title, body, group_id)
		VALUES (?, ?, ?)`, a.Title, a.Body, nullInt64(a.GroupID))
	if err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

func (s *Storage) ListAnnouncements() ([]*domain.Announcement, error) {
	rows, err := s.db.Query(`SELECT id, title, body, group_id, created_at
		FROM announcements ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query announcements: %w", err)
	}
	defer rows.Close()

	var items []*domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		var groupID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &groupID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		if groupID.Valid {
			a.GroupID = &groupID.Int64
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (s *Storage) DeleteAnnouncement(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM announcements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete announcement %d: %w", id, err)
	}
	return nil
}

// --- Support links ---

func (s *Storage) CreateSupportLink(l *domain.SupportLink) error {
	res, err := s.db.Exec(`INSERT INTO support_links (label, url)
		VALUES (?, ?)`, l.Label, l.URL)
	if err != nil {
		return fmt.Errorf("insert support link: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

func (s *Storage) ListSupportLinks() ([]*domain.SupportLink, error) {
	rows, err := s.db.Query(`SELECT id, label, url, created_at
		FROM support_links ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("query support links: %w", err)
	}
	defer rows.Close()

	var links []*domain.SupportLink
	for rows.Next() {
		var l domain.SupportLink
		if err := rows.Scan(&l.ID, &l.Label, &l.URL, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan support link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func (s *Storage) DeleteSupportLink(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM support_links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete support link %d: %w", id, err)
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
