package eventbus

import (
	"database/sql"
	"fmt"

	"github.com/evansenter/clemini-go/pkg/model"
)

// PublishEvent appends an event and, if sessionID is non-empty, touches
// that session's heartbeat in the same call.
func (s *Store) PublishEvent(eventType, payload, channel, sessionID string) (int64, error) {
	var sessionArg any
	if sessionID != "" {
		sessionArg = sessionID
	}
	res, err := s.db.Exec(
		`INSERT INTO events (event_type, payload, channel, session_id) VALUES (?, ?, ?, ?)`,
		eventType, payload, channel, sessionArg,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted event id: %w", err)
	}
	if sessionID != "" {
		if err := s.Heartbeat(sessionID); err != nil {
			return id, fmt.Errorf("heartbeat publishing session: %w", err)
		}
	}
	return id, nil
}

// GetEventsOptions controls a get_events query.
type GetEventsOptions struct {
	Channel   string
	Order     string // "asc" or "desc"; defaults to "asc"
	Cursor    *int64
	Resume    bool
	SessionID string
	Limit     int
}

// GetEvents returns events for Channel in the requested order, using either
// an explicit Cursor or (with Resume and SessionID set) the session's
// stored cursor, then advances that session's cursor to the last id
// returned.
func (s *Store) GetEvents(opts GetEventsOptions) ([]model.Event, error) {
	order := opts.Order
	if order != "desc" {
		order = "asc"
	}

	cursor := opts.Cursor
	if cursor == nil && opts.Resume && opts.SessionID != "" {
		var stored int64
		err := s.db.QueryRow(`SELECT cursor FROM sessions WHERE id = ?`, opts.SessionID).Scan(&stored)
		switch {
		case err == nil:
			cursor = &stored
		case err != sql.ErrNoRows:
			return nil, fmt.Errorf("load session cursor: %w", err)
		}
	}

	query := `SELECT id, event_type, payload, channel, COALESCE(session_id, ''),
	                 CAST(strftime('%s', created_at) AS INTEGER)
	            FROM events WHERE channel = ?`
	args := []any{opts.Channel}

	if cursor != nil {
		if order == "asc" {
			query += ` AND id > ?`
		} else {
			query += ` AND id < ?`
		}
		args = append(args, *cursor)
	}

	query += fmt.Sprintf(` ORDER BY id %s`, order)
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Payload, &ev.Channel, &ev.SessionID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if opts.SessionID != "" && len(events) > 0 {
		last := events[len(events)-1].ID
		if _, err := s.db.Exec(`UPDATE sessions SET cursor = ? WHERE id = ?`, last, opts.SessionID); err != nil {
			return nil, fmt.Errorf("advance session cursor: %w", err)
		}
	}

	return events, nil
}

// PruneEvents deletes events older than the given number of days and
// returns how many rows were removed.
func (s *Store) PruneEvents(days int) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE created_at < datetime('now', ?)`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
