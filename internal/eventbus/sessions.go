package eventbus

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evansenter/clemini-go/pkg/model"
)

// SessionTTL is how long a session may go without a heartbeat before
// list_sessions reaps it.
const SessionTTL = 300 * time.Second

// Register records a new session for (machine, clientID), or, if one
// already exists for that pair, updates its name and cwd (the newer call's
// values win) and returns the same session id.
func (s *Store) Register(name, machine, cwd, clientID string) (string, error) {
	var existingID string
	err := s.db.QueryRow(
		`SELECT id FROM sessions WHERE machine = ? AND client_id = ?`,
		machine, clientID,
	).Scan(&existingID)
	switch {
	case err == nil:
		_, err = s.db.Exec(
			`UPDATE sessions SET name = ?, cwd = ?, last_heartbeat = CURRENT_TIMESTAMP WHERE id = ?`,
			name, cwd, existingID,
		)
		if err != nil {
			return "", fmt.Errorf("update existing session: %w", err)
		}
		return existingID, nil
	case err != sql.ErrNoRows:
		return "", fmt.Errorf("lookup existing session: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, name, machine, cwd, client_id, cursor, last_heartbeat) VALUES (?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP)`,
		id, name, machine, cwd, clientID,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// Heartbeat updates a session's last_heartbeat to now. Calling it any
// number of times has no effect beyond that timestamp update.
func (s *Store) Heartbeat(sessionID string) error {
	_, err := s.db.Exec(`UPDATE sessions SET last_heartbeat = CURRENT_TIMESTAMP WHERE id = ?`, sessionID)
	return err
}

// Unregister removes a session immediately, without waiting for TTL reap.
func (s *Store) Unregister(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// ListSessions reaps any session whose last heartbeat is older than
// SessionTTL, then returns every remaining session.
func (s *Store) ListSessions() ([]model.Session, error) {
	if _, err := s.db.Exec(
		`DELETE FROM sessions WHERE last_heartbeat < datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", int(SessionTTL.Seconds())),
	); err != nil {
		return nil, fmt.Errorf("reap expired sessions: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, name, machine, cwd, client_id, cursor,
		        CAST(strftime('%s', last_heartbeat) AS INTEGER),
		        CAST(strftime('%s', created_at) AS INTEGER)
		   FROM sessions ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Machine, &sess.Cwd, &sess.ClientID,
			&sess.Cursor, &sess.LastHeartbeat, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SubscriberCount resolves a channel name to a live-session count, per the
// heuristic channel naming convention: "all", "session:<id>", "repo:<x>",
// "machine:<x>". There is no subscription table; this is an approximation
// of who would plausibly be listening.
func (s *Store) SubscriberCount(channel string) (int, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return 0, err
	}

	switch {
	case channel == "all":
		return len(sessions), nil
	case strings.HasPrefix(channel, "session:"):
		id := strings.TrimPrefix(channel, "session:")
		for _, sess := range sessions {
			if sess.ID == id {
				return 1, nil
			}
		}
		return 0, nil
	case strings.HasPrefix(channel, "repo:"):
		needle := strings.TrimPrefix(channel, "repo:")
		count := 0
		for _, sess := range sessions {
			if strings.Contains(sess.Cwd, needle) || strings.Contains(sess.Name, needle) {
				count++
			}
		}
		return count, nil
	case strings.HasPrefix(channel, "machine:"):
		needle := strings.TrimPrefix(channel, "machine:")
		count := 0
		for _, sess := range sessions {
			if sess.Machine == needle {
				count++
			}
		}
		return count, nil
	default:
		return 0, nil
	}
}

// ListChannels returns subscriber counts for every distinct channel that
// has ever received an event, plus the implicit "all" channel.
func (s *Store) ListChannels() ([]model.ChannelInfo, error) {
	rows, err := s.db.Query(`SELECT DISTINCT channel FROM events`)
	if err != nil {
		return nil, fmt.Errorf("list distinct channels: %w", err)
	}
	channels := []string{"all"}
	for rows.Next() {
		var channel string
		if err := rows.Scan(&channel); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if channel != "all" {
			channels = append(channels, channel)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	infos := make([]model.ChannelInfo, 0, len(channels))
	for _, channel := range channels {
		count, err := s.SubscriberCount(channel)
		if err != nil {
			return nil, err
		}
		infos = append(infos, model.ChannelInfo{Channel: channel, Subscribers: count})
	}
	return infos, nil
}
