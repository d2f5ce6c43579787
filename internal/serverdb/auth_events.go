package serverdb

import (
	"fmt"
	"time"
)

// AuthEvent represents a row in the auth_events table.
type AuthEvent struct {
	ID          int64     `json:"id"`
	UserAccount string    `json:"userAccount"`
	EventType   string    `json:"eventType"`
	IP          string    `json:"ip"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Auth event type constants.
const (
	AuthEventRegistered  = "registered"
	AuthEventLogin       = "login"
	AuthEventLoginFailed = "login_failed"
	AuthEventLogout      = "logout"
)

// InsertAuthEvent records an authentication event for account.
func (db *ServerDB) InsertAuthEvent(account, eventType, ip string) error {
	_, err := db.conn.Exec(
		`INSERT INTO auth_events (user_account, event_type, ip, created_at) VALUES (?, ?, ?, ?)`,
		account, eventType, ip, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// RecentAuthEvents returns up to limit events for account, newest first.
func (db *ServerDB) RecentAuthEvents(account string, limit int) ([]AuthEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT id, user_account, event_type, ip, created_at FROM auth_events
		 WHERE user_account = ? ORDER BY id DESC LIMIT ?`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("query auth events: %w", err)
	}
	defer rows.Close()

	var events []AuthEvent
	for rows.Next() {
		var e AuthEvent
		if err := rows.Scan(&e.ID, &e.UserAccount, &e.EventType, &e.IP, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth events: %w", err)
	}
	return events, nil
}

// CleanupAuthEvents deletes auth events older than the given duration.
// Returns the number of rows deleted.
func (db *ServerDB) CleanupAuthEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := db.conn.Exec(`DELETE FROM auth_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup auth events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
