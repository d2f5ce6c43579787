package serverdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uloaix/aicode/internal/models"
)

// MaxAppPageSize caps the page size of per-user app listings.
const MaxAppPageSize = 20

const appColumns = `id, app_name, cover, init_prompt, gen_status, user_id, create_time, update_time`

func scanApp(row interface{ Scan(...any) error }) (*models.App, error) {
	a := &models.App{}
	var status string
	if err := row.Scan(&a.ID, &a.AppName, &a.Cover, &a.InitPrompt, &status, &a.UserID,
		&a.CreateTime, &a.UpdateTime); err != nil {
		return nil, err
	}
	a.GenStatus = models.AppGenStatus(status)
	return a, nil
}

// CreateApp inserts an app owned by userID in the not-generated state.
func (db *ServerDB) CreateApp(userID int64, appName, cover, initPrompt string) (*models.App, error) {
	if strings.TrimSpace(initPrompt) == "" {
		return nil, fmt.Errorf("init prompt is required")
	}
	now := time.Now().UTC()
	res, err := db.conn.Exec(
		`INSERT INTO apps (app_name, cover, init_prompt, gen_status, user_id, create_time, update_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appName, cover, initPrompt, string(models.AppGenNotGenerated), userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert app: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert app: last id: %w", err)
	}
	return &models.App{
		ID:         id,
		AppName:    appName,
		Cover:      cover,
		InitPrompt: initPrompt,
		GenStatus:  models.AppGenNotGenerated,
		UserID:     userID,
		CreateTime: now,
		UpdateTime: now,
	}, nil
}

// GetApp returns the app with the given ID, or nil if not found.
func (db *ServerDB) GetApp(id int64) (*models.App, error) {
	a, err := scanApp(db.conn.QueryRow(`SELECT `+appColumns+` FROM apps WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get app: %w", err)
	}
	return a, nil
}

// AppQuery pages a user's apps, optionally filtered by name substring.
type AppQuery struct {
	PageNum  int64
	PageSize int64
	AppName  string
}

// ListAppsByUser returns one page of apps owned by userID, newest first.
// Page size is capped at MaxAppPageSize.
func (db *ServerDB) ListAppsByUser(userID int64, q AppQuery) (*models.Page[*models.App], error) {
	pageNum, pageSize := normalizePage(q.PageNum, q.PageSize, MaxAppPageSize)

	where := ` WHERE user_id = ?`
	args := []any{userID}
	if q.AppName != "" {
		where += ` AND app_name LIKE ?`
		args = append(args, "%"+q.AppName+"%")
	}

	var total int64
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM apps`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count apps: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT `+appColumns+` FROM apps`+where+` ORDER BY create_time DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, pageSize, (pageNum-1)*pageSize)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	page := &models.Page[*models.App]{
		Records:    []*models.App{},
		PageNumber: pageNum,
		PageSize:   pageSize,
		TotalRow:   total,
	}
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		page.Records = append(page.Records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list apps: iterate: %w", err)
	}
	return page, nil
}

// UpdateAppGenStatus sets an app's generation status.
func (db *ServerDB) UpdateAppGenStatus(id int64, status models.AppGenStatus) error {
	if _, ok := models.AppGenStatusFromValue(string(status)); !ok {
		return fmt.Errorf("invalid gen status %q", status)
	}
	res, err := db.conn.Exec(`UPDATE apps SET gen_status = ?, update_time = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update app status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
