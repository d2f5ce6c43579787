package serverdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uloaix/aicode/internal/models"
)

const userColumns = `id, user_account, user_password, user_name, user_avatar, user_profile, user_role, create_time, update_time`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var role string
	if err := row.Scan(&u.ID, &u.UserAccount, &u.PasswordHash, &u.UserName, &u.UserAvatar,
		&u.UserProfile, &role, &u.CreateTime, &u.UpdateTime); err != nil {
		return nil, err
	}
	u.UserRole = models.UserRole(role)
	return u, nil
}

// CreateUser inserts a new user. The account must be unused; passwordHash is
// stored as given.
func (db *ServerDB) CreateUser(account, passwordHash, userName string, role models.UserRole) (*models.User, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if role == "" {
		role = models.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	existing, err := db.GetUserByAccount(account)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	now := time.Now().UTC()
	res, err := db.conn.Exec(
		`INSERT INTO users (user_account, user_password, user_name, user_role, create_time, update_time) VALUES (?, ?, ?, ?, ?, ?)`,
		account, passwordHash, userName, string(role), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user: last id: %w", err)
	}

	return &models.User{
		ID:           id,
		UserAccount:  account,
		PasswordHash: passwordHash,
		UserName:     userName,
		UserRole:     role,
		CreateTime:   now,
		UpdateTime:   now,
	}, nil
}

// GetUserByID returns the user with the given ID, or nil if not found.
func (db *ServerDB) GetUserByID(id int64) (*models.User, error) {
	u, err := scanUser(db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByAccount returns the user with the given account, or nil if not found.
func (db *ServerDB) GetUserByAccount(account string) (*models.User, error) {
	u, err := scanUser(db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE user_account = ?`, account))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by account: %w", err)
	}
	return u, nil
}

// UserUpdate carries optional field changes; nil fields are left untouched.
type UserUpdate struct {
	UserName    *string
	UserAvatar  *string
	UserProfile *string
	UserRole    *models.UserRole
}

// UpdateUser applies upd to the user. Returns ErrNotFound if no such user.
func (db *ServerDB) UpdateUser(id int64, upd UserUpdate) error {
	var sets []string
	var args []any
	if upd.UserName != nil {
		sets = append(sets, "user_name = ?")
		args = append(args, *upd.UserName)
	}
	if upd.UserAvatar != nil {
		sets = append(sets, "user_avatar = ?")
		args = append(args, *upd.UserAvatar)
	}
	if upd.UserProfile != nil {
		sets = append(sets, "user_profile = ?")
		args = append(args, *upd.UserProfile)
	}
	if upd.UserRole != nil {
		if !upd.UserRole.IsValid() {
			return fmt.Errorf("invalid role %q", *upd.UserRole)
		}
		sets = append(sets, "user_role = ?")
		args = append(args, string(*upd.UserRole))
	}
	sets = append(sets, "update_time = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := db.conn.Exec(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user along with their sessions and apps.
func (db *ServerDB) DeleteUser(id int64) error {
	res, err := db.conn.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserQuery filters and pages ListUsers. Account and name match by substring;
// role matches exactly.
type UserQuery struct {
	PageNum     int64
	PageSize    int64
	UserAccount string
	UserName    string
	UserRole    string
	SortField   string
	SortOrder   string
}

var userSortColumns = map[string]string{
	"id":          "id",
	"userAccount": "user_account",
	"userName":    "user_name",
	"userRole":    "user_role",
	"createTime":  "create_time",
	"updateTime":  "update_time",
}

// MaxUserPageSize caps the page size of the admin user listing.
const MaxUserPageSize = 100

// ListUsers returns one page of users matching q.
func (db *ServerDB) ListUsers(q UserQuery) (*models.Page[*models.User], error) {
	pageNum, pageSize := normalizePage(q.PageNum, q.PageSize, MaxUserPageSize)

	var conditions []string
	var args []any
	if q.UserAccount != "" {
		conditions = append(conditions, "user_account LIKE ?")
		args = append(args, "%"+q.UserAccount+"%")
	}
	if q.UserName != "" {
		conditions = append(conditions, "user_name LIKE ?")
		args = append(args, "%"+q.UserName+"%")
	}
	if q.UserRole != "" {
		conditions = append(conditions, "user_role = ?")
		args = append(args, q.UserRole)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	order := "create_time DESC, id DESC"
	if col, ok := userSortColumns[q.SortField]; ok {
		dir := "ASC"
		if q.SortOrder == "descend" || strings.EqualFold(q.SortOrder, "desc") {
			dir = "DESC"
		}
		order = col + " " + dir + ", id " + dir
	}

	rows, err := db.conn.Query(
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, pageSize, (pageNum-1)*pageSize)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	page := &models.Page[*models.User]{
		Records:    []*models.User{},
		PageNumber: pageNum,
		PageSize:   pageSize,
		TotalRow:   total,
	}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		page.Records = append(page.Records, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: iterate: %w", err)
	}
	return page, nil
}

// EnsureAdmin creates the admin account if it does not exist. An existing
// account with that name is promoted to admin. Returns true if a row was
// created.
func (db *ServerDB) EnsureAdmin(account, passwordHash string) (bool, error) {
	existing, err := db.GetUserByAccount(account)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if existing.IsAdmin() {
			return false, nil
		}
		role := models.RoleAdmin
		return false, db.UpdateUser(existing.ID, UserUpdate{UserRole: &role})
	}
	if _, err := db.CreateUser(account, passwordHash, account, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// CountAdmins returns the number of users with the admin role.
func (db *ServerDB) CountAdmins() (int64, error) {
	var n int64
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM users WHERE user_role = ?`, string(models.RoleAdmin)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
