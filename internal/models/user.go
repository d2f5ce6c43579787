package models

import "time"

// UserRole is the access role stored on a user.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// IsValid reports whether r is a known role.
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the persisted account record. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	UserAccount  string    `json:"userAccount"`
	PasswordHash string    `json:"-"`
	UserName     string    `json:"userName"`
	UserAvatar   string    `json:"userAvatar"`
	UserProfile  string    `json:"userProfile"`
	UserRole     UserRole  `json:"userRole"`
	CreateTime   time.Time `json:"createTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.UserRole == RoleAdmin
}

// LoginUser is the desensitized view of the logged-in user. A nil *LoginUser
// or one with a zero ID means "not logged in".
type LoginUser struct {
	ID          int64     `json:"id"`
	UserAccount string    `json:"userAccount"`
	UserName    string    `json:"userName"`
	UserAvatar  string    `json:"userAvatar"`
	UserProfile string    `json:"userProfile"`
	UserRole    UserRole  `json:"userRole"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
}

// LoggedIn reports whether u represents an authenticated user.
func (u *LoginUser) LoggedIn() bool {
	return u != nil && u.ID != 0
}

// IsAdmin reports whether u is logged in with the admin role.
func (u *LoginUser) IsAdmin() bool {
	return u.LoggedIn() && u.UserRole == RoleAdmin
}

// UserVO is the public view of a user shown in lists.
type UserVO struct {
	ID          int64     `json:"id"`
	UserAccount string    `json:"userAccount"`
	UserName    string    `json:"userName"`
	UserAvatar  string    `json:"userAvatar"`
	UserProfile string    `json:"userProfile"`
	UserRole    UserRole  `json:"userRole"`
	CreateTime  time.Time `json:"createTime"`
}

// ToLoginUser strips private fields for the session owner.
func (u *User) ToLoginUser() *LoginUser {
	if u == nil {
		return nil
	}
	return &LoginUser{
		ID:          u.ID,
		UserAccount: u.UserAccount,
		UserName:    u.UserName,
		UserAvatar:  u.UserAvatar,
		UserProfile: u.UserProfile,
		UserRole:    u.UserRole,
		CreateTime:  u.CreateTime,
		UpdateTime:  u.UpdateTime,
	}
}

// ToVO strips private fields for list views.
func (u *User) ToVO() *UserVO {
	if u == nil {
		return nil
	}
	return &UserVO{
		ID:          u.ID,
		UserAccount: u.UserAccount,
		UserName:    u.UserName,
		UserAvatar:  u.UserAvatar,
		UserProfile: u.UserProfile,
		UserRole:    u.UserRole,
		CreateTime:  u.CreateTime,
	}
}
