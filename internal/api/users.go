package api

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/uloaix/aicode/internal/crypto"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

const (
	minAccountLen  = 4
	minPasswordLen = 8
)

// UserRegisterRequest is the body of POST /user/register.
type UserRegisterRequest struct {
	UserAccount   string `json:"userAccount"`
	UserPassword  string `json:"userPassword"`
	CheckPassword string `json:"checkPassword"`
}

// UserLoginRequest is the body of POST /user/login.
type UserLoginRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
}

// LoginResponse is the logged-in user plus the session token issued for it.
type LoginResponse struct {
	models.LoginUser
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserUpdateMyRequest is the body of POST /user/update/my.
type UserUpdateMyRequest struct {
	UserName    string `json:"userName"`
	UserAvatar  string `json:"userAvatar"`
	UserProfile string `json:"userProfile"`
}

func validateAccount(account string) error {
	if utf8.RuneCountInString(account) < minAccountLen {
		return bizError(CodeParamsError, "用户账号过短")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return bizError(CodeParamsError, "用户密码过短")
	}
	return nil
}

func isBlank(ss ...string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			return true
		}
	}
	return false
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req UserRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := s.register(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.metrics.RecordRegistration()
	s.recordAuthEvent(r, req.UserAccount, serverdb.AuthEventRegistered)
	writeOK(w, id)
}

func (s *Server) register(req UserRegisterRequest) (int64, error) {
	if isBlank(req.UserAccount, req.UserPassword, req.CheckPassword) {
		return 0, bizError(CodeParamsError, "参数为空")
	}
	if err := validateAccount(req.UserAccount); err != nil {
		return 0, err
	}
	if err := validatePassword(req.UserPassword); err != nil {
		return 0, err
	}
	if err := validatePassword(req.CheckPassword); err != nil {
		return 0, err
	}
	if req.UserPassword != req.CheckPassword {
		return 0, bizError(CodeParamsError, "两次输入的密码不一致")
	}

	hash, err := crypto.HashPassword(req.UserPassword)
	if err != nil {
		return 0, err
	}
	u, err := s.store.CreateUser(req.UserAccount, hash, "无名", models.RoleUser)
	if errors.Is(err, serverdb.ErrAccountExists) {
		return 0, bizError(CodeParamsError, "账号重复")
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req UserLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if isBlank(req.UserAccount, req.UserPassword) {
		writeError(w, CodeParamsError, "参数为空")
		return
	}
	if err := validateAccount(req.UserAccount); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := validatePassword(req.UserPassword); err != nil {
		writeErr(w, r, err)
		return
	}

	user, err := s.store.GetUserByAccount(req.UserAccount)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	hash := crypto.DummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := crypto.VerifyPassword(req.UserPassword, hash)
	if err != nil {
		logFor(r.Context()).Error("verify password", "account", req.UserAccount, "err", err)
		ok = false
	}
	ok = ok && user != nil
	s.metrics.RecordLogin(ok)
	if !ok {
		s.recordAuthEvent(r, req.UserAccount, serverdb.AuthEventLoginFailed)
		writeError(w, CodeParamsError, "用户不存在或密码错误")
		return
	}

	token, sess, err := s.store.CreateSession(user.ID, s.config.SessionTTL)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.recordAuthEvent(r, user.UserAccount, serverdb.AuthEventLogin)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w, LoginResponse{
		LoginUser: *user.ToLoginUser(),
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) handleGetLoginUser(w http.ResponseWriter, r *http.Request) {
	writeOK(w, getLoginUser(r.Context()).ToLoginUser())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteSession(getSessionToken(r.Context())); err != nil {
		writeErr(w, r, err)
		return
	}
	s.recordAuthEvent(r, getLoginUser(r.Context()).UserAccount, serverdb.AuthEventLogout)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
	})
	writeOK(w, true)
}

func (s *Server) handleUpdateMy(w http.ResponseWriter, r *http.Request) {
	var req UserUpdateMyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if isBlank(req.UserName) {
		writeError(w, CodeParamsError, "用户名不能为空")
		return
	}
	user := getLoginUser(r.Context())
	name := strings.TrimSpace(req.UserName)
	err := s.store.UpdateUser(user.ID, serverdb.UserUpdate{
		UserName:    &name,
		UserAvatar:  &req.UserAvatar,
		UserProfile: &req.UserProfile,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, true)
}

// recordAuthEvent writes an audit row; failures are logged, never surfaced.
func (s *Server) recordAuthEvent(r *http.Request, account, eventType string) {
	if err := s.store.InsertAuthEvent(account, eventType, clientIP(r)); err != nil {
		logFor(r.Context()).Error("record auth event", "type", eventType, "err", err)
	}
}
