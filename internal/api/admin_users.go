package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/uloaix/aicode/internal/crypto"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

// DefaultUserPassword is assigned to accounts created by an admin.
const DefaultUserPassword = "12345678"

// UserAddRequest is the body of POST /user/add.
type UserAddRequest struct {
	UserName    string `json:"userName"`
	UserAccount string `json:"userAccount"`
	UserAvatar  string `json:"userAvatar"`
	UserProfile string `json:"userProfile"`
	UserRole    string `json:"userRole"`
}

// UserUpdateRequest is the body of POST /user/update. Absent fields are kept.
type UserUpdateRequest struct {
	ID          int64   `json:"id"`
	UserName    *string `json:"userName"`
	UserAvatar  *string `json:"userAvatar"`
	UserProfile *string `json:"userProfile"`
	UserRole    *string `json:"userRole"`
}

// DeleteRequest is the body of delete endpoints.
type DeleteRequest struct {
	ID int64 `json:"id"`
}

// UserQueryRequest is the body of POST /user/list/page/vo.
type UserQueryRequest struct {
	PageNum     int64  `json:"pageNum"`
	PageSize    int64  `json:"pageSize"`
	UserAccount string `json:"userAccount"`
	UserName    string `json:"userName"`
	UserRole    string `json:"userRole"`
	SortField   string `json:"sortField"`
	SortOrder   string `json:"sortOrder"`
}

// queryID parses a positive int64 query parameter.
func queryID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, bizError(CodeParamsError, "")
	}
	return id, nil
}

func parseRole(v string) (models.UserRole, error) {
	if v == "" {
		return models.RoleUser, nil
	}
	role := models.UserRole(v)
	if !role.IsValid() {
		return "", bizError(CodeParamsError, "用户角色无效")
	}
	return role, nil
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req UserAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if isBlank(req.UserAccount) {
		writeError(w, CodeParamsError, "参数为空")
		return
	}
	if err := validateAccount(req.UserAccount); err != nil {
		writeErr(w, r, err)
		return
	}
	role, err := parseRole(req.UserRole)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	hash, err := crypto.HashPassword(DefaultUserPassword)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := s.store.CreateUser(req.UserAccount, hash, req.UserName, role)
	if errors.Is(err, serverdb.ErrAccountExists) {
		writeError(w, CodeParamsError, "账号重复")
		return
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if req.UserAvatar != "" || req.UserProfile != "" {
		if err := s.store.UpdateUser(u.ID, serverdb.UserUpdate{
			UserAvatar:  &req.UserAvatar,
			UserProfile: &req.UserProfile,
		}); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	logFor(r.Context()).Info("user added", "new_uid", u.ID, "role", role)
	writeOK(w, u.ID)
}

// loadUser fetches a user by the "id" query parameter.
func (s *Server) loadUser(r *http.Request) (*models.User, error) {
	id, err := queryID(r, "id")
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, bizError(CodeNotFoundError, "")
	}
	return u, nil
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.loadUser(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, u)
}

func (s *Server) handleGetUserVO(w http.ResponseWriter, r *http.Request) {
	u, err := s.loadUser(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, u.ToVO())
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.ID <= 0 {
		writeError(w, CodeParamsError, "")
		return
	}
	if req.ID == getLoginUser(r.Context()).ID {
		writeError(w, CodeOperationError, "不能删除当前登录账号")
		return
	}
	if err := s.store.DeleteUser(req.ID); err != nil {
		if errors.Is(err, serverdb.ErrNotFound) {
			writeError(w, CodeNotFoundError, "")
			return
		}
		writeErr(w, r, err)
		return
	}
	logFor(r.Context()).Info("user deleted", "target_uid", req.ID)
	writeOK(w, true)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.ID <= 0 {
		writeError(w, CodeParamsError, "")
		return
	}
	upd := serverdb.UserUpdate{
		UserName:    req.UserName,
		UserAvatar:  req.UserAvatar,
		UserProfile: req.UserProfile,
	}
	if req.UserRole != nil {
		role := models.UserRole(*req.UserRole)
		if !role.IsValid() {
			writeError(w, CodeParamsError, "用户角色无效")
			return
		}
		upd.UserRole = &role
	}
	if err := s.store.UpdateUser(req.ID, upd); err != nil {
		if errors.Is(err, serverdb.ErrNotFound) {
			writeError(w, CodeNotFoundError, "")
			return
		}
		writeErr(w, r, err)
		return
	}
	writeOK(w, true)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var req UserQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	page, err := s.store.ListUsers(serverdb.UserQuery{
		PageNum:     req.PageNum,
		PageSize:    req.PageSize,
		UserAccount: req.UserAccount,
		UserName:    req.UserName,
		UserRole:    req.UserRole,
		SortField:   req.SortField,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	out := models.Page[*models.UserVO]{
		Records:    make([]*models.UserVO, 0, len(page.Records)),
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		TotalRow:   page.TotalRow,
	}
	for _, u := range page.Records {
		out.Records = append(out.Records, u.ToVO())
	}
	writeOK(w, out)
}

func (s *Server) handleAuthEvents(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("userAccount")
	if account == "" {
		writeError(w, CodeParamsError, "userAccount is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 200 {
		limit = 200
	}
	events, err := s.store.RecentAuthEvents(account, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if events == nil {
		events = []serverdb.AuthEvent{}
	}
	writeOK(w, events)
}
