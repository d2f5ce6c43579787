package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

// appNameFromPromptLen is how many runes of the prompt name an unnamed app.
const appNameFromPromptLen = 12

// AppAddRequest is the body of POST /app/add.
type AppAddRequest struct {
	AppName    string `json:"appName"`
	InitPrompt string `json:"initPrompt"`
	Cover      string `json:"cover"`
}

// AppQueryRequest is the body of POST /app/my/list/page/vo.
type AppQueryRequest struct {
	PageNum  int64  `json:"pageNum"`
	PageSize int64  `json:"pageSize"`
	AppName  string `json:"appName"`
}

// AppStatusUpdateRequest is the body of POST /app/update/status.
type AppStatusUpdateRequest struct {
	ID        int64  `json:"id"`
	GenStatus string `json:"genStatus"`
}

func (s *Server) handleAddApp(w http.ResponseWriter, r *http.Request) {
	var req AppAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	prompt := strings.TrimSpace(req.InitPrompt)
	if prompt == "" {
		writeError(w, CodeParamsError, "初始化 prompt 不能为空")
		return
	}
	name := strings.TrimSpace(req.AppName)
	if name == "" {
		runes := []rune(prompt)
		name = string(runes[:min(len(runes), appNameFromPromptLen)])
	}

	user := getLoginUser(r.Context())
	app, err := s.store.CreateApp(user.ID, name, strings.TrimSpace(req.Cover), prompt)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	logFor(r.Context()).Info("app created", "app_id", app.ID)
	writeOK(w, app.ID)
}

func (s *Server) handleListMyApps(w http.ResponseWriter, r *http.Request) {
	var req AppQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.PageSize > serverdb.MaxAppPageSize {
		writeError(w, CodeParamsError, "每页最多查询 20 个应用")
		return
	}

	user := getLoginUser(r.Context())
	page, err := s.store.ListAppsByUser(user.ID, serverdb.AppQuery{
		PageNum:  req.PageNum,
		PageSize: req.PageSize,
		AppName:  req.AppName,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	owner := user.ToVO()
	out := models.Page[*models.AppVO]{
		Records:    make([]*models.AppVO, 0, len(page.Records)),
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		TotalRow:   page.TotalRow,
	}
	for _, a := range page.Records {
		out.Records = append(out.Records, &models.AppVO{App: *a, User: owner})
	}
	writeOK(w, out)
}

func (s *Server) handleGetAppVO(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	app, err := s.store.GetApp(id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if app == nil {
		writeError(w, CodeNotFoundError, "应用不存在")
		return
	}
	user := getLoginUser(r.Context())
	if app.UserID != user.ID && !user.IsAdmin() {
		writeError(w, CodeNoAuthError, "")
		return
	}

	owner, err := s.store.GetUserByID(app.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, &models.AppVO{App: *app, User: owner.ToVO()})
}

func (s *Server) handleUpdateAppStatus(w http.ResponseWriter, r *http.Request) {
	var req AppStatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.ID <= 0 {
		writeError(w, CodeParamsError, "")
		return
	}
	status, ok := models.AppGenStatusFromValue(req.GenStatus)
	if !ok {
		writeError(w, CodeParamsError, "生成状态无效")
		return
	}
	if err := s.store.UpdateAppGenStatus(req.ID, status); err != nil {
		if errors.Is(err, serverdb.ErrNotFound) {
			writeError(w, CodeNotFoundError, "应用不存在")
			return
		}
		writeErr(w, r, err)
		return
	}
	writeOK(w, true)
}
