// Package client is the HTTP client for the aicode server. Every call decodes
// the {code, data, message} envelope and maps business codes onto sentinel
// errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uloaix/aicode/internal/models"
)

// Sentinel errors for the server's business error classes.
var (
	ErrParams      = errors.New("invalid parameters")
	ErrNotLogin    = errors.New("not logged in")
	ErrNoAuth      = errors.New("no permission")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
)

// Envelope codes as sent by the server.
const (
	codeSuccess         = 0
	codeParamsError     = 40000
	codeNotLoginError   = 40100
	codeNoAuthError     = 40101
	codeForbiddenError  = 40300
	codeNotFoundError   = 40400
	codeTooManyRequests = 42900
)

// APIError is a non-success envelope. It unwraps to the matching sentinel so
// callers can use errors.Is.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeParamsError:
		return ErrParams
	case codeNotLoginError:
		return ErrNotLogin
	case codeNoAuthError:
		return ErrNoAuth
	case codeForbiddenError:
		return ErrForbidden
	case codeNotFoundError:
		return ErrNotFound
	case codeTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// Client is an HTTP client for the aicode server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client for baseURL authenticating with token (may be empty).
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// --- Request types (mirror internal/api, independently defined) ---

// RegisterRequest is the body for POST /user/register.
type RegisterRequest struct {
	UserAccount   string `json:"userAccount"`
	UserPassword  string `json:"userPassword"`
	CheckPassword string `json:"checkPassword"`
}

// LoginResponse is the logged-in user and the issued session token.
type LoginResponse struct {
	models.LoginUser
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UpdateMyRequest is the body for POST /user/update/my.
type UpdateMyRequest struct {
	UserName    string `json:"userName"`
	UserAvatar  string `json:"userAvatar"`
	UserProfile string `json:"userProfile"`
}

// AddUserRequest is the body for POST /user/add.
type AddUserRequest struct {
	UserName    string `json:"userName,omitempty"`
	UserAccount string `json:"userAccount"`
	UserAvatar  string `json:"userAvatar,omitempty"`
	UserProfile string `json:"userProfile,omitempty"`
	UserRole    string `json:"userRole,omitempty"`
}

// UpdateUserRequest is the body for POST /user/update. Nil fields are kept.
type UpdateUserRequest struct {
	ID          int64   `json:"id"`
	UserName    *string `json:"userName,omitempty"`
	UserAvatar  *string `json:"userAvatar,omitempty"`
	UserProfile *string `json:"userProfile,omitempty"`
	UserRole    *string `json:"userRole,omitempty"`
}

// UserQuery is the body for POST /user/list/page/vo.
type UserQuery struct {
	PageNum     int64  `json:"pageNum"`
	PageSize    int64  `json:"pageSize"`
	UserAccount string `json:"userAccount,omitempty"`
	UserName    string `json:"userName,omitempty"`
	UserRole    string `json:"userRole,omitempty"`
	SortField   string `json:"sortField,omitempty"`
	SortOrder   string `json:"sortOrder,omitempty"`
}

// AddAppRequest is the body for POST /app/add.
type AddAppRequest struct {
	AppName    string `json:"appName,omitempty"`
	InitPrompt string `json:"initPrompt"`
	Cover      string `json:"cover,omitempty"`
}

// AppQuery is the body for POST /app/my/list/page/vo.
type AppQuery struct {
	PageNum  int64  `json:"pageNum"`
	PageSize int64  `json:"pageSize"`
	AppName  string `json:"appName,omitempty"`
}

// HealthResponse is the data of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, "GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Account ---

// Register creates an account and returns its id.
func (c *Client) Register(ctx context.Context, account, password, checkPassword string) (int64, error) {
	var id int64
	err := c.do(ctx, "POST", "/user/register", RegisterRequest{
		UserAccount: account, UserPassword: password, CheckPassword: checkPassword,
	}, &id)
	return id, err
}

// Login authenticates and, on success, adopts the returned session token.
func (c *Client) Login(ctx context.Context, account, password string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"userAccount": account, "userPassword": password}
	if err := c.do(ctx, "POST", "/user/login", body, &resp); err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp, nil
}

// GetLoginUser returns the user the current token belongs to.
func (c *Client) GetLoginUser(ctx context.Context) (*models.LoginUser, error) {
	if c.Token == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Code: codeNotLoginError, Message: "no session token"}
	}
	var u models.LoginUser
	if err := c.do(ctx, "GET", "/user/get/login", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the current session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, "POST", "/user/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

// UpdateMy updates the caller's own profile.
func (c *Client) UpdateMy(ctx context.Context, req UpdateMyRequest) error {
	return c.do(ctx, "POST", "/user/update/my", req, nil)
}

// --- User management (admin) ---

// AddUser creates an account with the default password and returns its id.
func (c *Client) AddUser(ctx context.Context, req AddUserRequest) (int64, error) {
	var id int64
	err := c.do(ctx, "POST", "/user/add", req, &id)
	return id, err
}

// GetUser returns the public view of a user.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.UserVO, error) {
	var u models.UserVO
	if err := c.do(ctx, "GET", "/user/get/vo?id="+strconv.FormatInt(id, 10), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, "POST", "/user/delete", map[string]int64{"id": id}, nil)
}

// UpdateUser applies an admin edit to a user.
func (c *Client) UpdateUser(ctx context.Context, req UpdateUserRequest) error {
	return c.do(ctx, "POST", "/user/update", req, nil)
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, q UserQuery) (*models.Page[models.UserVO], error) {
	var page models.Page[models.UserVO]
	if err := c.do(ctx, "POST", "/user/list/page/vo", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// --- Apps ---

// AddApp creates an app from a prompt and returns its id.
func (c *Client) AddApp(ctx context.Context, req AddAppRequest) (int64, error) {
	var id int64
	err := c.do(ctx, "POST", "/app/add", req, &id)
	return id, err
}

// ListMyApps returns one page of the caller's apps.
func (c *Client) ListMyApps(ctx context.Context, q AppQuery) (*models.Page[models.AppVO], error) {
	var page models.Page[models.AppVO]
	if err := c.do(ctx, "POST", "/app/my/list/page/vo", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetApp returns an app with its owner.
func (c *Client) GetApp(ctx context.Context, id int64) (*models.AppVO, error) {
	var a models.AppVO
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.do(ctx, "GET", "/app/get/vo?"+q.Encode(), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAppStatus sets an app's generation status (admin).
func (c *Client) UpdateAppStatus(ctx context.Context, id int64, status models.AppGenStatus) error {
	body := map[string]any{"id": id, "genStatus": status}
	return c.do(ctx, "POST", "/app/update/status", body, nil)
}

// --- HTTP helpers ---

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if env.Code != codeSuccess {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if result != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return nil
}
