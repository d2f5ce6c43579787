package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/uloaix/aicode/internal/crypto"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

// TestHarness wraps a full Server with a real HTTP listener for integration tests.
type TestHarness struct {
	t       *testing.T
	Server  *Server
	Store   *serverdb.ServerDB
	BaseURL string
	client  *http.Client
	httpSrv *httptest.Server
}

// envelope is BaseResponse with the payload left raw for typed decoding.
type envelope struct {
	Code    ErrorCode       `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// newTestHarness creates a TestHarness with a real HTTP server on a random port.
func newTestHarness(t *testing.T, opts ...func(*Config)) *TestHarness {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "server.db")
	store, err := serverdb.Open("", dbPath)
	if err != nil {
		t.Fatalf("open server db: %v", err)
	}

	cfg := Config{
		ListenAddr:    ":0",
		DBPath:        dbPath,
		RateLimitAuth: 100000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := NewServer(cfg, store)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	httpSrv := httptest.NewServer(srv.routes())

	h := &TestHarness{
		t:       t,
		Server:  srv,
		Store:   store,
		BaseURL: httpSrv.URL,
		client:  &http.Client{},
		httpSrv: httpSrv,
	}

	t.Cleanup(func() {
		httpSrv.Close()
		store.Close()
	})

	return h
}

// Do sends an HTTP request and returns the response. Caller must close
// resp.Body unless passing it to an assertion helper.
func (h *TestHarness) Do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		rdr = &buf
	}

	req, err := http.NewRequest(method, h.BaseURL+path, rdr)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("do request %s %s: %v", method, path, err)
	}
	return resp
}

// DoOK sends a request, requires a success envelope and decodes its data into out.
func (h *TestHarness) DoOK(method, path, token string, body any, out any) {
	h.t.Helper()
	env := AssertCode(h.t, h.Do(method, path, token, body), http.StatusOK, CodeSuccess)
	if out == nil {
		return
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		h.t.Fatalf("decode data of %s %s: %v (%s)", method, path, err, env.Data)
	}
}

// Register creates an account through the API and returns its id.
func (h *TestHarness) Register(account, password string) int64 {
	h.t.Helper()
	var id int64
	h.DoOK("POST", "/user/register", "", UserRegisterRequest{
		UserAccount: account, UserPassword: password, CheckPassword: password,
	}, &id)
	return id
}

// Login logs in through the API and returns the session token.
func (h *TestHarness) Login(account, password string) string {
	h.t.Helper()
	var lr LoginResponse
	h.DoOK("POST", "/user/login", "", UserLoginRequest{UserAccount: account, UserPassword: password}, &lr)
	if lr.Token == "" {
		h.t.Fatal("login returned no token")
	}
	return lr.Token
}

// CreateUser registers and logs in a regular user.
func (h *TestHarness) CreateUser(account string) (int64, string) {
	h.t.Helper()
	id := h.Register(account, "password123")
	return id, h.Login(account, "password123")
}

// CreateAdmin inserts an admin directly in the store and logs it in.
func (h *TestHarness) CreateAdmin(account string) (int64, string) {
	h.t.Helper()
	hash, err := crypto.HashPassword("adminpass1")
	if err != nil {
		h.t.Fatal(err)
	}
	u, err := h.Store.CreateUser(account, hash, account, models.RoleAdmin)
	if err != nil {
		h.t.Fatalf("create admin: %v", err)
	}
	return u.ID, h.Login(account, "adminpass1")
}

// --- Response assertion helpers ---

// AssertCode checks HTTP status and envelope code, closes the body and
// returns the decoded envelope.
func AssertCode(t *testing.T, resp *http.Response, status int, code ErrorCode) envelope {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d: %s", status, resp.StatusCode, body)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, body)
	}
	if env.Code != code {
		t.Fatalf("expected code %d, got %d: %s", code, env.Code, env.Message)
	}
	return env
}

// AssertCORSHeaders checks the response has the expected CORS origin header.
func AssertCORSHeaders(t *testing.T, resp *http.Response, expectedOrigin string) {
	t.Helper()
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != expectedOrigin {
		t.Fatalf("expected Access-Control-Allow-Origin %q, got %q", expectedOrigin, origin)
	}
}
