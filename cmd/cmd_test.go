package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/uloaix/aicode/internal/api"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/clientconfig"
	"github.com/uloaix/aicode/internal/output"
	"github.com/uloaix/aicode/internal/serverdb"
)

// setupCLI points the client config at a temp dir and starts a real server.
// It returns the server URL and the config dir.
func setupCLI(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AICODE_CONFIG_DIR", dir)
	t.Setenv("AICODE_SERVER_URL", "")
	t.Setenv("AICODE_TOKEN", "")
	t.Setenv("AICODE_TIMEOUT", "")

	store, err := serverdb.Open("", filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	srv, err := api.NewServer(api.Config{
		RateLimitAuth: 100000,
		AdminAccount:  "admin",
		AdminPassword: "adminpass1",
	}, store)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})

	if err := clientconfig.Save(dir, &clientconfig.Config{ServerURL: ts.URL}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return ts.URL, dir
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIWithInput(t, "", args...)
}

// runCLIWithInput is runCLI with input piped to the prompts.
func runCLIWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	stdin = strings.NewReader(input)
	stdinReader = nil

	var buf bytes.Buffer
	prev := output.Stdout
	output.Stdout = &buf
	defer func() { output.Stdout = prev }()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	err := rootCmd.Execute()
	return ansi.Strip(buf.String()), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("aicode %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func TestRegisterLoginWhoamiLogout(t *testing.T) {
	serverURL, dir := setupCLI(t)

	mustRun(t, "register", "--account", "alice", "--password", "password123")
	out := mustRun(t, "login", "--account", "alice", "--password", "password123")
	if !strings.Contains(out, "登录成功") {
		t.Errorf("login output = %q", out)
	}

	auth, err := clientconfig.LoadAuth(dir)
	if err != nil || auth == nil || auth.Token == "" {
		t.Fatalf("auth not saved: %+v %v", auth, err)
	}
	if auth.ServerURL != serverURL || auth.UserAccount != "alice" {
		t.Errorf("auth = %+v", auth)
	}

	who := decode[map[string]any](t, mustRun(t, "whoami", "--json"))
	if who["userAccount"] != "alice" {
		t.Errorf("whoami = %v", who)
	}

	mustRun(t, "logout")
	if auth, _ := clientconfig.LoadAuth(dir); auth != nil {
		t.Errorf("auth still stored after logout: %+v", auth)
	}
	if out := mustRun(t, "whoami"); !strings.Contains(out, "Not logged in.") {
		t.Errorf("whoami after logout = %q", out)
	}
}

func TestRegisterPromptsForConfirmation(t *testing.T) {
	setupCLI(t)

	// Each prompt reads its own line of piped input.
	out, err := runCLIWithInput(t, "bob1\npassword123\npassword123\n", "register")
	if err != nil {
		t.Fatalf("register via prompts: %v\n%s", err, out)
	}
	if !strings.Contains(out, "注册成功") {
		t.Errorf("output = %q", out)
	}
	mustRun(t, "login", "--account", "bob1", "--password", "password123")
}

func TestLoginWrongPassword(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "login", "--account", "admin", "--password", "wrongpass1", "--json")
	if !errors.Is(err, client.ErrParams) {
		t.Fatalf("err = %v, want ErrParams", err)
	}
	got := decode[map[string]map[string]string](t, out)
	if got["error"]["code"] != output.ErrCodeInvalidInput || got["error"]["message"] != "用户不存在或密码错误" {
		t.Errorf("error = %v", got)
	}
}

func TestOpenLoggedOutRedirectsToLogin(t *testing.T) {
	setupCLI(t)
	res := decode[openResult](t, mustRun(t, "open", "/admin/userManage", "--json"))

	if res.Location != "/user/login?redirect=/admin/userManage" || res.Page != "login" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Toasts) != 1 || res.Toasts[0] != "请先登录" {
		t.Errorf("toasts = %v", res.Toasts)
	}
	if res.Unreachable {
		t.Error("reachable server reported unreachable")
	}
}

func TestOpenAsUserAndAdmin(t *testing.T) {
	setupCLI(t)
	mustRun(t, "register", "--account", "carol", "--password", "password123")
	mustRun(t, "login", "--account", "carol", "--password", "password123")

	res := decode[openResult](t, mustRun(t, "open", "/admin/userManage", "--json"))
	if res.Location != "/" || len(res.Toasts) != 1 || res.Toasts[0] != "无权限访问，仅管理员可访问" {
		t.Errorf("user result = %+v", res)
	}

	mustRun(t, "login", "--account", "admin", "--password", "adminpass1")
	res = decode[openResult](t, mustRun(t, "open", "/admin/userManage", "--json"))
	if res.Page != "userManage" || len(res.Redirects) != 0 || len(res.Toasts) != 0 {
		t.Errorf("admin result = %+v", res)
	}
}

func TestOpenUnknownPage(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "open", "/missing")
	if err == nil {
		t.Fatal("expected error for unknown page")
	}
	if !strings.Contains(out, "页面不存在") {
		t.Errorf("output = %q", out)
	}
}

func TestOpenServerUnreachable(t *testing.T) {
	_, dir := setupCLI(t)
	ts := httptest.NewServer(nil)
	deadURL := ts.URL
	ts.Close()
	if err := clientconfig.Save(dir, &clientconfig.Config{ServerURL: deadURL, Timeout: "2s"}); err != nil {
		t.Fatal(err)
	}

	res := decode[openResult](t, mustRun(t, "open", "/admin/userManage", "--json"))
	if !res.Unreachable {
		t.Error("unreachable = false")
	}
	if res.Page != "login" {
		t.Errorf("page = %q, want login", res.Page)
	}
}

func TestOpenServerHangs(t *testing.T) {
	_, dir := setupCLI(t)
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })
	if err := clientconfig.Save(dir, &clientconfig.Config{ServerURL: ts.URL}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AICODE_TOKEN", "sometoken")

	res := decode[openResult](t, mustRun(t, "open", "/admin/userManage", "--json", "--timeout", "300ms"))
	if !res.Unreachable {
		t.Error("unreachable = false")
	}
	if res.Page != "login" {
		t.Errorf("page = %q, want login", res.Page)
	}
	if !strings.HasPrefix(res.Location, "/user/login?redirect=") {
		t.Errorf("location = %q", res.Location)
	}
}

func TestRoutesJSON(t *testing.T) {
	setupCLI(t)
	rows := decode[[]map[string]string](t, mustRun(t, "routes", "--json"))
	if len(rows) != 5 {
		t.Fatalf("rows = %d", len(rows))
	}
	for _, r := range rows {
		want := "public"
		if r["path"] == "/admin/userManage" {
			want = "admin"
		}
		if r["access"] != want {
			t.Errorf("%s access = %s, want %s", r["path"], r["access"], want)
		}
	}
}

func TestStatusCommand(t *testing.T) {
	setupCLI(t)
	tests := map[string]string{
		"ready":      "已完成",
		"generating": "生成中",
		"failed":     "失败",
		"bogus":      "未生成",
	}
	for value, label := range tests {
		meta := decode[map[string]string](t, mustRun(t, "status", value, "--json"))
		if meta["label"] != label {
			t.Errorf("status %s label = %q, want %q", value, meta["label"], label)
		}
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "not_generated") || !strings.Contains(out, "失败") {
		t.Errorf("status list = %q", out)
	}
}

func TestConfigSetGet(t *testing.T) {
	setupCLI(t)
	mustRun(t, "config", "set", "timeout", "5s")
	if out := strings.TrimSpace(mustRun(t, "config", "get", "timeout")); out != "5s" {
		t.Errorf("timeout = %q", out)
	}
	mustRun(t, "config", "set", "start_path", "user/center")
	if out := strings.TrimSpace(mustRun(t, "config", "get", "start_path")); out != "/user/center" {
		t.Errorf("start_path = %q", out)
	}
	if _, err := runCLI(t, "config", "set", "timeout", "soon"); err == nil {
		t.Error("invalid timeout accepted")
	}
	if _, err := runCLI(t, "config", "set", "nope", "x"); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestAdminUsersAndApps(t *testing.T) {
	setupCLI(t)
	mustRun(t, "register", "--account", "dave", "--password", "password123")

	if _, err := runCLI(t, "users", "--json"); !errors.Is(err, client.ErrNotLogin) {
		t.Errorf("users without session: err = %v", err)
	}

	mustRun(t, "login", "--account", "admin", "--password", "adminpass1")
	page := decode[struct {
		Records  []map[string]any `json:"records"`
		TotalRow int64            `json:"totalRow"`
	}](t, mustRun(t, "users", "--json"))
	if page.TotalRow != 2 {
		t.Errorf("users total = %d, want 2", page.TotalRow)
	}

	created := decode[map[string]int64](t, mustRun(t, "users", "add", "erin", "--json"))
	erinID := created["id"]
	mustRun(t, "users", "role", fmt.Sprint(erinID), "admin")
	u := decode[map[string]any](t, mustRun(t, "users", "show", fmt.Sprint(erinID), "--json"))
	if u["userRole"] != "admin" {
		t.Errorf("erin role = %v", u["userRole"])
	}
	mustRun(t, "users", "delete", fmt.Sprint(erinID))
	if _, err := runCLI(t, "users", "show", fmt.Sprint(erinID)); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("show deleted: err = %v", err)
	}

	app := decode[map[string]int64](t, mustRun(t, "apps", "add", "--prompt", "做一个计算器", "--json"))
	appID := fmt.Sprint(app["id"])
	mustRun(t, "apps", "set-status", appID, "ready")

	apps := decode[struct {
		Records []struct {
			GenStatus string `json:"genStatus"`
		} `json:"records"`
	}](t, mustRun(t, "apps", "--json"))
	if len(apps.Records) != 1 || apps.Records[0].GenStatus != "ready" {
		t.Errorf("apps = %+v", apps)
	}
	if out := mustRun(t, "apps"); !strings.Contains(out, "[已完成]") {
		t.Errorf("apps output = %q", out)
	}

	if _, err := runCLI(t, "apps", "set-status", appID, "done"); err == nil {
		t.Error("invalid status accepted")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&client.APIError{Code: 40100}, output.ErrCodeNotLogin},
		{&client.APIError{Code: 40101}, output.ErrCodeNoAuth},
		{&client.APIError{Code: 40300}, output.ErrCodeNoAuth},
		{&client.APIError{Code: 40400}, output.ErrCodeNotFound},
		{&client.APIError{Code: 40000}, output.ErrCodeInvalidInput},
		{&client.APIError{Code: 42900}, output.ErrCodeRateLimited},
		{&client.APIError{Code: 50000}, output.ErrCodeServerError},
		{errors.New("dial tcp: refused"), output.ErrCodeUnreachable},
	}
	for _, tc := range tests {
		if got := errorCode(tc.err); got != tc.want {
			t.Errorf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("用户", 6); got != "用户  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("toolong", 3); got != "toolong" {
		t.Errorf("padRight = %q", got)
	}
}
