package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/session"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, fetch session.FetcherFunc) (*Router, *session.Store, *recordingNotifier) {
	t.Helper()
	store := session.New(fetch, discardLogger())
	n := &recordingNotifier{}
	return New(DefaultTable(), NewGuard(store, n, discardLogger())), store, n
}

func userWithRole(role models.UserRole) session.FetcherFunc {
	return func(context.Context) (*models.LoginUser, error) {
		return &models.LoginUser{ID: 7, UserAccount: "someone", UserRole: role}, nil
	}
}

func loggedOut(context.Context) (*models.LoginUser, error) { return nil, nil }

func TestTableMatch(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		path  string
		page  PageID
		found bool
	}{
		{"/", PageHome, true},
		{"/user/login", PageLogin, true},
		{"/user/login?redirect=/admin/userManage", PageLogin, true},
		{"/user/register", PageRegister, true},
		{"/user/center/", PageUserCenter, true},
		{"/admin/userManage#top", PageUserManage, true},
		{"/nope", PageNotFound, false},
	}
	for _, tt := range tests {
		r, ok := table.Match(tt.path)
		if ok != tt.found || r.Page != tt.page {
			t.Errorf("Match(%q) = %v, %v; want %v, %v", tt.path, r.Page, ok, tt.page, tt.found)
		}
	}
	if got := len(table.Routes()); got != 5 {
		t.Errorf("Routes() len = %d, want 5", got)
	}
}

func TestNewTableIgnoresDuplicates(t *testing.T) {
	table := NewTable(
		Route{Path: "/a", Name: "first", Page: PageHome},
		Route{Path: "/a", Name: "second", Page: PageLogin},
	)
	r, _ := table.Match("/a")
	if r.Name != "first" || len(table.Routes()) != 1 {
		t.Errorf("got %+v with %d routes", r, len(table.Routes()))
	}
}

func TestEvaluate(t *testing.T) {
	admin := &models.LoginUser{ID: 1, UserRole: models.RoleAdmin}
	user := &models.LoginUser{ID: 2, UserRole: models.RoleUser}
	zero := &models.LoginUser{}

	tests := []struct {
		name     string
		path     string
		user     *models.LoginUser
		redirect string
		msg      string
	}{
		{"public anonymous", "/user/center", nil, "", ""},
		{"home user", "/", user, "", ""},
		{"admin anonymous", "/admin/userManage", nil, "/user/login?redirect=/admin/userManage", MsgLoginRequired},
		{"admin zero id", "/admin/userManage", zero, "/user/login?redirect=/admin/userManage", MsgLoginRequired},
		{"admin as user", "/admin/userManage", user, "/", MsgAdminOnly},
		{"admin as admin", "/admin/userManage", admin, "", ""},
		{"prefix only", "/administrator", user, "/", MsgAdminOnly},
		{"unknown admin path", "/admin/x", admin, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, msg := Evaluate(tt.path, tt.user)
			if d.Redirect != tt.redirect || msg != tt.msg {
				t.Errorf("Evaluate = %q, %q; want %q, %q", d.Redirect, msg, tt.redirect, tt.msg)
			}
		})
	}
}

func TestLoginRedirectRoundTrip(t *testing.T) {
	for _, p := range []string{"/admin/userManage", "/admin/x?a=1&b=2", "/admin/a b#frag", "/admin/100%"} {
		loc := LoginRedirect(p)
		if got := RedirectTarget(loc); got != p {
			t.Errorf("RedirectTarget(%q) = %q, want %q", loc, got, p)
		}
	}
}

func TestRedirectTargetRejectsExternal(t *testing.T) {
	for _, loc := range []string{"/user/login", "/user/login?redirect=", "/user/login?redirect=https://evil.example", "/user/login?redirect=//evil.example"} {
		if got := RedirectTarget(loc); got != PathHome {
			t.Errorf("RedirectTarget(%q) = %q, want /", loc, got)
		}
	}
}

func TestNavigateAnonymousToAdmin(t *testing.T) {
	r, _, n := newTestRouter(t, loggedOut)

	res, err := r.Navigate(context.Background(), "/admin/userManage")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if res.Location != "/user/login?redirect=/admin/userManage" || res.Route.Page != PageLogin {
		t.Errorf("resolution = %+v", res)
	}
	if len(res.Redirects) != 1 {
		t.Errorf("redirects = %v", res.Redirects)
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != MsgLoginRequired {
		t.Errorf("notifications = %v", msgs)
	}
	if r.Current() != res.Location {
		t.Errorf("Current = %q", r.Current())
	}
}

func TestNavigateUserToAdmin(t *testing.T) {
	r, _, n := newTestRouter(t, userWithRole(models.RoleUser))

	res, err := r.Navigate(context.Background(), "/admin/userManage")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if res.Location != "/" || res.Route.Page != PageHome {
		t.Errorf("resolution = %+v", res)
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != MsgAdminOnly {
		t.Errorf("notifications = %v", msgs)
	}
}

func TestNavigateAdminAllowed(t *testing.T) {
	r, _, n := newTestRouter(t, userWithRole(models.RoleAdmin))

	res, err := r.Navigate(context.Background(), "/admin/userManage")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if res.Route.Page != PageUserManage || len(res.Redirects) != 0 || !res.Found {
		t.Errorf("resolution = %+v", res)
	}
	if msgs := n.messages(); len(msgs) != 0 {
		t.Errorf("notifications = %v", msgs)
	}
}

func TestNavigatePublicPathsPassThrough(t *testing.T) {
	r, _, n := newTestRouter(t, loggedOut)
	for _, p := range []string{"/", "/user/login", "/user/register", "/user/center", "/missing"} {
		res, err := r.Navigate(context.Background(), p)
		if err != nil {
			t.Fatalf("Navigate(%q): %v", p, err)
		}
		if res.Location != p || len(res.Redirects) != 0 {
			t.Errorf("Navigate(%q) = %+v", p, res)
		}
	}
	if len(n.messages()) != 0 {
		t.Errorf("unexpected notifications %v", n.messages())
	}
}

func TestNavigateNormalizes(t *testing.T) {
	r, _, _ := newTestRouter(t, loggedOut)
	res, err := r.Navigate(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Location != "/" {
		t.Errorf("Location = %q", res.Location)
	}
	res, _ = r.Navigate(context.Background(), "user/center")
	if res.Location != "/user/center" {
		t.Errorf("Location = %q", res.Location)
	}
}

func TestNavigateFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	r, _, _ := newTestRouter(t, func(context.Context) (*models.LoginUser, error) {
		calls.Add(1)
		return &models.LoginUser{ID: 1, UserRole: models.RoleAdmin}, nil
	})
	for range 5 {
		if _, err := r.Navigate(context.Background(), "/admin/userManage"); err != nil {
			t.Fatal(err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestNavigateWaitsForInitialFetch(t *testing.T) {
	release := make(chan struct{})
	r, _, _ := newTestRouter(t, func(context.Context) (*models.LoginUser, error) {
		<-release
		return &models.LoginUser{ID: 1, UserRole: models.RoleAdmin}, nil
	})

	done := make(chan Resolution, 1)
	go func() {
		res, _ := r.Navigate(context.Background(), "/admin/userManage")
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("navigation resolved before session fetch completed")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case res := <-done:
		if res.Route.Page != PageUserManage {
			t.Errorf("resolution = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("navigation did not resolve")
	}
}

func TestNavigateFetchErrorTreatedAsLoggedOut(t *testing.T) {
	r, store, _ := newTestRouter(t, func(context.Context) (*models.LoginUser, error) {
		return nil, errors.New("connection refused")
	})

	res, err := r.Navigate(context.Background(), "/admin/userManage")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if res.Route.Page != PageLogin {
		t.Errorf("resolution = %+v", res)
	}
	if store.FetchErr() == nil {
		t.Error("FetchErr() = nil, want the fetch error")
	}
}

func TestNavigateContextCanceled(t *testing.T) {
	r, _, _ := newTestRouter(t, func(context.Context) (*models.LoginUser, error) {
		time.Sleep(time.Second)
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Navigate(ctx, "/"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if r.Current() != "" {
		t.Errorf("Current = %q, want unchanged", r.Current())
	}
}

func TestNavigateRedirectLoop(t *testing.T) {
	store := session.New(session.FetcherFunc(loggedOut), discardLogger())
	g := NewGuard(store, nil, discardLogger())
	r := New(DefaultTable(), g)
	// No redirect budget: the first redirect fails the navigation.
	r.maxRedirects = 0

	if _, err := r.Navigate(context.Background(), "/admin/userManage"); !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("err = %v, want ErrTooManyRedirects", err)
	}
}
