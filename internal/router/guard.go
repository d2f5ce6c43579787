package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/session"
)

// AdminPrefix guards every full path starting with it.
const AdminPrefix = "/admin"

// Notification messages shown when the guard redirects.
const (
	MsgLoginRequired = "请先登录"
	MsgAdminOnly     = "无权限访问，仅管理员可访问"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// Decision is the guard's verdict. An empty Redirect allows the navigation.
type Decision struct {
	Redirect string
}

// Allowed reports whether navigation may proceed to the target.
func (d Decision) Allowed() bool { return d.Redirect == "" }

// Allow is the pass-through decision.
var Allow = Decision{}

// RequiresAdmin reports whether fullPath is under the admin prefix.
func RequiresAdmin(fullPath string) bool {
	return strings.HasPrefix(fullPath, AdminPrefix)
}

// queryValueEscaper escapes only what would break a query value, keeping
// slashes readable.
var queryValueEscaper = strings.NewReplacer(
	"%", "%25",
	"&", "%26",
	"#", "%23",
	"+", "%2B",
	" ", "%20",
)

// LoginRedirect returns the login location that returns to fullPath after
// a successful login.
func LoginRedirect(fullPath string) string {
	return PathLogin + "?redirect=" + queryValueEscaper.Replace(fullPath)
}

// RedirectTarget extracts the post-login destination from a login location,
// defaulting to home. Only local absolute paths are honored.
func RedirectTarget(loginLocation string) string {
	r := Query(loginLocation).Get("redirect")
	if !strings.HasPrefix(r, "/") || strings.HasPrefix(r, "//") {
		return PathHome
	}
	return r
}

// Evaluate applies the access policy to a target full path for the given
// session user (nil when logged out). It returns the decision and the
// message to show when redirecting.
func Evaluate(fullPath string, user *models.LoginUser) (Decision, string) {
	if !RequiresAdmin(fullPath) {
		return Allow, ""
	}
	if !user.LoggedIn() {
		return Decision{Redirect: LoginRedirect(fullPath)}, MsgLoginRequired
	}
	if user.UserRole != models.RoleAdmin {
		return Decision{Redirect: PathHome}, MsgAdminOnly
	}
	return Allow, ""
}

// Guard runs before every navigation. The first check waits for the session
// store's initial fetch; no decision is made before it resolves.
type Guard struct {
	store    *session.Store
	notifier Notifier
	logger   *slog.Logger
}

// NewGuard creates a guard over store. A nil notifier discards messages.
func NewGuard(store *session.Store, notifier Notifier, logger *slog.Logger) *Guard {
	if notifier == nil {
		notifier = NotifierFunc(func(Level, string) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: store, notifier: notifier, logger: logger}
}

// Check decides whether navigation from one full path to another may
// proceed. It returns an error only when ctx ends while waiting for the
// initial session fetch.
func (g *Guard) Check(ctx context.Context, to, from string) (Decision, error) {
	if err := g.store.Ready(ctx); err != nil {
		return Decision{}, fmt.Errorf("await session: %w", err)
	}

	user := g.store.LoginUser()
	d, msg := Evaluate(to, user)
	if !d.Allowed() {
		g.logger.Debug("navigation redirected", "from", from, "to", to, "redirect", d.Redirect)
		g.notifier.Notify(LevelError, msg)
	}
	return d, nil
}
