package router

import (
	"net/url"
	"strings"
)

// PageID names the page a route renders.
type PageID string

const (
	PageHome       PageID = "home"
	PageLogin      PageID = "login"
	PageRegister   PageID = "register"
	PageUserCenter PageID = "userCenter"
	PageUserManage PageID = "userManage"
	PageNotFound   PageID = "notFound"
)

// Well-known paths.
const (
	PathHome       = "/"
	PathLogin      = "/user/login"
	PathRegister   = "/user/register"
	PathUserCenter = "/user/center"
	PathUserManage = "/admin/userManage"
)

// Route maps a path to a page. Routes are fixed at startup.
type Route struct {
	Path string
	Name string
	Page PageID
}

// Table is an immutable, ordered route table.
type Table struct {
	routes []Route
	byPath map[string]Route
}

// NewTable builds a table. Later duplicates of a path are ignored.
func NewTable(routes ...Route) *Table {
	t := &Table{byPath: make(map[string]Route, len(routes))}
	for _, r := range routes {
		if _, dup := t.byPath[r.Path]; dup {
			continue
		}
		t.routes = append(t.routes, r)
		t.byPath[r.Path] = r
	}
	return t
}

// DefaultTable returns the application's pages.
func DefaultTable() *Table {
	return NewTable(
		Route{Path: PathHome, Name: "主页", Page: PageHome},
		Route{Path: PathLogin, Name: "用户登录", Page: PageLogin},
		Route{Path: PathRegister, Name: "用户注册", Page: PageRegister},
		Route{Path: PathUserCenter, Name: "个人中心", Page: PageUserCenter},
		Route{Path: PathUserManage, Name: "用户管理", Page: PageUserManage},
	)
}

// Routes lists routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match resolves a full path (query and fragment ignored) to its route.
// A single trailing slash is tolerated.
func (t *Table) Match(fullPath string) (Route, bool) {
	p := pathOf(fullPath)
	if r, ok := t.byPath[p]; ok {
		return r, true
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		r, ok := t.byPath[strings.TrimSuffix(p, "/")]
		return r, ok
	}
	return Route{Path: p, Name: "404", Page: PageNotFound}, false
}

// NormalizeLocation makes to an absolute full path: blank becomes "/" and a
// missing leading slash is added.
func NormalizeLocation(to string) string {
	to = strings.TrimSpace(to)
	if to == "" {
		return PathHome
	}
	if !strings.HasPrefix(to, "/") {
		to = "/" + to
	}
	return to
}

// pathOf strips query and fragment from a full path.
func pathOf(fullPath string) string {
	if i := strings.IndexAny(fullPath, "?#"); i >= 0 {
		return fullPath[:i]
	}
	return fullPath
}

// Query returns the parsed query of a full path.
func Query(fullPath string) url.Values {
	p := fullPath
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p = p[:i]
	}
	i := strings.IndexByte(p, '?')
	if i < 0 {
		return url.Values{}
	}
	v, _ := url.ParseQuery(p[i+1:])
	if v == nil {
		v = url.Values{}
	}
	return v
}
