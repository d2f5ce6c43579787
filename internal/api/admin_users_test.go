package api

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newTestHarness(t)
	_, userToken := h.CreateUser("plainuser")

	routes := []struct {
		method, path string
		body         any
	}{
		{"POST", "/user/add", UserAddRequest{UserAccount: "newbie"}},
		{"GET", "/user/get?id=1", nil},
		{"GET", "/user/get/vo?id=1", nil},
		{"POST", "/user/delete", DeleteRequest{ID: 1}},
		{"POST", "/user/update", UserUpdateRequest{ID: 1}},
		{"POST", "/user/list/page/vo", UserQueryRequest{}},
		{"GET", "/user/auth/events?userAccount=plainuser", nil},
		{"POST", "/app/update/status", AppStatusUpdateRequest{ID: 1, GenStatus: "ready"}},
		{"GET", "/metricz", nil},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			AssertCode(t, h.Do(rt.method, rt.path, "", rt.body), http.StatusUnauthorized, CodeNotLoginError)
			AssertCode(t, h.Do(rt.method, rt.path, userToken, rt.body), http.StatusForbidden, CodeNoAuthError)
		})
	}
}

func TestAdminAddUserDefaultPassword(t *testing.T) {
	h := newTestHarness(t)
	_, adminToken := h.CreateAdmin("boss")

	var id int64
	h.DoOK("POST", "/user/add", adminToken, UserAddRequest{
		UserAccount: "hired",
		UserName:    "Hired Hand",
		UserAvatar:  "/static/a.png",
		UserRole:    "user",
	}, &id)
	if id == 0 {
		t.Fatal("expected new id")
	}

	// Default password lets the new account log in.
	token := h.Login("hired", DefaultUserPassword)
	var me models.LoginUser
	h.DoOK("GET", "/user/get/login", token, nil, &me)
	if me.UserName != "Hired Hand" || me.UserAvatar != "/static/a.png" {
		t.Fatalf("added user = %+v", me)
	}

	AssertCode(t, h.Do("POST", "/user/add", adminToken, UserAddRequest{UserAccount: "hired"}),
		http.StatusBadRequest, CodeParamsError)
	AssertCode(t, h.Do("POST", "/user/add", adminToken, UserAddRequest{UserAccount: "xyz1", UserRole: "root"}),
		http.StatusBadRequest, CodeParamsError)
	AssertCode(t, h.Do("POST", "/user/add", adminToken, UserAddRequest{UserAccount: "xy"}),
		http.StatusBadRequest, CodeParamsError)
}

func TestAdminGetUser(t *testing.T) {
	h := newTestHarness(t)
	_, adminToken := h.CreateAdmin("boss")
	id, _ := h.CreateUser("target")

	var vo models.UserVO
	h.DoOK("GET", "/user/get/vo?id="+itoa(id), adminToken, nil, &vo)
	if vo.UserAccount != "target" {
		t.Fatalf("vo = %+v", vo)
	}

	AssertCode(t, h.Do("GET", "/user/get?id=0", adminToken, nil), http.StatusBadRequest, CodeParamsError)
	AssertCode(t, h.Do("GET", "/user/get?id=abc", adminToken, nil), http.StatusBadRequest, CodeParamsError)
	AssertCode(t, h.Do("GET", "/user/get?id=99999", adminToken, nil), http.StatusNotFound, CodeNotFoundError)
}

func TestAdminUpdateAndDeleteUser(t *testing.T) {
	h := newTestHarness(t)
	adminID, adminToken := h.CreateAdmin("boss")
	id, userToken := h.CreateUser("promotee")

	role := "admin"
	name := "Promoted"
	h.DoOK("POST", "/user/update", adminToken, UserUpdateRequest{ID: id, UserRole: &role, UserName: &name}, nil)

	var me models.LoginUser
	h.DoOK("GET", "/user/get/login", userToken, nil, &me)
	if !me.IsAdmin() || me.UserName != "Promoted" {
		t.Fatalf("update not applied: %+v", me)
	}

	bad := "superuser"
	AssertCode(t, h.Do("POST", "/user/update", adminToken, UserUpdateRequest{ID: id, UserRole: &bad}),
		http.StatusBadRequest, CodeParamsError)
	AssertCode(t, h.Do("POST", "/user/update", adminToken, UserUpdateRequest{ID: 99999, UserName: &name}),
		http.StatusNotFound, CodeNotFoundError)

	AssertCode(t, h.Do("POST", "/user/delete", adminToken, DeleteRequest{ID: adminID}),
		http.StatusInternalServerError, CodeOperationError)

	h.DoOK("POST", "/user/delete", adminToken, DeleteRequest{ID: id}, nil)
	AssertCode(t, h.Do("GET", "/user/get/login", userToken, nil), http.StatusUnauthorized, CodeNotLoginError)
	AssertCode(t, h.Do("POST", "/user/delete", adminToken, DeleteRequest{ID: id}), http.StatusNotFound, CodeNotFoundError)
	AssertCode(t, h.Do("POST", "/user/delete", adminToken, DeleteRequest{}), http.StatusBadRequest, CodeParamsError)
}

func TestAdminListUsers(t *testing.T) {
	h := newTestHarness(t)
	_, adminToken := h.CreateAdmin("boss")
	for _, acct := range []string{"alpha", "bravo", "charlie"} {
		h.Register(acct, "12345678")
	}

	var page models.Page[models.UserVO]
	h.DoOK("POST", "/user/list/page/vo", adminToken, UserQueryRequest{
		PageNum: 1, PageSize: 2, SortField: "userAccount", SortOrder: "ascend",
	}, &page)
	if page.TotalRow != 4 || len(page.Records) != 2 || page.TotalPage() != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Records[0].UserAccount != "alpha" {
		t.Fatalf("first = %s", page.Records[0].UserAccount)
	}

	h.DoOK("POST", "/user/list/page/vo", adminToken, UserQueryRequest{UserRole: "admin"}, &page)
	if page.TotalRow != 1 || page.Records[0].UserAccount != "boss" {
		t.Fatalf("admin filter = %+v", page)
	}
}

func TestAdminAuthEvents(t *testing.T) {
	h := newTestHarness(t)
	_, adminToken := h.CreateAdmin("boss")

	var events []serverdb.AuthEvent
	h.DoOK("GET", "/user/auth/events?userAccount=boss&limit=5", adminToken, nil, &events)
	if len(events) != 1 || events[0].EventType != serverdb.AuthEventLogin {
		t.Fatalf("events = %+v", events)
	}
	AssertCode(t, h.Do("GET", "/user/auth/events", adminToken, nil), http.StatusBadRequest, CodeParamsError)
}

func TestBootstrapAdmin(t *testing.T) {
	h := newTestHarness(t, func(cfg *Config) {
		cfg.AdminAccount = "superadmin"
		cfg.AdminPassword = "bootstrap-pass"
	})
	token := h.Login("superadmin", "bootstrap-pass")
	var me models.LoginUser
	h.DoOK("GET", "/user/get/login", token, nil, &me)
	if !me.IsAdmin() {
		t.Fatalf("bootstrap admin role = %s", me.UserRole)
	}
}
