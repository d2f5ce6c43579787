package api

import (
	"net/http"
	"testing"

	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

func TestRegisterValidation(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name string
		req  UserRegisterRequest
		msg  string
	}{
		{"blank", UserRegisterRequest{UserAccount: "abcd", UserPassword: "", CheckPassword: "12345678"}, "参数为空"},
		{"short account", UserRegisterRequest{UserAccount: "abc", UserPassword: "12345678", CheckPassword: "12345678"}, "用户账号过短"},
		{"short password", UserRegisterRequest{UserAccount: "abcd", UserPassword: "1234567", CheckPassword: "1234567"}, "用户密码过短"},
		{"mismatch", UserRegisterRequest{UserAccount: "abcd", UserPassword: "12345678", CheckPassword: "87654321"}, "两次输入的密码不一致"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := AssertCode(t, h.Do("POST", "/user/register", "", tt.req), http.StatusBadRequest, CodeParamsError)
			if env.Message != tt.msg {
				t.Fatalf("message = %q, want %q", env.Message, tt.msg)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h := newTestHarness(t)
	h.Register("dupuser", "12345678")
	env := AssertCode(t, h.Do("POST", "/user/register", "", UserRegisterRequest{
		UserAccount: "dupuser", UserPassword: "12345678", CheckPassword: "12345678",
	}), http.StatusBadRequest, CodeParamsError)
	if env.Message != "账号重复" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestRegisterMalformedBody(t *testing.T) {
	h := newTestHarness(t)
	AssertCode(t, h.Do("POST", "/user/register", "", nil), http.StatusBadRequest, CodeParamsError)
}

func TestLoginFlow(t *testing.T) {
	h := newTestHarness(t)
	id := h.Register("flowuser", "12345678")

	resp := h.Do("POST", "/user/login", "", UserLoginRequest{UserAccount: "flowuser", UserPassword: "12345678"})
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			cookie = c
		}
	}
	env := AssertCode(t, resp, http.StatusOK, CodeSuccess)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie missing or not http-only: %+v", cookie)
	}
	if len(env.Data) == 0 {
		t.Fatal("empty login data")
	}

	var me models.LoginUser
	h.DoOK("GET", "/user/get/login", cookie.Value, nil, &me)
	if me.ID != id || me.UserAccount != "flowuser" || me.UserRole != models.RoleUser {
		t.Fatalf("login user = %+v", me)
	}

	// Cookie auth works without a bearer header.
	req, _ := http.NewRequest("GET", h.BaseURL+"/user/get/login", nil)
	req.AddCookie(cookie)
	cresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	AssertCode(t, cresp, http.StatusOK, CodeSuccess)

	var ok bool
	h.DoOK("POST", "/user/logout", cookie.Value, nil, &ok)
	if !ok {
		t.Fatal("logout returned false")
	}
	AssertCode(t, h.Do("GET", "/user/get/login", cookie.Value, nil), http.StatusUnauthorized, CodeNotLoginError)
	AssertCode(t, h.Do("POST", "/user/logout", cookie.Value, nil), http.StatusUnauthorized, CodeNotLoginError)

	events, err := h.Store.RecentAuthEvents("flowuser", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 || events[0].EventType != serverdb.AuthEventLogout {
		t.Fatalf("auth events = %+v", events)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := newTestHarness(t)
	h.Register("wrongpw", "12345678")

	for _, req := range []UserLoginRequest{
		{UserAccount: "wrongpw", UserPassword: "87654321"},
		{UserAccount: "nobody", UserPassword: "12345678"},
		// the password behind the missing-account hash must not log anyone in
		{UserAccount: "nobody", UserPassword: "aicode-missing-account"},
	} {
		env := AssertCode(t, h.Do("POST", "/user/login", "", req), http.StatusBadRequest, CodeParamsError)
		if env.Message != "用户不存在或密码错误" {
			t.Fatalf("message = %q", env.Message)
		}
	}
	AssertCode(t, h.Do("POST", "/user/login", "", UserLoginRequest{UserAccount: "abc", UserPassword: "12345678"}),
		http.StatusBadRequest, CodeParamsError)

	snap := h.Server.metrics.Snapshot()
	if snap.LoginFailures != 3 || snap.Logins != 0 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestGetLoginUserWithoutSession(t *testing.T) {
	h := newTestHarness(t)
	AssertCode(t, h.Do("GET", "/user/get/login", "", nil), http.StatusUnauthorized, CodeNotLoginError)
	AssertCode(t, h.Do("GET", "/user/get/login", "bogus-token", nil), http.StatusUnauthorized, CodeNotLoginError)
}

func TestUpdateMy(t *testing.T) {
	h := newTestHarness(t)
	_, token := h.CreateUser("selfedit")

	AssertCode(t, h.Do("POST", "/user/update/my", token, UserUpdateMyRequest{UserName: "  "}),
		http.StatusBadRequest, CodeParamsError)

	h.DoOK("POST", "/user/update/my", token, UserUpdateMyRequest{
		UserName:    "Self Editor",
		UserAvatar:  "cdn.example.com/a.png",
		UserProfile: "# hello",
	}, nil)

	var me models.LoginUser
	h.DoOK("GET", "/user/get/login", token, nil, &me)
	if me.UserName != "Self Editor" || me.UserAvatar != "cdn.example.com/a.png" || me.UserProfile != "# hello" {
		t.Fatalf("profile not updated: %+v", me)
	}
}

func TestPasswordNeverSerialized(t *testing.T) {
	h := newTestHarness(t)
	id, _ := h.CreateUser("secretive")
	_, adminToken := h.CreateAdmin("rootadmin")

	env := AssertCode(t, h.Do("GET", "/user/get?id="+itoa(id), adminToken, nil), http.StatusOK, CodeSuccess)
	if containsAny(string(env.Data), "password", "argon2") {
		t.Fatalf("password leaked: %s", env.Data)
	}
}
