package clientconfig

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "" {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	a, err := LoadAuth(t.TempDir())
	if err != nil || a != nil {
		t.Fatalf("LoadAuth on empty dir = %v, %v", a, err)
	}
}

func TestSaveLoadConfig(t *testing.T) {
	dir := t.TempDir()
	in := &Config{ServerURL: "http://srv:9000", Timeout: "3s", StartPath: "/user/center"}
	if err := Save(dir, in); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "server_url: http://srv:9000\n"; string(data[:len(want)]) != want {
		t.Fatalf("unexpected yaml:\n%s", data)
	}

	out, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if *out != *in {
		t.Fatalf("round trip: got %+v want %+v", out, in)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server_url: [unclosed"), 0644)
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUpdateConcurrent(t *testing.T) {
	dir := t.TempDir()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Update(dir, func(c *Config) { c.LogLevel = "debug" }); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	cfg, err := Load(dir)
	if err != nil || cfg.LogLevel != "debug" {
		t.Fatalf("after concurrent updates: %+v %v", cfg, err)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	dir := t.TempDir()
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := SaveAuth(dir, &Auth{Token: "tok", UserID: 7, UserAccount: "alice", ServerURL: "http://s", ExpiresAt: exp}); err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "auth.json"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Fatalf("auth.json perms = %o", info.Mode().Perm())
		}
	}
	a, err := LoadAuth(dir)
	if err != nil || a == nil || a.Token != "tok" || a.UserID != 7 || !a.ExpiresAt.Equal(exp) {
		t.Fatalf("LoadAuth = %+v, %v", a, err)
	}

	if err := ClearAuth(dir); err != nil {
		t.Fatal(err)
	}
	if err := ClearAuth(dir); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if a, _ := LoadAuth(dir); a != nil {
		t.Fatal("auth survived clear")
	}
}

func TestResolveServerURL(t *testing.T) {
	t.Setenv("AICODE_SERVER_URL", "")
	var nilCfg *Config
	if got := nilCfg.ResolveServerURL(); got != DefaultServerURL {
		t.Fatalf("default = %s", got)
	}
	cfg := &Config{ServerURL: "http://from-config"}
	if got := cfg.ResolveServerURL(); got != "http://from-config" {
		t.Fatalf("config = %s", got)
	}
	t.Setenv("AICODE_SERVER_URL", "http://from-env")
	if got := cfg.ResolveServerURL(); got != "http://from-env" {
		t.Fatalf("env = %s", got)
	}
}

func TestResolveTimeoutAndStartPath(t *testing.T) {
	t.Setenv("AICODE_TIMEOUT", "")
	if got := (&Config{}).ResolveTimeout(); got != 15*time.Second {
		t.Fatalf("default timeout = %s", got)
	}
	if got := (&Config{Timeout: "bogus"}).ResolveTimeout(); got != 15*time.Second {
		t.Fatalf("invalid timeout = %s", got)
	}
	if got := (&Config{Timeout: "2s"}).ResolveTimeout(); got != 2*time.Second {
		t.Fatalf("config timeout = %s", got)
	}
	t.Setenv("AICODE_TIMEOUT", "750ms")
	if got := (&Config{Timeout: "2s"}).ResolveTimeout(); got != 750*time.Millisecond {
		t.Fatalf("env timeout = %s", got)
	}
	if got := (&Config{}).ResolveStartPath(); got != "/" {
		t.Fatalf("start path = %s", got)
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv("AICODE_TOKEN", "")
	a := &Auth{Token: "stored", ServerURL: "http://a"}
	if got := ResolveToken(a, "http://a"); got != "stored" {
		t.Fatalf("token = %q", got)
	}
	if got := ResolveToken(a, "http://b"); got != "" {
		t.Fatalf("token for other server = %q", got)
	}
	if got := ResolveToken(nil, "http://a"); got != "" {
		t.Fatalf("nil auth token = %q", got)
	}
	t.Setenv("AICODE_TOKEN", "env-token")
	if got := ResolveToken(nil, "http://a"); got != "env-token" {
		t.Fatalf("env token = %q", got)
	}
}

func TestDirOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "cfg")
	t.Setenv("AICODE_CONFIG_DIR", want)
	got, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("Dir() = %s", got)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("dir not created: %v", err)
	}
}
