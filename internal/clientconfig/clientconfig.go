// Package clientconfig manages the terminal client's settings under
// ~/.config/aicode: config.yaml for preferences and auth.json for the
// session token.
package clientconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configFile = "config.yaml"
	authFile   = "auth.json"
	lockFile   = "config.lock"
	logFile    = "aicode.log"

	// DefaultServerURL is used when neither env nor config names a server.
	DefaultServerURL = "http://localhost:8123"
	defaultTimeout   = 15 * time.Second
)

// Config is the client config stored at ~/.config/aicode/config.yaml.
type Config struct {
	ServerURL string `yaml:"server_url,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`   // duration string, default "15s"
	LogLevel  string `yaml:"log_level,omitempty"` // debug, info (default), warn, error
	// Page opened when the TUI starts, default "/".
	StartPath string `yaml:"start_path,omitempty"`
}

// Auth stores the session at ~/.config/aicode/auth.json.
type Auth struct {
	Token       string    `json:"token"`
	UserID      int64     `json:"user_id"`
	UserAccount string    `json:"user_account"`
	ServerURL   string    `json:"server_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Dir returns the config directory, creating it if necessary.
// AICODE_CONFIG_DIR overrides the default ~/.config/aicode.
func Dir() (string, error) {
	dir := os.Getenv("AICODE_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "aicode")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LogPath returns the client log file path inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, logFile)
}

// Load reads config.yaml from dir. A missing file yields an empty Config.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFile, err)
	}
	return &cfg, nil
}

// Save writes cfg to dir/config.yaml atomically under the config lock.
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return withLock(dir, func() error {
		return writeAtomic(dir, configFile, data, 0644)
	})
}

// Update loads, mutates and saves the config while holding the lock.
func Update(dir string, fn func(*Config)) error {
	return withLock(dir, func() error {
		cfg, err := Load(dir)
		if err != nil {
			return err
		}
		fn(cfg)
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		return writeAtomic(dir, configFile, data, 0644)
	})
}

// LoadAuth reads auth.json. Returns nil, nil when not logged in.
func LoadAuth(dir string) (*Auth, error) {
	data, err := os.ReadFile(filepath.Join(dir, authFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var a Auth
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse %s: %w", authFile, err)
	}
	return &a, nil
}

// SaveAuth writes auth.json with 0600 permissions.
func SaveAuth(dir string, a *Auth) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return withLock(dir, func() error {
		return writeAtomic(dir, authFile, data, 0600)
	})
}

// ClearAuth removes auth.json.
func ClearAuth(dir string) error {
	return withLock(dir, func() error {
		err := os.Remove(filepath.Join(dir, authFile))
		if os.IsNotExist(err) {
			return nil
		}
		return err
	})
}

// ResolveServerURL resolves the server URL.
// Priority: AICODE_SERVER_URL env > config.yaml > default.
func (c *Config) ResolveServerURL() string {
	if v := os.Getenv("AICODE_SERVER_URL"); v != "" {
		return v
	}
	if c != nil && c.ServerURL != "" {
		return c.ServerURL
	}
	return DefaultServerURL
}

// ResolveTimeout returns the request timeout.
// Priority: AICODE_TIMEOUT env > config.yaml > 15s.
func (c *Config) ResolveTimeout() time.Duration {
	if v := os.Getenv("AICODE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if c != nil && c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return defaultTimeout
}

// ResolveStartPath returns the TUI start path, default "/".
func (c *Config) ResolveStartPath() string {
	if c != nil && c.StartPath != "" {
		return c.StartPath
	}
	return "/"
}

// ResolveToken returns the session token.
// Priority: AICODE_TOKEN env > auth.json (only when it belongs to serverURL).
func ResolveToken(a *Auth, serverURL string) string {
	if v := os.Getenv("AICODE_TOKEN"); v != "" {
		return v
	}
	if a == nil || a.Token == "" {
		return ""
	}
	if a.ServerURL != "" && a.ServerURL != serverURL {
		return ""
	}
	return a.Token
}

// writeAtomic writes data via a temp file in dir and renames it into place.
func writeAtomic(dir, name string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(dir, name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}

// withLock serializes writers across processes using an advisory lock file.
func withLock(dir string, fn func() error) error {
	f, err := os.OpenFile(filepath.Join(dir, lockFile), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer unlockFile(f)

	return fn()
}
