package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/clientconfig"
	"github.com/uloaix/aicode/internal/output"
)

// env is the per-invocation client state: config, stored session, API
// client and file logger.
type env struct {
	dir       string
	cfg       *clientconfig.Config
	auth      *clientconfig.Auth
	serverURL string
	timeout   time.Duration
	json      bool

	client  *client.Client
	logger  *slog.Logger
	logFile *os.File
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	dir, err := clientconfig.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := clientconfig.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	auth, err := clientconfig.LoadAuth(dir)
	if err != nil {
		return nil, fmt.Errorf("load auth: %w", err)
	}

	e := &env{dir: dir, cfg: cfg, auth: auth}

	flags := cmd.Flags()
	e.serverURL, _ = flags.GetString("server")
	if e.serverURL == "" {
		e.serverURL = cfg.ResolveServerURL()
	}
	e.serverURL = strings.TrimRight(e.serverURL, "/")
	e.timeout, _ = flags.GetDuration("timeout")
	if e.timeout <= 0 {
		e.timeout = cfg.ResolveTimeout()
	}
	e.json, _ = flags.GetBool("json")
	debug, _ := flags.GetBool("debug")

	e.logger, e.logFile = openLogger(clientconfig.LogPath(dir), logLevel(cfg.LogLevel, debug))
	e.client = client.New(e.serverURL, clientconfig.ResolveToken(auth, e.serverURL), e.timeout)
	return e, nil
}

func (e *env) Close() {
	if e.logFile != nil {
		e.logFile.Close()
	}
}

// requestContext bounds one API call by the configured timeout.
func (e *env) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.timeout)
}

// saveSession persists a fresh login for this server.
func (e *env) saveSession(resp *client.LoginResponse) error {
	return clientconfig.SaveAuth(e.dir, &clientconfig.Auth{
		Token:       resp.Token,
		UserID:      resp.ID,
		UserAccount: resp.UserAccount,
		ServerURL:   e.serverURL,
		ExpiresAt:   resp.ExpiresAt,
	})
}

// fail prints err in the selected format and returns it for cobra.
func (e *env) fail(action string, err error) error {
	msg := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	e.logger.Warn(action, "err", err)
	if e.json {
		output.JSONError(errorCode(err), msg)
	} else {
		output.Error("%s: %s", action, msg)
	}
	return err
}

// errorCode maps client errors onto the JSON error codes.
func errorCode(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNotLogin):
		return output.ErrCodeNotLogin
	case errors.Is(err, client.ErrNoAuth), errors.Is(err, client.ErrForbidden):
		return output.ErrCodeNoAuth
	case errors.Is(err, client.ErrNotFound):
		return output.ErrCodeNotFound
	case errors.Is(err, client.ErrParams):
		return output.ErrCodeInvalidInput
	case errors.Is(err, client.ErrRateLimited):
		return output.ErrCodeRateLimited
	case errors.As(err, &apiErr):
		return output.ErrCodeServerError
	default:
		return output.ErrCodeUnreachable
	}
}

func logLevel(configured string, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(configured) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openLogger logs to path. The terminal belongs to the command output, so a
// log file that cannot be opened silences logging instead.
func openLogger(path string, level slog.Level) (*slog.Logger, *os.File) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.DiscardHandler), nil
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f
}
