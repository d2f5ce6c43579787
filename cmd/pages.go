package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/clientconfig"
	"github.com/uloaix/aicode/internal/output"
	"github.com/uloaix/aicode/internal/router"
	"github.com/uloaix/aicode/internal/session"
	"github.com/uloaix/aicode/internal/tui"
)

func isAuthErr(err error) bool {
	return errors.Is(err, client.ErrNotLogin)
}

// padRight pads s with spaces to width terminal cells.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func accessLabel(path string) string {
	if router.RequiresAdmin(path) {
		return "admin"
	}
	return "public"
}

var routesCmd = &cobra.Command{
	Use:     "routes",
	Short:   "List pages and their access requirement",
	GroupID: "pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		routes := router.DefaultTable().Routes()
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			type row struct {
				Path   string `json:"path"`
				Name   string `json:"name"`
				Page   string `json:"page"`
				Access string `json:"access"`
			}
			rows := make([]row, 0, len(routes))
			for _, r := range routes {
				rows = append(rows, row{Path: r.Path, Name: r.Name, Page: string(r.Page), Access: accessLabel(r.Path)})
			}
			return output.JSON(rows)
		}

		output.Info("%s%s%s%s", padRight("PATH", 20), padRight("NAME", 12), padRight("PAGE", 12), "ACCESS")
		for _, r := range routes {
			output.Info("%s%s%s%s", padRight(r.Path, 20), padRight(r.Name, 12), padRight(string(r.Page), 12), accessLabel(r.Path))
		}
		return nil
	},
}

// openResult is the JSON form of a guarded navigation.
type openResult struct {
	Location    string   `json:"location"`
	Page        string   `json:"page"`
	Name        string   `json:"name"`
	Found       bool     `json:"found"`
	Redirects   []string `json:"redirects"`
	Toasts      []string `json:"toasts"`
	Unreachable bool     `json:"unreachable,omitempty"`
}

var openCmd = &cobra.Command{
	Use:     "open <path>",
	Short:   "Resolve a page through the access guard",
	Long:    `Runs the navigation guard for <path> with the stored session and prints the page it resolves to, including any redirect and notification.`,
	GroupID: "pages",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		var toasts []string
		notifier := router.NotifierFunc(func(level router.Level, msg string) {
			toasts = append(toasts, msg)
		})
		store := session.New(e.client, e.logger)
		r := router.New(router.DefaultTable(), router.NewGuard(store, notifier, e.logger))

		// The session fetch is bounded by the client's HTTP timeout; a
		// slow server must resolve to logged out, not a navigation error.
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		res, err := r.Navigate(ctx, args[0])
		if err != nil {
			return e.fail("导航失败", err)
		}

		result := openResult{
			Location:    res.Location,
			Page:        string(res.Route.Page),
			Name:        res.Route.Name,
			Found:       res.Found,
			Redirects:   res.Redirects,
			Toasts:      toasts,
			Unreachable: store.Unreachable(isAuthErr),
		}
		if e.json {
			return output.JSON(result)
		}

		if result.Unreachable {
			output.Warning("server unreachable (%v), treating as logged out", store.FetchErr())
		}
		for _, t := range toasts {
			output.Warning("%s", t)
		}
		if len(res.Redirects) > 0 {
			output.Info("%s -> %s", router.NormalizeLocation(args[0]), res.Location)
		}
		if !res.Found {
			output.Error("页面不存在: %s", res.Location)
			return fmt.Errorf("no page at %s", res.Location)
		}
		output.Success("%s (%s)", res.Route.Name, res.Route.Page)
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:     "tui [path]",
	Short:   "Open the interactive client",
	GroupID: "pages",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := ""
		if len(args) == 1 {
			start = args[0]
		}
		return runTUI(cmd, start)
	},
}

func runTUI(cmd *cobra.Command, start string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if start == "" {
		start = e.cfg.ResolveStartPath()
	}

	store := session.New(e.client, e.logger)
	m := tui.New(e.client, store, tui.Config{
		StartPath:      start,
		RequestTimeout: e.timeout,
		Logger:         e.logger,
		OnLogin: func(resp *client.LoginResponse) {
			if err := e.saveSession(resp); err != nil {
				e.logger.Error("save session", "err", err)
			}
		},
		OnLogout: func() {
			if err := clientconfig.ClearAuth(e.dir); err != nil {
				e.logger.Error("clear session", "err", err)
			}
		},
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e.logger.Info("tui start", "server", e.serverURL, "start", start)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(routesCmd, openCmd, tuiCmd)
}
