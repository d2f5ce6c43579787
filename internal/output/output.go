// Package output provides styled terminal output helpers (success, error,
// warning, user and app formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/urlutil"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	adminStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	// badgeColors maps the generation-status color names to terminal colors.
	badgeColors = map[string]lipgloss.Color{
		"default": lipgloss.Color("245"),
		"blue":    lipgloss.Color("33"),
		"green":   lipgloss.Color("42"),
		"red":     lipgloss.Color("196"),
	}
)

// Stdout is where the print helpers write.
var Stdout io.Writer = os.Stdout

// OutputMode determines output format
type OutputMode int

const (
	ModeShort OutputMode = iota
	ModeLong
	ModeJSON
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Fprintln(Stdout, successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Fprintln(Stdout, errorStyle.Render("ERROR: "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Fprintln(Stdout, warningStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Fprintf(Stdout, format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(Stdout, string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotLogin     = "not_login"
	ErrCodeNoAuth       = "no_auth"
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnreachable  = "server_unreachable"
	ErrCodeServerError  = "server_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	JSONErrorWithDetails(code, message, nil)
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]any) {
	errObj := map[string]any{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	data, _ := json.MarshalIndent(map[string]any{"error": errObj}, "", "  ")
	fmt.Fprintln(Stdout, string(data))
}

// BadgeStyle returns the style for a generation-status color name. Unknown
// names get the default color.
func BadgeStyle(color string) lipgloss.Style {
	c, ok := badgeColors[color]
	if !ok {
		c = badgeColors["default"]
	}
	return lipgloss.NewStyle().Foreground(c)
}

// FormatGenStatus renders the colored badge for a stored generation status.
func FormatGenStatus(status string) string {
	meta := models.GetAppGenStatusMeta(status)
	return BadgeStyle(meta.Color).Render("[" + meta.Label + "]")
}

// FormatRole formats a user role, highlighting admins
func FormatRole(role models.UserRole) string {
	if role == models.RoleAdmin {
		return adminStyle.Render("[admin]")
	}
	return subtleStyle.Render(fmt.Sprintf("[%s]", role))
}

// Truncate shortens s to width terminal cells, ending with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// FormatUserShort formats a user in short format
func FormatUserShort(u *models.UserVO) string {
	parts := []string{
		titleStyle.Render(fmt.Sprintf("#%d", u.ID)),
		u.UserAccount,
	}
	if u.UserName != "" {
		parts = append(parts, subtleStyle.Render(u.UserName))
	}
	parts = append(parts, FormatRole(u.UserRole))
	return strings.Join(parts, "  ")
}

// FormatLoginUser formats the session user in long format
func FormatLoginUser(u *models.LoginUser) string {
	var sb strings.Builder
	name := u.UserName
	if name == "" {
		name = u.UserAccount
	}
	sb.WriteString(titleStyle.Render(name))
	sb.WriteString("  ")
	sb.WriteString(FormatRole(u.UserRole))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Account: %s (#%d)\n", u.UserAccount, u.ID)
	if avatar := urlutil.NormalizeAssetURL(u.UserAvatar); avatar != "" {
		fmt.Fprintf(&sb, "Avatar: %s\n", avatar)
	}
	if !u.CreateTime.IsZero() {
		fmt.Fprintf(&sb, "Joined: %s\n", FormatTimeAgo(u.CreateTime))
	}
	if strings.TrimSpace(u.UserProfile) != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Profile:"))
		sb.WriteString("\n")
		sb.WriteString(u.UserProfile)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatAppShort formats an app with its status badge and truncated prompt.
func FormatAppShort(app *models.App, width int) string {
	head := fmt.Sprintf("%s  %s  %s",
		titleStyle.Render(fmt.Sprintf("#%d", app.ID)),
		app.AppName,
		FormatGenStatus(string(app.GenStatus)),
	)
	var tail []string
	if cover := urlutil.NormalizeAssetURL(app.Cover); cover != "" {
		tail = append(tail, subtleStyle.Render(cover))
	}
	if !app.CreateTime.IsZero() {
		tail = append(tail, subtleStyle.Render(FormatTimeAgo(app.CreateTime)))
	}
	line := head
	if len(tail) > 0 {
		line += "  " + strings.Join(tail, "  ")
	}
	if width > 0 {
		line = Truncate(line, width)
	}
	return line
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nUSERS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
