package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/output"
	"github.com/uloaix/aicode/internal/router"
	"github.com/uloaix/aicode/internal/urlutil"
)

func newUserTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 6},
			{Title: "账号", Width: 16},
			{Title: "用户名", Width: 16},
			{Title: "角色", Width: 8},
			{Title: "创建时间", Width: 12},
		}),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("237"))
	t.SetStyles(s)
	return t
}

func userRows(users []models.UserVO) []table.Row {
	rows := make([]table.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", u.ID),
			u.UserAccount,
			u.UserName,
			string(u.UserRole),
			u.CreateTime.Format("2006-01-02"),
		})
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	width := m.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n\n")
	b.WriteString(m.renderPage(width))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar(width))
	return b.String()
}

func (m Model) renderHeader(width int) string {
	var tabs []string
	for _, r := range m.router.Table().Routes() {
		if router.RequiresAdmin(r.Path) && !m.store.LoginUser().IsAdmin() {
			continue
		}
		style := tabStyle
		if r.Path == m.page.Path {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(r.Name))
	}

	who := "未登录"
	if u := m.store.LoginUser(); u.LoggedIn() {
		who = u.UserName
		if who == "" {
			who = u.UserAccount
		}
	}
	left := headerStyle.Render("AI 零代码应用生成") + " " + strings.Join(tabs, "  ")
	gap := width - lipgloss.Width(left) - lipgloss.Width(who) - 1
	if gap < 1 {
		return ansi.Truncate(left, width, "…")
	}
	return left + strings.Repeat(" ", gap) + subtleStyle.Render(who)
}

func (m Model) renderPage(width int) string {
	if m.form != nil {
		return m.form.Form.View()
	}
	if m.loading {
		return m.spinner.View() + " 加载中..."
	}
	if !m.found && m.location != "" {
		return titleStyle.Render("404") + "\n" + subtleStyle.Render("页面不存在: "+m.location)
	}

	switch m.page.Page {
	case router.PageHome:
		return m.renderHome(width)
	case router.PageUserCenter:
		return m.renderCenter(width)
	case router.PageUserManage:
		return panelStyle.Render(m.users.View())
	}
	return ""
}

func (m Model) renderHome(width int) string {
	if !m.store.LoginUser().LoggedIn() {
		return "欢迎使用 AI 零代码应用生成平台\n" + subtleStyle.Render("按 l 登录，n 注册")
	}
	if len(m.apps) == 0 {
		return subtleStyle.Render("还没有应用")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("我的应用 (%d)", m.appTotal)))
	b.WriteString("\n")
	for i := range m.apps {
		b.WriteString(output.FormatAppShort(&m.apps[i].App, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCenter(width int) string {
	u := m.store.LoginUser()
	if !u.LoggedIn() {
		return subtleStyle.Render("请先登录 (按 l)")
	}

	var b strings.Builder
	name := u.UserName
	if name == "" {
		name = u.UserAccount
	}
	b.WriteString(titleStyle.Render(name))
	b.WriteString("  ")
	b.WriteString(output.FormatRole(u.UserRole))
	b.WriteString("\n")
	fmt.Fprintf(&b, "账号: %s\n", u.UserAccount)
	if avatar := urlutil.NormalizeAssetURL(u.UserAvatar); avatar != "" {
		fmt.Fprintf(&b, "头像: %s\n", ansi.Truncate(avatar, max(width-6, 10), "…"))
	}
	if strings.TrimSpace(u.UserProfile) != "" {
		b.WriteString("\n")
		b.WriteString(output.RenderMarkdownOrPlain(u.UserProfile, width-4))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("按 e 编辑资料"))
	return b.String()
}

func (m Model) renderStatusBar(width int) string {
	var lines []string
	for _, t := range m.toasts {
		style, ok := toastStyles[string(t.Level)]
		if !ok {
			style = toastStyles["info"]
		}
		lines = append(lines, style.Render(ansi.Truncate(t.Message, width, "…")))
	}
	if m.goToOpen {
		lines = append(lines, m.goTo.View())
	}
	if m.form != nil {
		lines = append(lines, helpStyle.Render("enter 提交 • esc 取消"))
	} else {
		lines = append(lines, m.help.View(m.keys))
	}
	return strings.Join(lines, "\n")
}
