// Package tui is the terminal client. Every page change goes through the
// router so the access guard runs before a page is shown.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/router"
	"github.com/uloaix/aicode/internal/session"
)

// API is the subset of the server client the pages use.
type API interface {
	Login(ctx context.Context, account, password string) (*client.LoginResponse, error)
	Register(ctx context.Context, account, password, checkPassword string) (int64, error)
	Logout(ctx context.Context) error
	GetLoginUser(ctx context.Context) (*models.LoginUser, error)
	UpdateMy(ctx context.Context, req client.UpdateMyRequest) error
	ListMyApps(ctx context.Context, q client.AppQuery) (*models.Page[models.AppVO], error)
	ListUsers(ctx context.Context, q client.UserQuery) (*models.Page[models.UserVO], error)
}

// Config tunes the program.
type Config struct {
	StartPath      string
	RequestTimeout time.Duration
	ToastTTL       time.Duration
	Logger         *slog.Logger

	// OnLogin persists a fresh session. OnLogout forgets it.
	OnLogin  func(*client.LoginResponse)
	OnLogout func()
}

// listPageSize is the page size for app and user lists.
const listPageSize = 20

// MinWidth is the narrowest layout the view renders.
const MinWidth = 40

// Messages

type navigatedMsg struct {
	seq    int
	res    router.Resolution
	err    error
	toasts []Toast
}

type appsLoadedMsg struct {
	page *models.Page[models.AppVO]
	err  error
}

type usersLoadedMsg struct {
	page *models.Page[models.UserVO]
	err  error
}

type loginDoneMsg struct {
	resp *client.LoginResponse
	err  error
}

type registerDoneMsg struct {
	id  int64
	err error
}

type profileSavedMsg struct {
	user *models.LoginUser
	req  client.UpdateMyRequest
	err  error
	// refreshErr is set when the save went through but reloading the
	// user afterwards failed.
	refreshErr error
}

type logoutDoneMsg struct{ err error }

type sessionRefreshedMsg struct{ err error }

// Model is the main Bubble Tea model.
type Model struct {
	api     API
	store   *session.Store
	router  *router.Router
	sink    *toastSink
	logger  *slog.Logger
	onLogin func(*client.LoginResponse)
	onOut   func()

	timeout  time.Duration
	toastTTL time.Duration
	start    string

	Width  int
	Height int

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	goTo     textinput.Model
	goToOpen bool
	showHelp bool

	navSeq   int
	location string
	page     router.Route
	found    bool
	loading  bool
	err      error

	apps     []models.AppVO
	appTotal int64
	users    table.Model
	userRows []models.UserVO
	form     *formState

	toasts      []Toast
	nextToastID int
}

// New builds the model, its guard and router over store.
func New(api API, store *session.Store, cfg Config) Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := &toastSink{}
	guard := router.NewGuard(store, sink, logger)

	goTo := textinput.New()
	goTo.Prompt = "跳转: "
	goTo.Placeholder = "/user/center"
	goTo.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		api:      api,
		store:    store,
		router:   router.New(router.DefaultTable(), guard),
		sink:     sink,
		logger:   logger,
		onLogin:  cfg.OnLogin,
		onOut:    cfg.OnLogout,
		timeout:  cfg.RequestTimeout,
		toastTTL: cfg.ToastTTL,
		start:    router.NormalizeLocation(cfg.StartPath),
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		goTo:     goTo,
		users:    newUserTable(),
		loading:  true,
	}
	if m.timeout <= 0 {
		m.timeout = 15 * time.Second
	}
	if m.toastTTL <= 0 {
		m.toastTTL = DefaultToastTTL
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.navigateCmd(m.navSeq, m.start))
}

// Location returns the current full path.
func (m Model) Location() string { return m.location }

// Page returns the current route.
func (m Model) Page() router.Route { return m.page }

// Form returns the open form kind, or "" when none is open.
func (m Model) Form() FormKind {
	if m.form == nil {
		return ""
	}
	return m.form.Kind
}

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// navigate starts a guarded navigation. Results of older navigations are
// dropped when they arrive late.
func (m *Model) navigate(to string) tea.Cmd {
	m.navSeq++
	m.loading = true
	return m.navigateCmd(m.navSeq, to)
}

func (m Model) navigateCmd(seq int, to string) tea.Cmd {
	r, sink := m.router, m.sink
	return func() tea.Msg {
		res, err := r.Navigate(context.Background(), to)
		return navigatedMsg{seq: seq, res: res, err: err, toasts: sink.drain()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		m.users.SetWidth(max(msg.Width-4, MinWidth))
		m.users.SetHeight(max(msg.Height-8, 3))
		if m.form != nil {
			m.form.Form = m.form.Form.WithWidth(formWidth(msg.Width))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastExpiredMsg:
		m.expireToast(msg.id)
		return m, nil

	case navigatedMsg:
		return m.handleNavigated(msg)

	case appsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.reportError("加载应用失败", msg.err)
		}
		m.apps = msg.page.Records
		m.appTotal = msg.page.TotalRow
		return m, nil

	case usersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.reportError("加载用户失败", msg.err)
		}
		m.userRows = msg.page.Records
		m.users.SetRows(userRows(msg.page.Records))
		return m, nil

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case registerDoneMsg:
		if msg.err != nil {
			m.form = newRegisterForm(formWidth(m.Width))
			return m, tea.Batch(m.reportError("注册失败", msg.err), m.form.Form.Init())
		}
		return m, tea.Batch(m.pushToast(router.LevelSuccess, "注册成功，请登录"), m.navigate(router.PathLogin))

	case profileSavedMsg:
		if msg.err != nil {
			return m, m.reportError("保存失败", msg.err)
		}
		if msg.refreshErr != nil {
			m.logger.Warn("reload login user after profile save", "err", msg.refreshErr)
			if cur := m.store.LoginUser(); cur != nil {
				u := *cur
				u.UserName = msg.req.UserName
				u.UserAvatar = msg.req.UserAvatar
				u.UserProfile = msg.req.UserProfile
				m.store.SetLoginUser(&u)
			}
			return m, m.pushToast(router.LevelWarning, "资料已更新，但刷新用户信息失败")
		}
		m.store.SetLoginUser(msg.user)
		return m, m.pushToast(router.LevelSuccess, "资料已更新")

	case logoutDoneMsg:
		m.store.Clear()
		if m.onOut != nil {
			m.onOut()
		}
		var cmd tea.Cmd
		if msg.err != nil && !errors.Is(msg.err, client.ErrNotLogin) {
			cmd = m.reportError("退出失败", msg.err)
		} else {
			cmd = m.pushToast(router.LevelSuccess, "已退出登录")
		}
		return m, tea.Batch(cmd, m.navigate(router.PathHome))

	case sessionRefreshedMsg:
		if msg.err != nil {
			m.logger.Warn("refresh session", "err", msg.err)
		}
		return m, m.navigate(m.location)
	}

	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.goToOpen {
		return m.updateGoTo(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(k)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Home):
		return m, m.navigate(router.PathHome)
	case key.Matches(msg, m.keys.Login):
		return m, m.navigate(router.PathLogin)
	case key.Matches(msg, m.keys.Register):
		return m, m.navigate(router.PathRegister)
	case key.Matches(msg, m.keys.Center):
		return m, m.navigate(router.PathUserCenter)
	case key.Matches(msg, m.keys.Admin):
		return m, m.navigate(router.PathUserManage)
	case key.Matches(msg, m.keys.Logout):
		if !m.store.LoginUser().LoggedIn() {
			return m, m.pushToast(router.LevelWarning, "当前未登录")
		}
		return m, m.logoutCmd()
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.refreshSessionCmd()
	case key.Matches(msg, m.keys.GoTo):
		m.goToOpen = true
		m.goTo.SetValue("")
		return m, m.goTo.Focus()
	case key.Matches(msg, m.keys.Edit):
		if m.page.Page != router.PageUserCenter || !m.store.LoginUser().LoggedIn() {
			return m, nil
		}
		m.form = newProfileForm(m.store.LoginUser(), formWidth(m.Width))
		return m, m.form.Form.Init()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	}

	if m.page.Page == router.PageUserManage {
		var cmd tea.Cmd
		m.users, cmd = m.users.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateGoTo(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyEnter:
			m.goToOpen = false
			m.goTo.Blur()
			return m, m.navigate(m.goTo.Value())
		case tea.KeyEsc:
			m.goToOpen = false
			m.goTo.Blur()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.goTo, cmd = m.goTo.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			kind := m.form.Kind
			m.form = nil
			if kind == FormProfile {
				return m, nil
			}
			return m, m.navigate(router.PathHome)
		}
	}

	f, cmd := m.form.Form.Update(msg)
	if hf, ok := f.(*huh.Form); ok {
		m.form.Form = hf
	}
	if m.form.Form.State == huh.StateCompleted {
		return m.submitForm()
	}
	return m, cmd
}

// submitForm sends the completed form and closes it.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	fs := m.form
	m.form = nil
	m.loading = true
	api := m.api
	ctx, cancel := m.requestContext()

	switch fs.Kind {
	case FormLogin:
		return m, func() tea.Msg {
			defer cancel()
			resp, err := api.Login(ctx, strings.TrimSpace(fs.Account), fs.Password)
			return loginDoneMsg{resp: resp, err: err}
		}
	case FormRegister:
		return m, func() tea.Msg {
			defer cancel()
			id, err := api.Register(ctx, strings.TrimSpace(fs.Account), fs.Password, fs.CheckPassword)
			return registerDoneMsg{id: id, err: err}
		}
	case FormProfile:
		req := client.UpdateMyRequest{
			UserName:    strings.TrimSpace(fs.UserName),
			UserAvatar:  strings.TrimSpace(fs.UserAvatar),
			UserProfile: fs.UserProfile,
		}
		return m, func() tea.Msg {
			defer cancel()
			if err := api.UpdateMy(ctx, req); err != nil {
				return profileSavedMsg{err: err}
			}
			u, err := api.GetLoginUser(ctx)
			return profileSavedMsg{user: u, req: req, refreshErr: err}
		}
	}
	cancel()
	return m, nil
}

func (m Model) handleNavigated(msg navigatedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.navSeq {
		return m, m.pushToasts(msg.toasts)
	}
	toastCmd := m.pushToasts(msg.toasts)
	if msg.err != nil {
		m.loading = false
		m.logger.Error("navigate", "err", msg.err)
		return m, tea.Batch(toastCmd, m.pushToast(router.LevelError, "导航失败: "+msg.err.Error()))
	}

	m.location = msg.res.Location
	m.page = msg.res.Route
	m.found = msg.res.Found
	m.err = nil
	m.form = nil
	m.logger.Debug("navigated", "location", m.location, "page", m.page.Page)

	return m, tea.Batch(toastCmd, m.enterPage())
}

// enterPage loads data or opens the form for the current page.
func (m *Model) enterPage() tea.Cmd {
	m.loading = false
	user := m.store.LoginUser()

	switch m.page.Page {
	case router.PageHome:
		if !user.LoggedIn() {
			m.apps = nil
			return nil
		}
		m.loading = true
		return m.loadAppsCmd()
	case router.PageLogin:
		m.form = newLoginForm(formWidth(m.Width))
		return m.form.Form.Init()
	case router.PageRegister:
		m.form = newRegisterForm(formWidth(m.Width))
		return m.form.Form.Init()
	case router.PageUserManage:
		m.loading = true
		m.users.Focus()
		return m.loadUsersCmd()
	}
	return nil
}

func (m Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.form = newLoginForm(formWidth(m.Width))
		return m, tea.Batch(m.reportError("登录失败", msg.err), m.form.Form.Init())
	}
	u := msg.resp.LoginUser
	m.store.SetLoginUser(&u)
	if m.onLogin != nil {
		m.onLogin(msg.resp)
	}
	return m, tea.Batch(
		m.pushToast(router.LevelSuccess, "登录成功"),
		m.navigate(router.RedirectTarget(m.location)),
	)
}

// reportError shows err as a toast, preferring the server's message.
func (m *Model) reportError(prefix string, err error) tea.Cmd {
	m.loading = false
	m.err = err
	m.logger.Warn(prefix, "err", err)
	text := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		text = apiErr.Message
	}
	return m.pushToast(router.LevelError, prefix+": "+text)
}

func (m Model) loadAppsCmd() tea.Cmd {
	api := m.api
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		page, err := api.ListMyApps(ctx, client.AppQuery{PageNum: 1, PageSize: listPageSize})
		return appsLoadedMsg{page: page, err: err}
	}
}

func (m Model) loadUsersCmd() tea.Cmd {
	api := m.api
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		page, err := api.ListUsers(ctx, client.UserQuery{PageNum: 1, PageSize: listPageSize})
		return usersLoadedMsg{page: page, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	api := m.api
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		return logoutDoneMsg{err: api.Logout(ctx)}
	}
}

func (m Model) refreshSessionCmd() tea.Cmd {
	store := m.store
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		_, err := store.FetchLoginUser(ctx)
		return sessionRefreshedMsg{err: err}
	}
}

func formWidth(width int) int {
	if width <= 0 {
		return 60
	}
	return min(max(width-8, MinWidth), 80)
}
