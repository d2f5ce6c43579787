package tui

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"
	"github.com/uloaix/aicode/internal/models"
)

// Validation messages match the server's so a rejected form reads the same
// whichever side catches it.
var (
	errAccountShort  = errors.New("用户账号过短")
	errPasswordShort = errors.New("用户密码过短")
	errPasswordMatch = errors.New("两次输入的密码不一致")
	errNameRequired  = errors.New("用户名不能为空")
)

const (
	minAccountLen  = 4
	minPasswordLen = 8
)

// FormKind identifies which form is open.
type FormKind string

const (
	FormLogin    FormKind = "login"
	FormRegister FormKind = "register"
	FormProfile  FormKind = "profile"
)

// formState holds a huh form and the values it binds.
type formState struct {
	Kind FormKind
	Form *huh.Form

	Account       string
	Password      string
	CheckPassword string

	UserName    string
	UserAvatar  string
	UserProfile string
}

func validateAccount(s string) error {
	if utf8.RuneCountInString(strings.TrimSpace(s)) < minAccountLen {
		return errAccountShort
	}
	return nil
}

func validatePassword(s string) error {
	if utf8.RuneCountInString(s) < minPasswordLen {
		return errPasswordShort
	}
	return nil
}

func newLoginForm(width int) *formState {
	fs := &formState{Kind: FormLogin}
	fs.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("账号").
				Placeholder("请输入账号").
				Value(&fs.Account).
				Validate(validateAccount),
			huh.NewInput().
				Title("密码").
				Placeholder("请输入密码").
				EchoMode(huh.EchoModePassword).
				Value(&fs.Password).
				Validate(validatePassword),
		).Title("用户登录"),
	).WithShowHelp(false).WithWidth(width)
	return fs
}

func newRegisterForm(width int) *formState {
	fs := &formState{Kind: FormRegister}
	fs.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("账号").
				Placeholder("至少 4 位").
				Value(&fs.Account).
				Validate(validateAccount),
			huh.NewInput().
				Title("密码").
				Placeholder("至少 8 位").
				EchoMode(huh.EchoModePassword).
				Value(&fs.Password).
				Validate(validatePassword),
			huh.NewInput().
				Title("确认密码").
				EchoMode(huh.EchoModePassword).
				Value(&fs.CheckPassword).
				Validate(func(s string) error {
					if s != fs.Password {
						return errPasswordMatch
					}
					return nil
				}),
		).Title("用户注册"),
	).WithShowHelp(false).WithWidth(width)
	return fs
}

func newProfileForm(u *models.LoginUser, width int) *formState {
	fs := &formState{Kind: FormProfile}
	if u != nil {
		fs.UserName = u.UserName
		fs.UserAvatar = u.UserAvatar
		fs.UserProfile = u.UserProfile
	}
	fs.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("用户名").
				Value(&fs.UserName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errNameRequired
					}
					return nil
				}),
			huh.NewInput().
				Title("头像").
				Placeholder("https://...").
				Value(&fs.UserAvatar),
			huh.NewText().
				Title("简介").
				Placeholder("支持 Markdown").
				Lines(4).
				Value(&fs.UserProfile),
		).Title("编辑资料"),
	).WithShowHelp(false).WithWidth(width)
	return fs
}
