package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/clientconfig"
	"github.com/uloaix/aicode/internal/output"
	"golang.org/x/term"
)

var (
	stdin       io.Reader = os.Stdin
	stdinReader *bufio.Reader
)

// prompt reads one line from stdin after printing label.
func prompt(label string) (string, error) {
	fmt.Fprint(output.Stdout, label)
	if stdinReader == nil {
		stdinReader = bufio.NewReader(stdin)
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(label string) (string, error) {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(label)
	}
	fmt.Fprint(output.Stdout, label)
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(output.Stdout)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// flagOrPrompt returns the flag value, prompting when it is empty.
func flagOrPrompt(cmd *cobra.Command, name, label string, secret bool) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v != "" {
		return v, nil
	}
	if secret {
		return promptPassword(label)
	}
	return prompt(label)
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in and store the session",
	GroupID: "session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		account, err := flagOrPrompt(cmd, "account", "账号: ", false)
		if err != nil {
			return err
		}
		password, err := flagOrPrompt(cmd, "password", "密码: ", true)
		if err != nil {
			return err
		}

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		resp, err := e.client.Login(ctx, account, password)
		if err != nil {
			return e.fail("登录失败", err)
		}
		if err := e.saveSession(resp); err != nil {
			return e.fail("保存会话失败", err)
		}
		e.logger.Info("logged in", "account", resp.UserAccount, "server", e.serverURL)

		if e.json {
			return output.JSON(resp.LoginUser)
		}
		output.Success("登录成功: %s", resp.UserAccount)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create an account",
	GroupID: "session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		account, err := flagOrPrompt(cmd, "account", "账号: ", false)
		if err != nil {
			return err
		}
		password, err := flagOrPrompt(cmd, "password", "密码: ", true)
		if err != nil {
			return err
		}
		check, _ := cmd.Flags().GetString("check-password")
		if check == "" {
			if cmd.Flags().Changed("password") {
				check = password
			} else if check, err = promptPassword("确认密码: "); err != nil {
				return err
			}
		}

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		id, err := e.client.Register(ctx, account, password, check)
		if err != nil {
			return e.fail("注册失败", err)
		}

		if e.json {
			return output.JSON(map[string]any{"id": id})
		}
		output.Success("注册成功 (id %d)，请使用 aicode login 登录", id)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "End the session on the server and forget it locally",
	GroupID: "session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.client.Token != "" {
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.client.Logout(ctx); err != nil && !errors.Is(err, client.ErrNotLogin) {
				output.Warning("server logout failed: %v", err)
			}
		}
		if err := clientconfig.ClearAuth(e.dir); err != nil {
			return e.fail("清除会话失败", err)
		}
		if !e.json {
			output.Success("已退出登录")
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged-in user",
	GroupID: "session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		u, err := e.client.GetLoginUser(ctx)
		if errors.Is(err, client.ErrNotLogin) {
			if e.json {
				return output.JSON(nil)
			}
			output.Info("Not logged in.")
			return nil
		}
		if err != nil {
			return e.fail("获取登录用户失败", err)
		}

		if e.json {
			return output.JSON(u)
		}
		output.Info("%s", output.FormatLoginUser(u))
		output.Info("Server: %s", e.serverURL)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("account", "", "account (prompted when empty)")
	loginCmd.Flags().String("password", "", "password (prompted when empty)")
	registerCmd.Flags().String("account", "", "account, at least 4 characters")
	registerCmd.Flags().String("password", "", "password, at least 8 characters")
	registerCmd.Flags().String("check-password", "", "password confirmation (defaults to --password)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
