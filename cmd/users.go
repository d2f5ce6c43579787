package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/output"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "List users (admin)",
	GroupID: "admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		q := client.UserQuery{}
		q.PageNum, _ = cmd.Flags().GetInt64("page")
		q.PageSize, _ = cmd.Flags().GetInt64("size")
		q.UserAccount, _ = cmd.Flags().GetString("account")
		q.UserName, _ = cmd.Flags().GetString("name")
		q.UserRole, _ = cmd.Flags().GetString("role")
		q.SortField, _ = cmd.Flags().GetString("sort")
		q.SortOrder, _ = cmd.Flags().GetString("order")

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		page, err := e.client.ListUsers(ctx, q)
		if err != nil {
			return e.fail("查询用户失败", err)
		}

		if e.json {
			return output.JSON(page)
		}
		if len(page.Records) == 0 {
			output.Info("No users found.")
			return nil
		}
		for i := range page.Records {
			output.Info("%s", output.FormatUserShort(&page.Records[i]))
		}
		output.Info("%s", fmt.Sprintf("\npage %d/%d, %d total", page.PageNumber, page.TotalPage(), page.TotalRow))
		return nil
	},
}

var usersAddCmd = &cobra.Command{
	Use:   "add <account>",
	Short: "Add a user with the default password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		req := client.AddUserRequest{UserAccount: args[0]}
		req.UserName, _ = cmd.Flags().GetString("name")
		req.UserRole, _ = cmd.Flags().GetString("role")

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		id, err := e.client.AddUser(ctx, req)
		if err != nil {
			return e.fail("添加用户失败", err)
		}
		if e.json {
			return output.JSON(map[string]any{"id": id})
		}
		output.Success("ADDED user %s (id %d)", args[0], id)
		return nil
	},
}

var usersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		u, err := e.client.GetUser(ctx, id)
		if err != nil {
			return e.fail("查询用户失败", err)
		}
		if e.json {
			return output.JSON(u)
		}
		output.Info("%s", output.FormatUserShort(u))
		if u.UserProfile != "" {
			output.Info("%s", output.IndentString(u.UserProfile, 2))
		}
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		if err := e.client.DeleteUser(ctx, id); err != nil {
			return e.fail("删除用户失败", err)
		}
		if !e.json {
			output.Success("DELETED user %d", id)
		}
		return nil
	},
}

var usersRoleCmd = &cobra.Command{
	Use:   "role <id> <user|admin>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		role := models.UserRole(args[1])
		if !role.IsValid() {
			return fmt.Errorf("invalid role %q (want user or admin)", args[1])
		}
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		r := string(role)
		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		if err := e.client.UpdateUser(ctx, client.UpdateUserRequest{ID: id, UserRole: &r}); err != nil {
			return e.fail("修改角色失败", err)
		}
		if !e.json {
			output.Success("user %d is now %s", id, role)
		}
		return nil
	},
}

func init() {
	f := usersCmd.Flags()
	f.Int64("page", 1, "page number")
	f.Int64("size", 10, "page size (at most 100)")
	f.String("account", "", "filter by account substring")
	f.String("name", "", "filter by name substring")
	f.String("role", "", "filter by role (user, admin)")
	f.String("sort", "", "sort field (id, userAccount, userName, userRole, createTime)")
	f.String("order", "", "sort order (ascend, descend)")

	usersAddCmd.Flags().String("name", "", "display name")
	usersAddCmd.Flags().String("role", "", "role (user, admin)")

	usersCmd.AddCommand(usersAddCmd, usersShowCmd, usersDeleteCmd, usersRoleCmd)
	rootCmd.AddCommand(usersCmd)
}
