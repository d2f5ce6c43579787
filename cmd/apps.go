package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/client"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/output"
	"github.com/uloaix/aicode/internal/urlutil"
)

var appsCmd = &cobra.Command{
	Use:     "apps",
	Aliases: []string{"app"},
	Short:   "List my apps with their generation status",
	GroupID: "apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		q := client.AppQuery{}
		q.PageNum, _ = cmd.Flags().GetInt64("page")
		q.PageSize, _ = cmd.Flags().GetInt64("size")
		q.AppName, _ = cmd.Flags().GetString("name")

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		page, err := e.client.ListMyApps(ctx, q)
		if err != nil {
			return e.fail("查询应用失败", err)
		}

		if e.json {
			return output.JSON(page)
		}
		if len(page.Records) == 0 {
			output.Info("No apps yet. Create one with: aicode apps add --prompt \"...\"")
			return nil
		}
		width := output.TerminalWidth(100)
		for i := range page.Records {
			output.Info("%s", output.FormatAppShort(&page.Records[i].App, width))
		}
		output.Info("\npage %d/%d, %d total", page.PageNumber, page.TotalPage(), page.TotalRow)
		return nil
	},
}

var appsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an app from a prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		req := client.AddAppRequest{}
		req.InitPrompt, _ = cmd.Flags().GetString("prompt")
		req.AppName, _ = cmd.Flags().GetString("name")
		req.Cover, _ = cmd.Flags().GetString("cover")
		if req.InitPrompt == "" {
			if req.InitPrompt, err = prompt("初始化 prompt: "); err != nil {
				return err
			}
		}

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		id, err := e.client.AddApp(ctx, req)
		if err != nil {
			return e.fail("创建应用失败", err)
		}
		if e.json {
			return output.JSON(map[string]any{"id": id})
		}
		output.Success("CREATED app %d", id)
		return nil
	},
}

var appsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an app and its prompt",
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
		app, err := e.client.GetApp(ctx, id)
		if err != nil {
			return e.fail("查询应用失败", err)
		}
		if e.json {
			return output.JSON(app)
		}

		output.Info("%s", output.FormatAppShort(&app.App, 0))
		if app.User != nil {
			output.Info("Owner: %s", output.FormatUserShort(app.User))
		}
		if cover := urlutil.NormalizeAssetURL(app.Cover); cover != "" {
			output.Info("Cover: %s", cover)
		}
		output.Info("%s", output.SectionHeader("prompt"))
		rendered, err := output.RenderMarkdown(app.InitPrompt)
		if err != nil {
			rendered = app.InitPrompt
		}
		output.Info("%s", rendered)
		return nil
	},
}

var appsStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Set an app's generation status (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, ok := models.AppGenStatusFromValue(args[1])
		if !ok {
			return fmt.Errorf("invalid status %q", args[1])
		}
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := e.requestContext(cmd)
		defer cancel()
		if err := e.client.UpdateAppStatus(ctx, id, status); err != nil {
			return e.fail("更新状态失败", err)
		}
		if !e.json {
			output.Success("app %d %s", id, output.FormatGenStatus(string(status)))
		}
		return nil
	},
}

func init() {
	appsCmd.Flags().Int64("page", 1, "page number")
	appsCmd.Flags().Int64("size", 10, "page size (at most 20)")
	appsCmd.Flags().String("name", "", "filter by app name substring")

	appsAddCmd.Flags().String("prompt", "", "initial prompt (prompted when empty)")
	appsAddCmd.Flags().String("name", "", "app name (derived from the prompt when empty)")
	appsAddCmd.Flags().String("cover", "", "cover image URL")

	appsCmd.AddCommand(appsAddCmd, appsShowCmd, appsStatusCmd)
	rootCmd.AddCommand(appsCmd)
}
