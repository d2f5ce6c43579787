package cmd

import (
	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status [value]",
	Short: "Show the badge for a generation status",
	Long: `Prints the label and color used for a generation status value. Unknown or
empty values show the "not generated" badge. Without a value, lists every status.`,
	GroupID: "apps",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		if len(args) == 0 {
			if jsonOut {
				return output.JSON(models.AppGenStatusOptions)
			}
			for _, meta := range models.AppGenStatusOptions {
				output.Info("%s%s%s", padRight(string(meta.Value), 16), padRight(output.FormatGenStatus(string(meta.Value)), 12), meta.Color)
			}
			return nil
		}

		meta := models.GetAppGenStatusMeta(args[0])
		if jsonOut {
			return output.JSON(meta)
		}
		output.Info("%s  %s", output.FormatGenStatus(args[0]), meta.Color)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
