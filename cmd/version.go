package cmd

import (
	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/output"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the client version",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(map[string]string{"version": version})
		}
		output.Info("aicode %s", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
