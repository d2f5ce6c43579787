package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/uloaix/aicode/internal/clientconfig"
	"github.com/uloaix/aicode/internal/output"
	"github.com/uloaix/aicode/internal/router"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"server_url",
	"timeout",
	"log_level",
	"start_path",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// setConfigValue validates val and stores it on cfg.
func setConfigValue(cfg *clientconfig.Config, key, val string) error {
	switch key {
	case "server_url":
		if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
			return fmt.Errorf("server_url must start with http:// or https://")
		}
		cfg.ServerURL = strings.TrimRight(val, "/")
	case "timeout":
		if d, err := time.ParseDuration(val); err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout %q (e.g. 15s)", val)
		}
		cfg.Timeout = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level %q (debug, info, warn, error)", val)
		}
	case "start_path":
		cfg.StartPath = router.NormalizeLocation(val)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func getConfigValue(cfg *clientconfig.Config, key string) string {
	switch key {
	case "server_url":
		return cfg.ResolveServerURL()
	case "timeout":
		return cfg.ResolveTimeout().String()
	case "log_level":
		if cfg.LogLevel == "" {
			return "info"
		}
		return cfg.LogLevel
	case "start_path":
		return cfg.ResolveStartPath()
	}
	return ""
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage aicode configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if !isValidConfigKey(key) {
			output.Error("unknown config key: %s", key)
			output.Info("Valid keys: %s", strings.Join(validConfigKeys, ", "))
			return fmt.Errorf("unknown config key: %s", key)
		}

		dir, err := clientconfig.Dir()
		if err != nil {
			return err
		}
		var setErr error
		err = clientconfig.Update(dir, func(cfg *clientconfig.Config) {
			setErr = setConfigValue(cfg, key, val)
		})
		if setErr != nil {
			output.Error("%v", setErr)
			return setErr
		}
		if err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("Set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show config values (effective, after env overrides)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := clientconfig.Dir()
		if err != nil {
			return err
		}
		cfg, err := clientconfig.Load(dir)
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		keys := validConfigKeys
		if len(args) == 1 {
			if !isValidConfigKey(args[0]) {
				return fmt.Errorf("unknown config key: %s", args[0])
			}
			keys = args
		}

		values := make(map[string]string, len(keys))
		for _, k := range keys {
			values[k] = getConfigValue(cfg, k)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(values)
		}
		if len(keys) == 1 {
			output.Info("%s", values[keys[0]])
			return nil
		}
		for _, k := range keys {
			output.Info("%s = %s", k, values[k])
		}
		output.Info("\nconfig dir: %s", dir)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd)
	rootCmd.AddCommand(configCmd)
}
