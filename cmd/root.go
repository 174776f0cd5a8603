package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/app"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/inventory"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/render"
)

var (
	cfgPath     string
	cfgData     string
	cfgTemplate string
	cfgOutput   string
	cfgUsername string
	cfgPassword string
	cfgSecret   string
	cfgThreads  int
)

var rootCmd = &cobra.Command{
	Use:   "fleet_admin",
	Short: "Render and push CLI commands to a fleet of network devices",
	Long: "Renders a command template against a device table and administers the fleet over " +
		"SSH/Telnet in concurrent batches, with per-device outcome tracking and protocol failover.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./config/config.yml", "Path to app config file")
	rootCmd.PersistentFlags().StringVarP(&cfgData, "data", "d", "", "Device table file (csv, yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&cfgTemplate, "template", "t", "", "Command template file")
	rootCmd.PersistentFlags().StringVarP(&cfgOutput, "output", "o", "", "Output directory for session artifacts")
	rootCmd.PersistentFlags().StringVarP(&cfgUsername, "username", "u", "", "Default username for device connections (or FLEET_ADMIN_USERNAME)")
	rootCmd.PersistentFlags().StringVarP(&cfgPassword, "password", "p", "", "Default password for device connections (or FLEET_ADMIN_PASSWORD)")
	rootCmd.PersistentFlags().StringVarP(&cfgSecret, "secret", "s", "", "Default enable secret (or FLEET_ADMIN_SECRET)")
	rootCmd.PersistentFlags().IntVar(&cfgThreads, "threads", 0, "Max number of simultaneous device batches")

	_ = viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username"))
	_ = viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))
	_ = viper.BindPFlag("secret", rootCmd.PersistentFlags().Lookup("secret"))

	viper.SetEnvPrefix("FLEET_ADMIN")
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		if v := viper.GetString("username"); v != "" {
			cfgUsername = v
		}
		if v := viper.GetString("password"); v != "" {
			cfgPassword = v
		}
		if v := viper.GetString("secret"); v != "" {
			cfgSecret = v
		}
	})

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
}

// loadFleet reads the device table, builds the fleet and assigns every
// device its rendered input.
func loadFleet(a *app.App) ([]*device.Device, error) {
	if cfgData == "" {
		return nil, fmt.Errorf("--data is required (path to device table)")
	}
	if cfgTemplate == "" {
		return nil, fmt.Errorf("--template is required (path to command template)")
	}

	a.Logger.Info("Decoding devices data...")
	rows, err := inventory.Load(cfgData)
	if err != nil {
		return nil, err
	}
	defaults := a.Defaults()
	if cfgUsername != "" {
		defaults.Username = cfgUsername
	}
	if cfgPassword != "" {
		defaults.Password = cfgPassword
	}
	if cfgSecret != "" {
		defaults.Secret = cfgSecret
	}
	devices, err := inventory.Devices(rows, defaults)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("Decoding devices data done")

	tmpl, err := readTemplate(cfgTemplate)
	if err != nil {
		return nil, err
	}
	if err := render.Assign(tmpl, rows, devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func readTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read template file: %w", err)
	}
	return string(data), nil
}

// sessionID derives the session id from the device table name.
func sessionID() string {
	base := filepath.Base(cfgData)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return "session"
	}
	return base
}

// outputDir resolves the artifact directory: the --output flag, then the
// config, then <table name>.<suffix> next to the device table.
func outputDir(a *app.App, suffix string) string {
	if cfgOutput != "" {
		return cfgOutput
	}
	if a.Config.Data.OutputFolder != "" {
		return a.Config.Data.OutputFolder
	}
	return strings.TrimSuffix(cfgData, filepath.Ext(cfgData)) + "." + suffix
}
