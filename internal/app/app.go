package app

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/logger"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/transport"
)

// App holds the pieces every command needs: parsed config, the logger and
// the production dialer.
type App struct {
	Logger *zap.SugaredLogger
	Config *Config
	Dialer *transport.Dialer
}

// Config is the app-level yaml config.
type Config struct {
	Client struct {
		SSHTimeout        int64  `yaml:"ssh_timeout"`
		LegacyKeyExchange string `yaml:"legacy_key_exchange"`
		LegacyAlgorithm   string `yaml:"legacy_algorithm"`
	} `yaml:"client"`
	Session struct {
		MaxConcurrency  int    `yaml:"max_concurrency"`
		DefaultUsername string `yaml:"default_username"`
		DefaultPassword string `yaml:"default_password"`
		DefaultSecret   string `yaml:"default_secret"`
	} `yaml:"session"`
	Data struct {
		OutputFolder string `yaml:"output_folder"`
	} `yaml:"data"`
	Logger logger.Config `yaml:"logger"`
}

// NewApp reads the config file and wires the logger and dialer.
func NewApp(cfgPath string) (*App, error) {
	cfg, err := readConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.Client.SSHTimeout <= 0 {
		cfg.Client.SSHTimeout = 10
	}
	return &App{
		Logger: logger.New(cfg.Logger),
		Config: cfg,
		Dialer: &transport.Dialer{
			Timeout:           cfg.Client.SSHTimeout,
			LegacyKeyExchange: cfg.Client.LegacyKeyExchange,
			LegacyAlgorithm:   cfg.Client.LegacyAlgorithm,
		},
	}, nil
}

func readConfig(cfgPath string) (*Config, error) {
	cfg := &Config{}
	if cfgPath == "" {
		return cfg, nil
	}
	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read app config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("cannot parse app config file: %w", err)
	}
	return cfg, nil
}

// Defaults returns the fallback credentials from the config. They used to
// be package-level mutable globals in the predecessor tool.
func (a *App) Defaults() device.Credentials {
	return device.Credentials{
		Username: a.Config.Session.DefaultUsername,
		Password: a.Config.Session.DefaultPassword,
		Secret:   a.Config.Session.DefaultSecret,
	}
}

// PrepareDirectory creates the output directory if needed.
func (a *App) PrepareDirectory(dir string) error {
	outDir := filepath.Join(dir)
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
			return fmt.Errorf("cannot create directory for outputs: %w", err)
		}
		a.Logger.Infof("Created output directory %q successfully", outDir)
	}
	return nil
}
