// Package config loads the program configuration from the config file,
// writing one with defaults on first run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/takaotokuno/focusguard/timer"
)

var (
	appDir         = "focusguard"
	configFileName = "config.yml"
	dbFileName     = "focusguard.db"
	logFileName    = "focusguard.log"
	statusFileName = "status.json"
)

const (
	keyBlockDomains = "block.domains"
	keyRedirectPath = "block.redirect_path"
	keyHostsFile    = "block.hosts_file"
	keySoundFile    = "sound.file"
	keyNotify       = "notifications.enabled"
	keySessionCmd   = "settings.session_cmd"
	keyDefaultTotal = "settings.default_total_mins"
	keyListenAddr   = "bridge.listen_addr"
)

// DefaultBlockDomains is the curated block list installed during work
// sessions. The order matters: rule ids derive from list positions.
var DefaultBlockDomains = []string{
	"x.com",
	"twitter.com",
	"instagram.com",
	"facebook.com",
	"tiktok.com",
	"youtube.com",
	"reddit.com",
	"pixiv.net",
	"nicovideo.jp",
	"syosetu.com",
	"read.amazon.co.jp/manga",
}

// DefaultListenAddr is where the bridge listens for command messages.
const DefaultListenAddr = "127.0.0.1:42815"

// Config is the program configuration.
type Config struct {
	BlockDomains     []string
	RedirectPath     string
	HostsFilePath    string
	SoundFile        string
	NotifyEnabled    bool
	SessionCmd       string
	DefaultTotalMins int
	ListenAddr       string

	PathToConfig string
	PathToDB     string
	PathToLog    string
	PathToStatus string
}

func init() {
	if os.Getenv("FOCUSGUARD_ENV") == "development" {
		configFileName = "config_dev.yml"
		dbFileName = "focusguard_dev.db"
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBlockDomains, DefaultBlockDomains)
	v.SetDefault(keyRedirectPath, "/src/ui/ui.html")
	v.SetDefault(keyHostsFile, "/etc/hosts")
	v.SetDefault(keySoundFile, "")
	v.SetDefault(keyNotify, true)
	v.SetDefault(keySessionCmd, "")
	v.SetDefault(keyDefaultTotal, timer.DefaultTotalMinutes)
	v.SetDefault(keyListenAddr, DefaultListenAddr)
}

// Get reads the configuration, creating the config file with defaults when
// it does not exist yet.
func Get() (*Config, error) {
	pathToConfig, err := xdg.ConfigFile(filepath.Join(appDir, configFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInitFailed, err)
	}

	pathToDB, err := xdg.DataFile(filepath.Join(appDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInitFailed, err)
	}

	pathToLog, err := xdg.StateFile(filepath.Join(appDir, logFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInitFailed, err)
	}

	pathToStatus, err := xdg.StateFile(filepath.Join(appDir, statusFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInitFailed, err)
	}

	v := viper.New()
	v.SetConfigFile(pathToConfig)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) &&
			!errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", errInitFailed, err)
		}

		if err := v.WriteConfig(); err != nil {
			return nil, fmt.Errorf("%w: %w", errInitFailed, err)
		}
	}

	cfg := &Config{
		BlockDomains:     v.GetStringSlice(keyBlockDomains),
		RedirectPath:     v.GetString(keyRedirectPath),
		HostsFilePath:    v.GetString(keyHostsFile),
		SoundFile:        v.GetString(keySoundFile),
		NotifyEnabled:    v.GetBool(keyNotify),
		SessionCmd:       v.GetString(keySessionCmd),
		DefaultTotalMins: v.GetInt(keyDefaultTotal),
		ListenAddr:       v.GetString(keyListenAddr),
		PathToConfig:     pathToConfig,
		PathToDB:         pathToDB,
		PathToLog:        pathToLog,
		PathToStatus:     pathToStatus,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.BlockDomains) == 0 {
		return errNoBlockDomains
	}

	if c.DefaultTotalMins < timer.MinTotalMinutes ||
		c.DefaultTotalMins > timer.MaxTotalMinutes {
		return fmt.Errorf(
			"%w: default_total_mins must be between %d and %d",
			errInvalidConfig,
			timer.MinTotalMinutes,
			timer.MaxTotalMinutes,
		)
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("%w: bridge.listen_addr must not be empty", errInvalidConfig)
	}

	return nil
}

// IconPath returns the notification icon if one has been installed in the
// data directory. An empty result is fine: notifications then go out
// without an icon.
func IconPath() string {
	path, err := xdg.SearchDataFile(filepath.Join(appDir, "static", "icon.png"))
	if err != nil {
		return ""
	}

	return path
}
