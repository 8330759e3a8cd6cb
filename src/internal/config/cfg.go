package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/go-utilities/file"
)

// ValueKey represents value keys for contexts
type ValueKey string

const (
	// KeyCfg is the key for the collserv configuration
	KeyCfg ValueKey = "cfg"
	// KeyVersion is the key for the collserv version
	KeyVersion ValueKey = "version"
)

const (
	// CfgDir is the directory where the collserv configuration is stored
	CfgDir = "/etc/collserv"
	// path of collserv configuration file
	cfgFilepath = CfgDir + "/config.json"
	// EnvCfgFile overrides the configuration file path
	EnvCfgFile = "COLLSERV_CONFIG"
)

// environment variables consumed by the core
const (
	EnvMusicRoot = "MUSIC_ROOT_PATH"
	EnvCacheDays = "CACHE_DURATION_DAYS"
	EnvLogLevel  = "LOG_LEVEL"
)

// content update modes
const (
	UpdModeScan   = "scan"   // update via regular scans
	UpdModeNotify = "notify" // update via fsnotify
)

// defaults
const (
	defaultCacheDays      = 30
	defaultLogLevel       = "info"
	defaultUpdateMode     = UpdModeScan
	defaultUpdateInterval = 300 // seconds
)

// Cfg stores the collserv configuration. It is assembled from the optional
// configuration file and the environment; the environment wins. The music
// root and the cache duration are process-wide and must not change after the
// first operation has started.
type Cfg struct {
	MusicRoot         string        `json:"music_root"`
	CacheDurationDays int           `json:"cache_duration_days"`
	LogLevel          string        `json:"log_level"`
	LogDir            string        `json:"log_dir"`
	UpdateMode        string        `json:"update_mode"`
	UpdateInterval    time.Duration `json:"update_interval"`
}

// Load assembles the configuration from the optional config file and the
// environment and applies the defaults
func Load() (cfg Cfg, err error) {
	cfg = Cfg{
		CacheDurationDays: defaultCacheDays,
		LogLevel:          defaultLogLevel,
		UpdateMode:        defaultUpdateMode,
		UpdateInterval:    defaultUpdateInterval,
	}

	path := cfgFilepath
	if p := os.Getenv(EnvCfgFile); p != "" {
		path = p
	}
	exists, err := file.Exists(path)
	if err != nil {
		return Cfg{}, errors.Wrapf(err, "cannot check config file '%s'", path)
	}
	if exists {
		data, err := os.ReadFile(path)
		if err != nil {
			return Cfg{}, errors.Wrapf(err, "config file '%s' couldn't be read", path)
		}
		if err = json.Unmarshal(data, &cfg); err != nil {
			return Cfg{}, errors.Wrapf(err, "config file '%s' couldn't be unmarshalled", path)
		}
	}

	if root := os.Getenv(EnvMusicRoot); root != "" {
		cfg.MusicRoot = root
	}
	if days := os.Getenv(EnvCacheDays); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil {
			return Cfg{}, fmt.Errorf("%s must be an integer - got '%s'", EnvCacheDays, days)
		}
		cfg.CacheDurationDays = n
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	return
}

// Validate checks if the configuration is complete and correct. If it's not,
// an error is returned
func (me *Cfg) Validate() (err error) {
	if me.MusicRoot == "" {
		err = fmt.Errorf("%s must be set", EnvMusicRoot)
		return
	}
	if !filepath.IsAbs(me.MusicRoot) {
		err = fmt.Errorf("music root '%s' is not absolute", me.MusicRoot)
		return
	}
	var exists bool
	if exists, err = file.Exists(me.MusicRoot); err != nil {
		err = errors.Wrapf(err, "cannot check if music root '%s' exists", me.MusicRoot)
		return
	}
	if !exists {
		err = fmt.Errorf("music root '%s' doesn't exist", me.MusicRoot)
		return
	}

	if me.CacheDurationDays <= 0 {
		err = fmt.Errorf("cache_duration_days must be > 0")
		return
	}

	if me.UpdateMode != UpdModeScan && me.UpdateMode != UpdModeNotify {
		err = fmt.Errorf("unknown update_mode '%s'", me.UpdateMode)
		return
	}
	if me.UpdateInterval <= 0 {
		err = fmt.Errorf("update_interval must be > 0")
		return
	}

	if me.LogDir != "" {
		if !filepath.IsAbs(me.LogDir) {
			err = fmt.Errorf("log_dir '%s' is not absolute", me.LogDir)
			return
		}
		if exists, err = file.Exists(me.LogDir); err != nil {
			err = errors.Wrapf(err, "cannot check if log_dir '%s' exists", me.LogDir)
			return
		}
		if !exists {
			err = fmt.Errorf("log_dir '%s' doesn't exist", me.LogDir)
			return
		}
	}

	return
}

// Test reads the configuration and checks it for completeness and
// consistency
func Test() (err error) {
	var cfg Cfg

	if cfg, err = Load(); err != nil {
		err = errors.Wrap(err, "the collserv configuration couldn't be read")
		return
	}

	if err = cfg.Validate(); err != nil {
		return
	}

	fmt.Println("Congrats: The collserv configuration is complete and consistent :)")
	return
}
