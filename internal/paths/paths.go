// Package paths resolves the thingstore configuration and data
// directories, and the local persistence directory beneath the data
// directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "thingstore"

// CWD-relative directory names used when nothing else is configured.
const (
	DefaultConfigDirName = ".thingstore"
	DefaultDataDirName   = ".thingstore-db"
	RecordsDirName       = "records"
)

// Environment variable names for directory overrides. They are read here,
// at the CLI edge, and never by the store or the persistence layer.
const (
	EnvConfigDir = "THINGSTORE_CONFIG_DIR"
	EnvDataDir   = "THINGSTORE_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns $xdgVar/thingstore or ~/<fallback...>/thingstore on
// Linux, and os.UserConfigDir()/thingstore elsewhere.
func userDir(xdgVar string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...), nil
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/thingstore (fallback ~/.config/thingstore)
// macOS:   ~/Library/Application Support/thingstore
// Windows: %APPDATA%/thingstore
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory.
//
// Linux:   $XDG_DATA_HOME/thingstore (fallback ~/.local/share/thingstore)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the absolute form of the first non-empty candidate.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir follows flag > THINGSTORE_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir follows flag > config value > THINGSTORE_DATA_DIR >
// $(CWD)/.thingstore-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveRecordsDir returns the local persistence directory: configValue
// when set, otherwise dataDir/records.
func ResolveRecordsDir(dataDir, configValue string) (string, error) {
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	return filepath.Join(dataDir, RecordsDirName), nil
}
