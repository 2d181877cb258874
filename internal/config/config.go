// Package config loads nudge settings from <state>/config.yaml and NUDGE_*
// environment variables on top of built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys
const (
	KeyStateDir             = "state-dir"
	KeyCheckTimeout         = "check.timeout"
	KeySpeakCommand         = "speak.command"
	KeySpeakTimeout         = "speak.timeout"
	KeyReminderInterval     = "reminder.interval-minutes"
	KeyReminderMax          = "reminder.max"
	KeyReminderUrgentAfter  = "reminder.urgent-after-minutes"
	KeyNotifyTimeout        = "notify.timeout"
	KeyTemplatesFile        = "templates-file"
	configFileName          = "config.yaml"
	defaultStateDirBaseName = ".nudge"
)

var (
	v        *viper.Viper
	stateDir string
)

// DefaultStateDir is ~/.nudge, or .nudge in the working directory when the
// home directory cannot be determined.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return defaultStateDirBaseName
	}
	return filepath.Join(home, defaultStateDirBaseName)
}

// ResolveStateDir picks the state directory: an explicit override, then
// NUDGE_STATE_DIR, then the default.
func ResolveStateDir(override string) string {
	if override != "" {
		return filepath.Clean(override)
	}
	if env := os.Getenv("NUDGE_STATE_DIR"); env != "" {
		return filepath.Clean(env)
	}
	return DefaultStateDir()
}

// Initialize sets up the viper configuration singleton. stateDirOverride
// is the --state-dir flag and may be empty.
func Initialize(stateDirOverride string) error {
	v = viper.New()
	v.SetEnvPrefix("NUDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerDefaults()

	stateDir = ResolveStateDir(stateDirOverride)
	v.Set(KeyStateDir, stateDir)

	path := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func registerDefaults() {
	speak := ""
	if runtime.GOOS == "darwin" {
		speak = "say"
	}
	v.SetDefault(KeyCheckTimeout, 60*time.Second)
	v.SetDefault(KeySpeakCommand, speak)
	v.SetDefault(KeySpeakTimeout, 10*time.Second)
	v.SetDefault(KeyReminderInterval, 5)
	v.SetDefault(KeyReminderMax, 3)
	v.SetDefault(KeyReminderUrgentAfter, 15)
	v.SetDefault(KeyNotifyTimeout, 15*time.Second)
	v.SetDefault(KeyTemplatesFile, "")
}

// ResetForTesting drops the singleton so tests can re-initialize.
func ResetForTesting() {
	v = nil
	stateDir = ""
}

// StateDir returns the resolved state directory.
func StateDir() string {
	if stateDir == "" {
		return ResolveStateDir("")
	}
	return stateDir
}

// ConfigPath is <state>/config.yaml.
func ConfigPath() string {
	return filepath.Join(StateDir(), configFileName)
}

// TemplatesPath is the speech templates file, <state>/templates.toml unless
// templates-file says otherwise.
func TemplatesPath() string {
	if p := GetString(KeyTemplatesFile); p != "" {
		return p
	}
	return filepath.Join(StateDir(), "templates.toml")
}

// GetString retrieves a string value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt retrieves an integer value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration value. Plain integers are read as seconds.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	raw := v.GetString(key)
	if isNumeric(raw) && !strings.Contains(raw, ".") {
		return time.Duration(v.GetInt(key)) * time.Second
	}
	return v.GetDuration(key)
}

// Minutes reads an integer minutes key as a duration.
func Minutes(key string) time.Duration {
	return time.Duration(GetInt(key)) * time.Minute
}

// Set overrides a value for the current process only.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// Setting is one effective configuration value.
type Setting struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// KnownKeys lists the keys nudge reads.
func KnownKeys() []string {
	return []string{
		KeyStateDir,
		KeyCheckTimeout,
		KeySpeakCommand,
		KeySpeakTimeout,
		KeyReminderInterval,
		KeyReminderMax,
		KeyReminderUrgentAfter,
		KeyNotifyTimeout,
		KeyTemplatesFile,
	}
}

// IsKnownKey reports whether key is one nudge reads.
func IsKnownKey(key string) bool {
	for _, k := range KnownKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// AllSettings returns the effective value and source of every known key.
func AllSettings() []Setting {
	out := make([]Setting, 0, len(KnownKeys()))
	for _, k := range KnownKeys() {
		out = append(out, Setting{Key: k, Value: GetString(k), Source: source(k)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func source(key string) string {
	if key == KeyStateDir {
		if os.Getenv("NUDGE_STATE_DIR") != "" {
			return "env"
		}
		return "flag/default"
	}
	env := "NUDGE_" + strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToUpper(key))
	if _, ok := os.LookupEnv(env); ok {
		return "env"
	}
	if v != nil && v.InConfig(key) {
		return "config.yaml"
	}
	return "default"
}
