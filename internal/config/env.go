// Package config provides environment helpers for headpilot commands.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the environment is silent.
const (
	DefaultAddr     = ":8090"
	DefaultDataDir  = ".headpilot"
	DefaultLogLevel = "info"
)

// Environment variable names.
const (
	EnvAddr       = "HEADPILOT_ADDR"
	EnvDataDir    = "HEADPILOT_DATA_DIR"
	EnvLogLevel   = "HEADPILOT_LOG_LEVEL"
	EnvLogFile    = "HEADPILOT_LOG_FILE"
	EnvPreset     = "HEADPILOT_PRESET"
	EnvConfig     = "HEADPILOT_CONFIG"
	EnvMQTTBroker = "HEADPILOT_MQTT_BROKER"
	EnvMQTTUser   = "HEADPILOT_MQTT_USERNAME"
	EnvMQTTPass   = "HEADPILOT_MQTT_PASSWORD"
)

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// String returns the variable or def when unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Bool returns the variable parsed as a bool, or def when unset or invalid.
func Bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

// Duration returns the variable parsed as a duration, or def when unset or invalid.
func Duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// Paths locates the persisted documents.
type Paths struct {
	Baseline string
	Profile  string
	Settings string
	Log      string
}

// DataPaths returns the document paths under dir.
func DataPaths(dir string) Paths {
	return Paths{
		Baseline: filepath.Join(dir, "baseline.json"),
		Profile:  filepath.Join(dir, "profile.json"),
		Settings: filepath.Join(dir, "settings.json"),
		Log:      filepath.Join(dir, "headpilot.log"),
	}
}
