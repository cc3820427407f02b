package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

// Config holds process-level knobs read once at startup. Everything the
// operator can change at runtime lives in the settings store instead.
type Config struct {
	Bind     string
	Port     int
	LogLevel zerolog.Level
	DataDir  string
}

func FromEnv() Config {
	bind := "0.0.0.0"
	if v := os.Getenv("WIFIMGR_BIND"); v != "" {
		bind = v
	}

	port := 8080
	if v := os.Getenv("WIFIMGR_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			port = p
		}
	}

	level := zerolog.InfoLevel
	if v := os.Getenv("WIFIMGR_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			level = l
		}
	}

	dataDir := "/var/lib/wifimand"
	if v := os.Getenv("WIFIMGR_DATA_DIR"); v != "" {
		dataDir = v
	}

	return Config{
		Bind:     bind,
		Port:     port,
		LogLevel: level,
		DataDir:  dataDir,
	}
}

// SettingsPath returns the location of the persisted settings document.
func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}
