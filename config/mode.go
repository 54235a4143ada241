package config

import (
	"os"
	"strings"
)

// ModeKey is the environment variable selecting the run mode.
const ModeKey = "GO_ENV_MODE"

// Mode selects which layered config files are read.
type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// ParseMode normalises a mode name. Unknown values mean development.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads ModeKey from the environment.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(ModeKey))
}

// aliases lists the file suffixes accepted for m, canonical name first.
func (m Mode) aliases() []string {
	switch m {
	case ProMode:
		return []string{"production", "prod", "pro"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
