package logging

import (
	"strings"

	"github.com/creasty/defaults"
	"go.uber.org/zap/zapcore"
)

// Config controls where install logs go and how they are encoded.
type Config struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `mapstructure:"level" json:"level" yaml:"level" default:"info" validate:"oneof=debug info warn error dpanic panic fatal DEBUG INFO WARN ERROR"`

	// Format is json or console.
	Format string `mapstructure:"format" json:"format" yaml:"format" default:"json" validate:"oneof=json console"`

	// Director is the root directory for log files. Files are written to
	// Director/<date>/<level>.log.
	Director string `mapstructure:"director" json:"director" yaml:"director" default:"logs"`

	// FileOutput enables the rotated per-level files.
	FileOutput bool `mapstructure:"file-output" json:"fileOutput" yaml:"file-output" default:"false"`

	// LogInTerminal also writes to stdout.
	LogInTerminal bool `mapstructure:"log-in-terminal" json:"logInTerminal" yaml:"log-in-terminal" default:"true"`

	TimeFormat string `mapstructure:"time-format" json:"timeFormat" yaml:"time-format" default:"2006-01-02T15:04:05.000Z07:00"`

	// MaxSize is the size in megabytes before a file is rotated.
	MaxSize    int  `mapstructure:"max-size" json:"maxSize" yaml:"max-size" default:"100" validate:"gte=0"`
	MaxAge     int  `mapstructure:"max-age" json:"maxAge" yaml:"max-age" default:"7" validate:"gte=0"`
	MaxBackups int  `mapstructure:"max-backups" json:"maxBackups" yaml:"max-backups" default:"10" validate:"gte=0"`
	Compress   bool `mapstructure:"compress" json:"compress" yaml:"compress" default:"true"`

	// ShowCaller adds the caller to every entry.
	ShowCaller bool `mapstructure:"show-caller" json:"showCaller" yaml:"show-caller" default:"true"`
}

// DefaultConfig returns a Config populated from the default tags.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// ZapLevel converts Level. Unknown values fall back to info.
func (c Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// applyDefaults fills empty string and numeric fields. Booleans are left
// alone since false is a meaningful setting.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Director == "" {
		c.Director = d.Director
	}
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.MaxSize == 0 {
		c.MaxSize = d.MaxSize
	}
	if c.MaxAge == 0 {
		c.MaxAge = d.MaxAge
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = d.MaxBackups
	}
}
