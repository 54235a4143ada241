package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/leeforge/addonstate/addon"
	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/logging"
	"github.com/leeforge/addonstate/store"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// AppConfig is the full service configuration.
type AppConfig struct {
	Logging    logging.Config    `mapstructure:"logging" yaml:"logging"`
	Redis      store.RedisConfig `mapstructure:"redis" yaml:"redis"`
	Store      StoreConfig       `mapstructure:"store" yaml:"store"`
	Tracking   TrackingConfig    `mapstructure:"tracking" yaml:"tracking"`
	Controller ControllerConfig  `mapstructure:"controller" yaml:"controller"`
	Bus        BusConfig         `mapstructure:"bus" yaml:"bus"`
	HTTP       HTTPConfig        `mapstructure:"http" yaml:"http"`
}

// StoreConfig selects where install records live.
type StoreConfig struct {
	Backend    string        `mapstructure:"backend" yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	Prefix     string        `mapstructure:"prefix" yaml:"prefix" default:"addonstate" validate:"required"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	MaxRetries int           `mapstructure:"max-retries" yaml:"max-retries" default:"5" validate:"gte=1"`
}

// TrackingConfig controls analytics delivery.
type TrackingConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled" default:"true"`
	Async     bool          `mapstructure:"async" yaml:"async" default:"true"`
	Workers   int           `mapstructure:"workers" yaml:"workers" default:"2" validate:"gte=1"`
	QueueSize int           `mapstructure:"queue-size" yaml:"queue-size" default:"256" validate:"gte=1"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" default:"5s" validate:"gt=0"`
}

// ControllerConfig holds per-client settings shared by every controller.
type ControllerConfig struct {
	// Platform picks the add-on file to install.
	Platform string `mapstructure:"platform" yaml:"platform" default:"all" validate:"oneof=all android linux mac windows"`

	// InstallWorkers bounds concurrent background installs.
	InstallWorkers int `mapstructure:"install-workers" yaml:"install-workers" default:"4" validate:"gte=1"`
	InstallQueue   int `mapstructure:"install-queue" yaml:"install-queue" default:"64" validate:"gte=1"`
}

// BusConfig sizes the notification bus.
type BusConfig struct {
	BufferSize int `mapstructure:"buffer-size" yaml:"buffer-size" default:"1024" validate:"gte=1"`
}

// HTTPConfig configures the status API.
type HTTPConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled" default:"true"`
	Addr         string        `mapstructure:"addr" yaml:"addr" default:":8080" validate:"required_if=Enabled true"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout" yaml:"read-timeout" default:"10s"`
	WriteTimeout time.Duration `mapstructure:"write-timeout" yaml:"write-timeout" default:"10s"`
}

// PlatformValue returns the configured platform as an addon.Platform.
func (c ControllerConfig) PlatformValue() addon.Platform {
	return addon.Platform(c.Platform)
}

// Default returns an AppConfig holding only default values.
func Default() *AppConfig {
	cfg := &AppConfig{}
	_ = defaults.Set(cfg)
	return cfg
}

var validate = validator.New()

// Validate checks every section and reports all failing fields at once.
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid configuration")
	}

	appErr := apperrors.NewValidation("invalid configuration")
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
		appErr = appErr.WithDetail(fe.Namespace(), fmt.Sprintf("failed %q", fe.Tag()))
	}
	appErr.Message = "invalid configuration: " + strings.Join(fields, ", ")
	return appErr
}

// Load reads the application configuration for opts and validates it.
func Load(opts Options) (*AppConfig, *Loader, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, nil, err
	}
	cfg := &AppConfig{}
	if err := loader.Bind(cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}
