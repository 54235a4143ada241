// Package config loads layered YAML configuration with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	apperrors "github.com/leeforge/addonstate/errors"
)

// Options controls where configuration is read from.
type Options struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	Mode      Mode

	// AllowMissing accepts an empty file set; values then come from
	// defaults and the environment only.
	AllowMissing bool

	// Watch re-binds the target whenever a loaded file changes.
	Watch    bool
	OnChange func(e fsnotify.Event)
}

// DefaultOptions reads config/config.yaml, or $CONFIG_PATH/config.yaml.
func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}
	return Options{
		BasePath:     basePath,
		FileName:     "config",
		FileType:     "yaml",
		EnvPrefix:    "ADDONSTATE",
		Mode:         CurrentMode(),
		AllowMissing: true,
	}
}

// Loader merges the config files for one mode into a viper instance.
type Loader struct {
	v     *viper.Viper
	opts  Options
	files []string

	mu        sync.RWMutex
	watchOnce sync.Once
}

// NewLoader reads every file that applies to opts.Mode, later files
// overriding earlier ones.
func NewLoader(opts Options) (*Loader, error) {
	if opts.FileType == "" {
		opts.FileType = "yaml"
	}
	if opts.Mode == "" {
		opts.Mode = CurrentMode()
	}

	files := filePaths(opts)
	if len(files) == 0 && !opts.AllowMissing {
		return nil, apperrors.NewNotFound("config files", opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)
	for _, file := range files {
		layer := viper.New()
		layer.SetConfigFile(file)
		if err := layer.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeValidation,
				fmt.Sprintf("reading config file %s", file))
		}
		if err := v.MergeConfigMap(layer.AllSettings()); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeValidation,
				fmt.Sprintf("merging config file %s", file))
		}
	}

	return &Loader{v: v, opts: opts, files: files}, nil
}

// Files lists the files that were merged, in order.
func (l *Loader) Files() []string {
	return append([]string(nil), l.files...)
}

// Bind fills target with defaults, then file values, then environment
// overrides. target must be a pointer to a struct with mapstructure tags.
func (l *Loader) Bind(target any) error {
	if target == nil || reflect.ValueOf(target).Kind() != reflect.Pointer {
		return apperrors.NewValidation("config target must be a non-nil pointer")
	}
	if err := defaults.Set(target); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "applying config defaults")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Register every struct key so env overrides reach keys absent from files.
	registerKeys(l.v, "", reflect.ValueOf(target))
	applyEnvOverrides(l.v, l.opts.EnvPrefix)

	if err := l.v.Unmarshal(target); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation,
			fmt.Sprintf("decoding config from %s", l.opts.BasePath))
	}

	if l.opts.Watch && len(l.files) > 0 {
		l.watch(target)
	}
	return nil
}

func (l *Loader) watch(target any) {
	l.watchOnce.Do(func() {
		for _, file := range l.files {
			fileViper := viper.New()
			fileViper.SetConfigFile(file)
			if err := fileViper.ReadInConfig(); err != nil {
				continue
			}
			fileViper.OnConfigChange(func(e fsnotify.Event) {
				l.mu.Lock()
				_ = l.v.MergeConfigMap(fileViper.AllSettings())
				applyEnvOverrides(l.v, l.opts.EnvPrefix)
				err := l.v.Unmarshal(target)
				l.mu.Unlock()

				if err == nil && l.opts.OnChange != nil {
					l.opts.OnChange(e)
				}
			})
			fileViper.WatchConfig()
		}
	})
}

// Get returns a raw value by dotted key.
func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Get(key)
}

// Set overrides a value for subsequent binds.
func (l *Loader) Set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// registerKeys declares every leaf mapstructure key of rv, using its current
// value as the default, so that viper knows about keys no file mentions.
func registerKeys(v *viper.Viper, prefix string, rv reflect.Value) {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Time{}) {
			registerKeys(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

// applyEnvOverrides gives PREFIX_SECTION_KEY variables priority over files.
// Dashes in keys map to underscores.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}
		if value, ok := os.LookupEnv(envKey); ok && value != "" {
			v.Set(key, value)
		}
	}
}

// filePaths returns the existing files for opts in priority order:
// name, name.local, name.<mode>, name.<mode>.local for each mode alias.
func filePaths(opts Options) []string {
	names := []string{opts.FileName, opts.FileName + ".local"}
	for _, alias := range opts.Mode.aliases() {
		names = append(names,
			fmt.Sprintf("%s.%s", opts.FileName, alias),
			fmt.Sprintf("%s.%s.local", opts.FileName, alias),
		)
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(opts.BasePath, name+"."+opts.FileType)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
