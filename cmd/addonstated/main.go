// Command addonstated serves add-on install records over HTTP.
//
// Without a client attached the host is detached: records move only through
// lifecycle events posted to /installs/{guid}/events.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/config"
	"github.com/leeforge/addonstate/logging"
	"github.com/leeforge/addonstate/manager"
	"github.com/leeforge/addonstate/runtime"
)

var (
	configPath string
	envPrefix  string
	mode       string
	watch      bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "addonstated",
	Short:        "Add-on install state service",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the install state API",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, loader, err := config.Load(loadOptions())
		if err != nil {
			return err
		}
		if cfg.Redis.Password != "" {
			cfg.Redis.Password = "******"
		}
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		for _, f := range loader.Files() {
			fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", f)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	defaults := config.DefaultOptions()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config-path", defaults.BasePath, "directory holding config.yaml")
	flags.StringVar(&envPrefix, "env-prefix", defaults.EnvPrefix, "prefix of environment overrides")
	flags.StringVar(&mode, "mode", string(defaults.Mode), "config mode (dev, prod, test)")
	flags.BoolVar(&watch, "watch", false, "reload configuration when files change")
	flags.DurationVar(&timeout, "shutdown-timeout", 15*time.Second, "graceful shutdown limit")

	rootCmd.AddCommand(serveCmd, configCmd)
}

func loadOptions() config.Options {
	opts := config.DefaultOptions()
	opts.BasePath = configPath
	opts.EnvPrefix = envPrefix
	opts.Mode = config.ParseMode(mode)
	return opts
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := loadOptions()
	if watch {
		opts.Watch = true
		opts.OnChange = logChange
	}
	cfg, loader, err := config.Load(opts)
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, runtime.Config{App: cfg, Host: manager.Detached{}})
	if err != nil {
		return err
	}
	logger := rt.Logger()
	restore := logging.SetGlobal(logger)
	defer restore()

	logger.Info("configuration loaded",
		zap.Strings("files", loader.Files()),
		zap.String("mode", string(opts.Mode)),
		zap.Bool("watch", watch))

	errc, err := rt.Start(ctx)
	if err != nil {
		_ = rt.Shutdown(context.Background())
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errc:
		if serveErr == nil && !cfg.HTTP.Enabled {
			// Nothing to serve; wait for a signal.
			<-ctx.Done()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// logChange reports a watched file change. Settings that size long-lived
// components apply on the next start.
func logChange(e fsnotify.Event) {
	logging.Global().Info("configuration changed, restart to apply",
		zap.String("file", e.Name), zap.String("op", e.Op.String()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
