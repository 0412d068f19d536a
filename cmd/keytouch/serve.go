package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keytouch/internal/app"
	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/server"
	"github.com/ayusman/keytouch/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var (
		addr     string
		withTray bool
		noWatch  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recognizer with the HTTP API and web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, withTray, !noWatch)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&withTray, "tray", false, "show a system tray toggle")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the config file on change")

	return cmd
}

func runServe(addr string, withTray, watch bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, watcher, err := startConfig(ctx, watch)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.New(app.Config{
		Settings: cfg,
		Store:    st,
		Logger:   logger.WithComponent("app"),
	})
	if err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}
	defer a.Close()

	if watcher != nil {
		watcher.OnChange(func(next *config.Config) {
			applyOverrides(next)
			if err := a.Reload(ctx, next); err != nil {
				logger.Error("config reload failed", "error", err)
			}
		})
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			App:       a,
			Logger:    logger.WithComponent("server"),
		}),
	}

	errs := make(chan error, 2)
	go func() {
		if err := a.Run(ctx); err != nil {
			errs <- fmt.Errorf("recognizer: %w", err)
		}
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("server: %w", err)
		}
	}()

	fmt.Printf("%s listening on %s\n", color.GreenString("keytouch"), cfg.Server.Addr)

	if withTray {
		t := newTray(ctx, stop, a, cfg.Server.Addr, logger.WithComponent("tray"))
		go func() {
			select {
			case <-ctx.Done():
			case err := <-errs:
				logger.Error("shutting down", "error", err)
				stop()
			}
			t.Quit()
		}()
		// systray needs the main goroutine.
		t.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-errs:
			logger.Error("shutting down", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	logger.Info("stopped")
	return nil
}

// startConfig loads the config, watching it for changes when asked. A config
// directory that cannot be watched only disables reloading.
func startConfig(ctx context.Context, watch bool) (*config.Config, *config.Watcher, error) {
	if watch {
		w, err := config.Watch(ctx, configPath, slog.Default())
		if err == nil {
			cfg := *w.Config()
			applyOverrides(&cfg)
			return &cfg, w, nil
		}
		slog.Warn("config watch disabled", "path", configPath, "error", err)
	}
	cfg, err := loadConfig()
	return cfg, nil, err
}

// newTray wires the tray menu to the recognizer.
func newTray(ctx context.Context, quit func(), a *app.App, addr string, logger *slog.Logger) *tray.Tray {
	t := tray.New()
	t.SetEnabled(a.IsEnabled())

	t.OnToggle(a.SetEnabled)
	t.OnSettings(func() {
		if err := openBrowser(browserURL(addr)); err != nil {
			logger.Warn("open browser", "error", err)
		}
	})
	t.OnReload(func() {
		if err := a.ReloadTemplates(ctx); err != nil {
			logger.Error("reload templates", "error", err)
		}
	})
	t.OnQuit(quit)

	a.Subscribe(func(ev app.Event) {
		switch ev.Type {
		case app.EventUpdate:
			t.SetLastGesture(ev.Label)
		case app.EventLayer:
			t.SetLayer(ev.Layer)
		}
	})
	return t
}

func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and the keytouch data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(config.XDGDataHome(), "keytouch", "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
