package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcp-supervisor/mcp-supervisor/internal/api"
	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/featureflag"
	"github.com/mcp-supervisor/mcp-supervisor/internal/portpool"
	"github.com/mcp-supervisor/mcp-supervisor/internal/runtime"
	"github.com/mcp-supervisor/mcp-supervisor/internal/secretstore"
	"github.com/mcp-supervisor/mcp-supervisor/internal/supervisor"
	"github.com/mcp-supervisor/mcp-supervisor/internal/telemetry"
)

const gracefulShutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor: bring up every configured server and serve the management API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDaemonConfig()
			if err != nil {
				return err
			}
			if configPath != "" {
				cfg.ConfigPath = configPath
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the mcpServers catalog document (overrides "+envConfigPath+")")
	return cmd
}

func runServe(ctx context.Context, cfg daemonConfig) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	stateDir := filepath.Join(home, ".mcp-supervisor")

	ports, err := portpool.New(cfg.PortRangeStart, cfg.PortRangeEnd)
	if err != nil {
		return fmt.Errorf("port pool: %w", err)
	}

	secrets, err := secretstore.Open(filepath.Join(stateDir, "secrets"), filepath.Join(os.TempDir(), "mcp-supervisor-secrets"))
	if err != nil {
		return fmt.Errorf("secret store: %w", err)
	}

	tel, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	mode := cfg.Mode
	if mode == supervisor.ModeMultiTransport {
		features, err := featureflag.Load(filepath.Join(stateDir, "features.json"))
		if err != nil {
			return fmt.Errorf("feature flags: %w", err)
		}
		if !features.Enabled(featureflag.MultiTransport) {
			fmt.Fprintf(os.Stderr, "[mcp-supervisor] mode=multi-transport requested but the %q feature is disabled; falling back to unified mode (enable with: mcp-supervisor feature enable %s)\n",
				featureflag.MultiTransport, featureflag.MultiTransport)
			mode = supervisor.ModeUnified
		}
	}

	sup := supervisor.New(supervisor.Options{
		Mode:              mode,
		DefaultProxyType:  cfg.DefaultProxyType,
		WorkDirRoot:       filepath.Join(stateDir, "work"),
		CacheDir:          filepath.Join(stateDir, "cache"),
		Ports:             ports,
		Secrets:           secrets,
		Runtime:           runtime.NewDockerRuntime(runtime.Config{}),
		HTTP:              &http.Client{},
		EnabledTransports: cfg.EnabledTransports,
		Telemetry:         tel,
	})
	sup.Start()

	sessionID := supervisor.GenerateSessionID()
	fmt.Fprintf(os.Stderr, "[mcp-supervisor] session %s mode=%s config=%s ports=[%d,%d]\n",
		sessionID, mode, cfg.ConfigPath, cfg.PortRangeStart, cfg.PortRangeEnd)

	loader := catalogconfig.NewLoader(cfg.ConfigPath)

	var mu sync.Mutex
	var lastDesired catalogconfig.DesiredSet

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	watcher := catalogconfig.NewWatcher(loader, func(desired catalogconfig.DesiredSet, warnings []string) error {
		mu.Lock()
		lastDesired = desired
		mu.Unlock()
		sup.Reconcile(watchCtx, desired)
		return nil
	})

	watchErrCh := make(chan error, 1)
	go func() { watchErrCh <- watcher.Run(watchCtx) }()

	apiServer := &api.Server{
		Supervisor: sup,
		Secrets:    secrets,
		Desired: func() catalogconfig.DesiredSet {
			mu.Lock()
			defer mu.Unlock()
			return lastDesired
		},
		Reload: func() {
			desired, _, _, err := loader.Load()
			if err != nil {
				return
			}
			mu.Lock()
			lastDesired = desired
			mu.Unlock()
			sup.Reconcile(watchCtx, desired)
		},
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.ManagerPort),
		Handler: apiServer.Handler(),
	}

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- httpServer.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-sigCh:
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(os.Stderr, "[mcp-supervisor] management API failed:", err)
		}
	case <-ctx.Done():
	}

	cancelWatch()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Shutdown(shutdownCtx)

	return nil
}
