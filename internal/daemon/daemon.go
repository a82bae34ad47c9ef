// ABOUTME: Daemon orchestrator wiring stores, loader, controller, and servers
// ABOUTME: Enforces the startup barrier: state is loaded before any channel is accepted

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/keyfold/walletd/internal/badge"
	"github.com/keyfold/walletd/internal/config"
	"github.com/keyfold/walletd/internal/conn"
	"github.com/keyfold/walletd/internal/migrate"
	"github.com/keyfold/walletd/internal/notify"
	"github.com/keyfold/walletd/internal/persist"
	"github.com/keyfold/walletd/internal/platform"
	"github.com/keyfold/walletd/internal/store"
	"github.com/keyfold/walletd/internal/wallet"
)

// Daemon orchestrates the walletd components.
type Daemon struct {
	config     *config.Config
	primary    store.Primary
	remote     *store.Remote
	controller *wallet.Controller
	mux        *conn.Multiplexer
	surface    *platform.Local
	pipeline   *persist.Pipeline
	aggregator *badge.Aggregator
	httpServer *http.Server
	logger     *slog.Logger
}

// initPrimary creates the primary store based on config and environment.
func initPrimary(cfg *config.Config) (store.Primary, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("WALLETD_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing primary store: %w", err)
	}
	return s, nil
}

// initRemote creates the secondary store when one is configured.
// Returns nil when the host has no remote backend. A connection failure
// to an enabled backend degrades to running without it: remote sync is
// best-effort by contract.
func initRemote(cfg *config.Config, logger *slog.Logger) *store.Remote {
	if cfg.RemoteSync.RedisURL == "" {
		return nil
	}

	remote, err := store.NewRemote(
		cfg.RemoteSync.RedisURL,
		cfg.RemoteSync.Key,
		cfg.RemoteSync.Enabled,
		cfg.RemoteSync.SyncTimeout,
	)
	if err != nil {
		logger.Warn("remote store unavailable, continuing without it", "error", err)
		return nil
	}
	return remote
}

// New builds a fully wired Daemon. The state is loaded, migrated, and
// written back before this returns; a load failure is fatal and no
// listener exists yet at that point.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	primary, err := initPrimary(cfg)
	if err != nil {
		return nil, err
	}
	remote := initRemote(cfg, logger)

	migrator, err := migrate.New(migrate.Builtin())
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("building migrator: %w", err)
	}

	// Startup barrier: everything below only exists once the state is
	// fully loaded, migrated, and written back.
	loader := migrate.NewLoader(primary, remote, migrator, nil, logger)
	initState, err := loader.Load(context.Background())
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("loading state: %w", err)
	}

	surface := platform.NewLocal(cfg.Wallet.PopupCommand, logger)

	d := &Daemon{
		config:  cfg,
		primary: primary,
		remote:  remote,
		surface: surface,
		logger:  logger,
	}

	// The trigger needs the multiplexer's popup flag, and the controller
	// needs the trigger; wire the multiplexer last via a late binding.
	var mux *conn.Multiplexer
	trigger := platform.NewTrigger(surface, popupStateFunc(func() bool {
		return mux != nil && mux.PopupOpen()
	}), logger)

	controller := wallet.New(wallet.Options{
		InitState:            initState,
		Platform:             surface,
		OnUnconfirmedMessage: trigger.TriggerUI,
		OnUnlockRequest:      trigger.TriggerUI,
		OnUnapprovedTx:       trigger.TriggerUI,
		Logger:               logger,
	})
	mux = conn.NewMultiplexer(controller, logger)

	d.controller = controller
	d.mux = mux
	d.aggregator = badge.NewAggregator(controller, surface, controller, logger)

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/health", d.handleHealth)
	httpMux.HandleFunc("/badge", d.handleBadge)
	httpMux.Handle("/connect", conn.NewListener(mux, logger))
	d.httpServer = &http.Server{Handler: httpMux}

	return d, nil
}

// popupStateFunc adapts a func to the platform.PopupState interface.
type popupStateFunc func() bool

func (f popupStateFunc) PopupOpen() bool { return f() }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	pipeCtx, cancelPipe := context.WithCancel(context.Background())
	defer cancelPipe()

	// State snapshots flow controller -> broadcaster -> pipeline.
	events, _ := d.controller.Subscribe(pipeCtx, notify.TopicState)
	updates := make(chan map[string]any, 64)
	go forwardStateUpdates(pipeCtx, events, updates)

	d.pipeline = persist.New(d.primary, d.remote, updates, d.logger)
	go d.pipeline.Run(pipeCtx)
	go d.aggregator.Run(pipeCtx)

	ln, err := net.Listen("tcp", d.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := d.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		d.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		d.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := d.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// forwardStateUpdates copies state snapshots from the broadcaster stream
// into the pipeline's input. Cancellation unblocks a send stuck on a full
// buffer after the pipeline has stopped draining.
func forwardStateUpdates(ctx context.Context, events <-chan notify.Event, updates chan<- map[string]any) {
	defer close(updates)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case updates <- ev.State:
			case <-ctx.Done():
				return
			}
		}
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (d *Daemon) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.httpServer.Shutdown(ctx)

	if d.remote != nil {
		d.remote.Close()
	}
	if cerr := d.primary.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// handleHealth returns 200 OK once the daemon is serving. The server only
// exists after the startup barrier, so a reachable /health implies the
// state load completed.
func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleBadge returns the currently rendered badge.
func (d *Daemon) handleBadge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.surface.CurrentBadge())
}
