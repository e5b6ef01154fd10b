package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"classroom/internal/api"
	"classroom/internal/config"
	"classroom/internal/coordinator"
	"classroom/internal/registry"
	"classroom/internal/session"
	"classroom/internal/store"
	"classroom/internal/websocket"
)

// Application wires all system components together.
// Initialization follows dependency order:
// Store → Registry/Sessions → Gateway → Coordinator → Handlers → HTTP
type Application struct {
	config     *config.Config
	store      *store.Manager
	registry   *registry.Registry
	bindings   *session.Table
	gateway    *websocket.Gateway
	coord      *coordinator.Coordinator
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication creates an application instance with all components
// initialized and wired.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	storeConfig := &store.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
	}

	roomStore, err := store.NewManager(storeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize room store: %w", err)
	}

	roomRegistry := registry.NewRegistry()
	bindings := session.NewTable()
	gateway := websocket.NewGateway()

	coord := coordinator.NewCoordinator(roomStore, gateway, roomRegistry, bindings)

	apiServer := api.NewServer(roomStore, gateway, roomRegistry)
	wsHandler := websocket.NewHandler(coord)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      roomStore,
		registry:   roomRegistry,
		bindings:   bindings,
		gateway:    gateway,
		coord:      coord,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins serving. Returns once the HTTP server is accepting
// connections or startup has failed.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting classroom application on %s", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Classroom application started successfully")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the application down in reverse dependency order:
// HTTP first so no new work arrives, then the store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down classroom application")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.store.Close(); err != nil {
		log.Printf("Store shutdown error: %v", err)
	}

	log.Printf("Classroom application shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
