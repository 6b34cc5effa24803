// Package console serves the operator web console for the filtering proxy's
// settings API.
package console

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"filterdesk/pkg/config"
	"filterdesk/pkg/settingsapi"
	"filterdesk/pkg/version"
)

const (
	cookieName         = "filterdesk_browser"
	maxGoroutines      = 4096
	defaultResolveWait = 2 * time.Second
	maxUploadSize      = 8 << 20
)

// Options configures a Server.
type Options struct {
	Listen   string
	API      settingsapi.Options
	Console  config.ConsoleConfig
	AuditLog string
	Log      *slog.Logger
}

// Server is the console's HTTP server.
type Server struct {
	opts     Options
	log      *slog.Logger
	store    *Store
	probe    *settingsapi.Client
	audit    *auditLogger
	pages    map[string]*template.Template
	router   *mux.Router
	server   *http.Server
	listener net.Listener
}

// New builds a Server and its routes. Nothing listens until Start.
func New(opts Options) (*Server, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.Console.ResolveWait <= 0 {
		opts.Console.ResolveWait = defaultResolveWait
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	probeOpts := opts.API
	probeOpts.Log = log
	probe, err := settingsapi.New(probeOpts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:  opts,
		log:   log,
		store: NewStore(opts.Console.MaxSessions, opts.Console.SessionIdle, opts.API, log),
		probe: probe,
		audit: newAuditLogger(opts.AuditLog, log),
		pages: pages,
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:              opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the console's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Listen, err)
	}
	s.listener = listener

	s.log.Info("starting console", "version", version.FilterdeskVersion, "address", listener.Addr().String(), "settings_api", s.probe.BaseURL())
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("console server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Listen
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down console")
	err := s.server.Shutdown(ctx)
	if closeErr := s.audit.Close(); closeErr != nil {
		s.log.Warn("failed to close audit log", "error", closeErr)
	}
	return err
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	health.AddReadinessCheck("settings-api", s.settingsAPIReachable)
	r.HandleFunc("/live", health.LiveEndpoint).Methods(http.MethodGet)
	r.HandleFunc("/ready", health.ReadyEndpoint).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.withBrowser)

	pages.HandleFunc("/login", s.handle(s.loginPage)).Methods(http.MethodGet)
	pages.HandleFunc("/login", s.handle(s.login)).Methods(http.MethodPost)
	pages.HandleFunc("/register", s.handle(s.registerPage)).Methods(http.MethodGet)
	pages.HandleFunc("/register", s.handle(s.register)).Methods(http.MethodPost)

	protected := pages.NewRoute().Subrouter()
	protected.Use(s.requireAccess)

	protected.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/white-list", http.StatusFound)
	}).Methods(http.MethodGet)

	protected.HandleFunc("/white-list", s.handle(s.whiteListPage)).Methods(http.MethodGet)
	protected.HandleFunc("/white-list/add", s.handle(s.addDomain)).Methods(http.MethodPost)
	protected.HandleFunc("/white-list/delete", s.handle(s.deleteDomain)).Methods(http.MethodPost)
	protected.HandleFunc("/white-list/check", s.handle(s.checkHost)).Methods(http.MethodPost)

	protected.HandleFunc("/filter-content", s.handle(s.contentPage)).Methods(http.MethodGet)
	protected.HandleFunc("/filter-content/add", s.handle(s.addContent)).Methods(http.MethodPost)
	protected.HandleFunc("/filter-content/delete", s.handle(s.deleteContent)).Methods(http.MethodPost)

	protected.HandleFunc("/plugins-list", s.handle(s.pluginsListPage)).Methods(http.MethodGet)
	protected.HandleFunc("/plugins-list/move", s.handle(s.movePlugin)).Methods(http.MethodPost)
	protected.HandleFunc("/plugins-list/delete", s.handle(s.removePlugin)).Methods(http.MethodPost)
	protected.HandleFunc("/plugins-list/save", s.handle(s.savePlugins)).Methods(http.MethodPost)
	protected.HandleFunc("/plugins-list/reload", s.handle(s.reloadPlugins)).Methods(http.MethodPost)

	protected.HandleFunc("/plugins-manager", s.handle(s.pluginsManagerPage)).Methods(http.MethodGet)
	protected.HandleFunc("/plugins-manager/upload", s.handle(s.uploadPlugin)).Methods(http.MethodPost)
	protected.HandleFunc("/plugins-manager/delete", s.handle(s.deletePluginFile)).Methods(http.MethodPost)

	return r
}

func (s *Server) settingsAPIReachable() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Console.ResolveWait)
	defer cancel()
	if _, err := s.probe.AnyRegistered(ctx); err != nil {
		return fmt.Errorf("settings api unreachable: %w", err)
	}
	return nil
}
