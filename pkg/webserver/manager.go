// Package webserver exposes the published telemetry over HTTP and a
// websocket push feed.
package webserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"simtelemetry/pkg/laps"
	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"
	"simtelemetry/pkg/telemetry"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultAddr         = ":8080"
	DefaultPushInterval = 100 * time.Millisecond
)

// SourceStatus reports which driver is bound.
type SourceStatus interface {
	Status() source.Status
}

// LapLister serves the lap history. Optional.
type LapLister interface {
	BestLaps(ctx context.Context, producer model.ProducerID, limit int) ([]laps.Lap, error)
	RecentLaps(ctx context.Context, limit int) ([]laps.Lap, error)
}

type Options struct {
	Addr         string
	PushInterval time.Duration
	Laps         LapLister
	Logger       *slog.Logger
}

type Manager struct {
	r        *mux.Router
	reader   telemetry.Reader
	status   SourceStatus
	laps     LapLister
	addr     string
	push     time.Duration
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewManager(reader telemetry.Reader, status SourceStatus, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		r:      mux.NewRouter(),
		reader: reader,
		status: status,
		laps:   opts.Laps,
		addr:   opts.Addr,
		push:   opts.PushInterval,
		log:    logger.With("component", "webserver"),
	}
	if m.addr == "" {
		m.addr = DefaultAddr
	}
	if m.push <= 0 {
		m.push = DefaultPushInterval
	}
	m.rootHandlers()
	return m
}

func (m *Manager) Handler() http.Handler {
	return m.r
}

func (m *Manager) rootHandlers() {
	api := m.r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/telemetry", m.handleTelemetry).Methods(http.MethodGet)
	api.HandleFunc("/relative", m.handleRelative).Methods(http.MethodGet)
	api.HandleFunc("/standings", m.handleStandings).Methods(http.MethodGet)
	api.HandleFunc("/source", m.handleSource).Methods(http.MethodGet)
	api.HandleFunc("/map.{format:svg|png}", m.handleMap).Methods(http.MethodGet)
	if m.laps != nil {
		api.HandleFunc("/laps/best", m.handleBestLaps).Methods(http.MethodGet)
		api.HandleFunc("/laps/recent", m.handleRecentLaps).Methods(http.MethodGet)
	}
	m.r.HandleFunc("/ws", m.handleWebsocket)
	m.r.Handle("/metrics", promhttp.Handler())
}

func (m *Manager) logRoutes() {
	_ = m.r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		m.log.Debug("route", "path", path, "methods", strings.Join(methods, ","))
		return nil
	})
}

// Serve listens until ctx is done, then shuts down gracefully.
func (m *Manager) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         m.addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      m.r,
	}
	m.logRoutes()

	errc := make(chan error, 1)
	go func() {
		m.log.Info("webserver listening", "addr", m.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Wrap(err, "webserver")
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.log.Info("webserver shutting down")
	return errors.Wrap(srv.Shutdown(shutdownCtx), "webserver shutdown")
}
