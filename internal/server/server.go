// Package server wires the store, lifecycle manager and event pipeline
// together and serves them over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/activity"
	"github.com/matthewbaird/propmanage/internal/config"
	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/eventbus"
	"github.com/matthewbaird/propmanage/internal/handler"
	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/live"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/store"
)

// busBuffer is how many events may wait for the bus consumer.
const busBuffer = 256

// App holds the wired service.
type App struct {
	Config   config.Config
	Store    *store.Store
	Activity activity.Store
	Bus      *eventbus.Bus
	Hub      *live.Hub
	Manager  *lifecycle.Manager

	now func() time.Time
}

// Open opens and migrates the database named by cfg and wires an App on
// it. Activity entries share the database.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	s, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	act := activity.NewSQLStore(s.Driver())
	if err := act.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return NewApp(cfg, s, act, nil), nil
}

// NewApp wires an App on an open store. A nil now uses time.Now.
func NewApp(cfg config.Config, s *store.Store, act activity.Store, now func() time.Time) *App {
	if now == nil {
		now = time.Now
	}

	bus := eventbus.New(busBuffer)
	hub := live.NewHub(originHosts(cfg.CORSOrigins)...)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("signal", eventbus.NewSignalConsumer())
	bus.Subscribe("live", hub)

	rec := event.NewActivityRecorder(act, bus)

	mgr := lifecycle.New(s, lifecycle.Options{
		Rates:    cfg.Rates(),
		Schedule: cfg.Schedule(),
		Deposit:  cfg.DepositLimit(),
		Recorder: rec,
		Now:      now,
	})

	return &App{
		Config:   cfg,
		Store:    s,
		Activity: act,
		Bus:      bus,
		Hub:      hub,
		Manager:  mgr,
		now:      now,
	}
}

// Close stops the event bus and closes the database.
func (a *App) Close() error {
	a.Bus.Stop()
	return a.Store.Close()
}

// Router returns the HTTP handler with every route registered.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(handler.Recovery, handler.RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	ph := handler.NewPropertyHandler(a.Store, a.Manager)
	th := handler.NewTenantHandler(a.Store)
	lh := handler.NewLeaseHandler(a.Store, a.Manager)
	bh := handler.NewBillHandler(a.Store, a.Manager)
	mh := handler.NewMyHandler(a.Store, a.Manager)
	ah := handler.NewActivityHandler(a.Activity, a.Store, a.now)

	r.Route("/api", func(r chi.Router) {
		// Open routes.
		r.Get("/buildings", ph.ListBuildings)
		r.Post("/buildings", ph.CreateBuilding)
		r.Get("/buildings/{id}", ph.GetBuilding)
		r.Post("/buildings/{id}/rooms", ph.CreateRoom)
		r.Get("/tenants", th.ListTenants)
		r.Post("/tenants", th.CreateTenant)
		r.Get("/tenants/{id}", th.GetTenant)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireLandlord)

			r.Delete("/buildings/{id}", ph.DeleteBuilding)
			r.Patch("/rooms/{id}/status", ph.SetRoomStatus)
			r.Get("/tenants/{id}/signals", ah.TenantSignals)

			r.Get("/leases", lh.ListLeases)
			r.Post("/leases", lh.CreateLease)
			r.Get("/leases/{id}", lh.GetLease)
			r.Post("/leases/{id}/terminate", lh.TerminateLease)
			r.Delete("/leases/{id}", lh.DeleteLease)

			r.Get("/bills", bh.ListBills)
			r.Get("/bills/{id}", bh.GetBill)
			r.Post("/bills/{id}/meter-reading", bh.RecordMeterReading)
			r.Post("/bills/{id}/pay", bh.PayBill)

			r.Post("/activity/search", ah.Search)
			r.Get("/activity/{entity_type}/{entity_id}", ah.EntityActivity)

			r.Handle("/events/ws", a.Hub)
		})

		r.Route("/my", func(r chi.Router) {
			r.Use(handler.RequireTenant)
			r.Get("/lease", mh.Lease)
			r.Get("/bills", mh.Bills)
			r.Post("/bills/{id}/pay", mh.PayBill)
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins:   a.Config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Role", "X-Tenant-Id", "X-Request-Id"},
		AllowCredentials: true,
	}).Handler(r)
}

// Run starts the event bus and serves HTTP until ctx is cancelled, then
// shuts both down.
func Run(ctx context.Context, a *App) error {
	a.Bus.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Logger.WithFields(logrus.Fields{
			"addr":     srv.Addr,
			"database": a.Config.DatabaseURL,
		}).Info("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		a.Bus.Stop()
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logging.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Bus.Stop()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// originHosts turns CORS origins into the host patterns the WebSocket
// handshake checks.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
