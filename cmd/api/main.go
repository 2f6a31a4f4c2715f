package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/PortNumber53/brandhub/internal/calendar"
	"github.com/PortNumber53/brandhub/internal/config"
	"github.com/PortNumber53/brandhub/internal/dragdrop"
	"github.com/PortNumber53/brandhub/internal/handlers"
	"github.com/PortNumber53/brandhub/internal/logging"
	"github.com/PortNumber53/brandhub/internal/middleware"
	"github.com/PortNumber53/brandhub/internal/store"
	"github.com/PortNumber53/brandhub/internal/workers"
)

type deps struct {
	getenv         func(string) string
	openDB         func(driverName, dataSourceName string) (*sql.DB, error)
	migrateUp      func(*sql.DB) error
	connectRedis   func(ctx context.Context, url string) (*redis.Client, error)
	listenAndServe func(*http.Server) error
	notify         func(c chan<- os.Signal, sig ...os.Signal)
	stopCh         chan os.Signal
	logger         *logrus.Logger
}

func defaultDeps() deps {
	return deps{
		getenv:         os.Getenv,
		openDB:         sql.Open,
		migrateUp:      migrateUp,
		connectRedis:   dragdrop.ConnectRedis,
		listenAndServe: func(s *http.Server) error { return s.ListenAndServe() },
		notify:         signal.Notify,
	}
}

func main() {
	bootLog := logging.NewLogger(os.Getenv("LOG_LEVEL"))
	config.LoadEnv(bootLog)

	if err := run(defaultDeps()); err != nil {
		bootLog.WithError(err).Fatal("api exited")
	}
}

func resolvePort(getenv func(string) string) string {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		return port
	}
	return config.DefaultPort
}

func migrateUp(db *sql.DB) error {
	if db == nil {
		return errors.New("migrate: nil db")
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func buildRouter(h *handlers.Handler, mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	for _, mw := range mws {
		r.Use(mw)
	}
	handlers.RegisterRoutes(h, r)
	return r
}

// startSweepers launches background expiry for whatever in-process state needs it.
func startSweepers(ctx context.Context, log *logrus.Logger, interval time.Duration, sessions *dragdrop.MemoryStore, limiter *middleware.TeamRateLimiter, onSessionsSwept func(int)) {
	if sessions != nil {
		s := &workers.Sweeper{
			Name:     "drag-sessions",
			Sweep:    sessions.Sweep,
			Interval: interval,
			Log:      logging.Component(log, "workers"),
			OnSwept:  onSessionsSwept,
		}
		go s.Start(ctx)
	}
	if limiter != nil {
		s := &workers.Sweeper{
			Name:     "rate-limiters",
			Sweep:    func(now time.Time) int { return limiter.Prune(now.Add(-10 * time.Minute)) },
			Interval: interval,
			Log:      logging.Component(log, "workers"),
		}
		go s.Start(ctx)
	}
}

func run(d deps) error {
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	log := d.logger
	if log == nil {
		log = logging.NewLogger(d.getenv("LOG_LEVEL"))
	}
	cfg, err := config.Load(d.getenv)
	if err != nil {
		return err
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		if d.openDB == nil {
			return errors.New("openDB is not configured")
		}
		db, err := d.openDB("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(rootCtx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if d.migrateUp != nil {
			if err := d.migrateUp(db); err != nil {
				return err
			}
			log.Info("database is up-to-date")
		}
		repo = store.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set; using in-memory store")
		repo = store.NewMemory()
	}

	var sessions dragdrop.SessionStore
	var memSessions *dragdrop.MemoryStore
	if cfg.RedisURL != "" && d.connectRedis != nil {
		client, err := d.connectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sessions = dragdrop.NewRedisStore(client)
		log.Info("drag sessions stored in redis")
	} else {
		memSessions = dragdrop.NewMemoryStore()
		sessions = memSessions
	}

	h := handlers.New(handlers.Options{
		Repo:     repo,
		Engine:   calendar.Engine{WeekStart: cfg.WeekStart},
		Caps:     &handlers.CellCaps{Month: cfg.MonthCellCap, Week: cfg.WeekCellCap},
		Sessions: sessions,
		DragTTL:  cfg.DragSessionTTL,
		Logger:   log,
		WSSecret: cfg.InternalWSSecret,
	})
	m := h.Metrics()

	limiter := middleware.NewTeamRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.OnReject = func(string) { m.RateLimited.Inc() }
	startSweepers(rootCtx, log, cfg.DragSweepInterval, memSessions, limiter, func(n int) { m.DragSessionsSwept.Add(float64(n)) })

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Handler:      c.Handler(buildRouter(h, limiter.Middleware)),
		Addr:         ":" + resolvePort(d.getenv),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	stop := d.stopCh
	if stop == nil {
		stop = make(chan os.Signal, 1)
		if d.notify != nil {
			d.notify(stop, os.Interrupt, syscall.SIGTERM)
		}
	}

	go func() {
		<-stop
		log.Info("shutting down server")
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
	}()

	log.WithFields(logrus.Fields{"port": resolvePort(d.getenv), "weekStart": cfg.WeekStart.String()}).Info("server starting")
	serve := d.listenAndServe
	if serve == nil {
		serve = func(s *http.Server) error { return s.ListenAndServe() }
	}
	if err := serve(srv); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Info("server stopped")
	return nil
}
