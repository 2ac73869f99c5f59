package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/config"
	"github.com/iliyamo/workspace-reservation/internal/database"
	"github.com/iliyamo/workspace-reservation/internal/handler"
	"github.com/iliyamo/workspace-reservation/internal/jobs"
	"github.com/iliyamo/workspace-reservation/internal/lock"
	"github.com/iliyamo/workspace-reservation/internal/middleware"
	"github.com/iliyamo/workspace-reservation/internal/notify"
	"github.com/iliyamo/workspace-reservation/internal/queue"
	"github.com/iliyamo/workspace-reservation/internal/repository"
	"github.com/iliyamo/workspace-reservation/internal/repository/memory"
	"github.com/iliyamo/workspace-reservation/internal/router"
	"github.com/iliyamo/workspace-reservation/internal/service"
	"github.com/iliyamo/workspace-reservation/internal/utils"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration")
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// redisPinger adapts a Redis client to the health check.
type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (repository.Store, *sql.DB, error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil, nil
	}
	dsn := cfg.SQLiteDSN
	if cfg.DBDriver == config.DriverMySQL {
		dsn = database.MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	db, err := database.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewSQLStore(db), db, nil
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	checks := map[string]handler.Pinger{}
	if db != nil {
		checks["database"] = db
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		switch {
		case err != nil && cfg.LockBackend == config.LockRedis:
			return err
		case err != nil:
			log.WithError(err).Warn("redis unavailable; rate limiting and caching disabled")
		default:
			defer rdb.Close()
			checks["redis"] = redisPinger{rdb}
		}
	}

	var locker lock.Locker = lock.NewLocal(cfg.LockTimeout)
	if cfg.LockBackend == config.LockRedis {
		locker = lock.NewRedis(rdb, "workspace", cfg.LockTimeout, cfg.LockLease, log)
	}

	hub := notify.NewHub(log)
	go hub.Run(ctx)
	sinks := service.MultiSink{hub}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, cfg.EventsExchange, log)
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if cfg.EventsConsumerEnabled {
		go func() {
			err := queue.StartEventConsumer(ctx, queue.ConsumerConfig{
				URL:      cfg.RabbitURL,
				Exchange: cfg.EventsExchange,
				Queue:    cfg.EventsQueue,
				LogPath:  cfg.EventsLogPath,
			}, log)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event consumer stopped")
			}
		}()
	}

	svc := service.New(store, locker, sinks, log, service.Options{
		OfferTTL:  cfg.OfferTTL,
		PastGrace: cfg.PastGrace,
	})

	sweep, err := jobs.NewOfferExpiry(svc.Waitlist, cfg.OfferSweepSchedule, log)
	if err != nil {
		return err
	}
	sweep.Start()
	defer sweep.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Handlers{
		Health:      handler.NewHealthHandler(checks),
		Bookings:    handler.NewBookingHandler(svc.Ledger, cfg.BestSlotsLimit),
		Waitlist:    handler.NewWaitlistHandler(svc.Waitlist),
		Resources:   handler.NewResourceHandler(svc.Catalog),
		Assignments: handler.NewDeskAssignmentHandler(svc.Assignments),
		WebSocket:   handler.NewWebSocketHandler(hub, nil, log),
	}, router.Guards{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver, "lock": cfg.LockBackend}).Info("listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
