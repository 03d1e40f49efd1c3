package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/example/airport-shuttle/internal/auth"
	"github.com/example/airport-shuttle/internal/bookings"
	"github.com/example/airport-shuttle/internal/catalog"
	"github.com/example/airport-shuttle/internal/config"
	"github.com/example/airport-shuttle/internal/dispatch"
	"github.com/example/airport-shuttle/internal/eta"
	"github.com/example/airport-shuttle/internal/events"
	"github.com/example/airport-shuttle/internal/geo"
	httpapi "github.com/example/airport-shuttle/internal/http"
	"github.com/example/airport-shuttle/internal/inbox"
	"github.com/example/airport-shuttle/internal/logging"
	"github.com/example/airport-shuttle/internal/observability"
	"github.com/example/airport-shuttle/internal/payments"
	"github.com/example/airport-shuttle/internal/quote"
	"github.com/example/airport-shuttle/internal/reviews"
	"github.com/example/airport-shuttle/internal/route"
	"github.com/example/airport-shuttle/internal/storage"
	"github.com/example/airport-shuttle/internal/trips"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("shuttle-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	observer := &observability.LogObserver{Logger: logger}

	cat := catalog.Default()
	if cfg.StationsFile != "" {
		c, err := catalog.LoadFile(cfg.StationsFile)
		if err != nil {
			return err
		}
		cat = c
	}
	routes := route.NewValidator(cat)

	var (
		store    storage.Store = storage.NewMemoryStore()
		pings    []func(context.Context) error
		closers  []func() error
		rc       *redis.Client
		geoIndex geo.Geo = geo.NewIndex()
		box      inbox.Inbox
		idem     httpapi.IdempotencyStore
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return err
		}
		closers = append(closers, pg.Close)
		pings = append(pings, pg.Ping)
		if cfg.RunMigrations {
			if err := pg.Migrate(ctx, cfg.MigrationsPath); err != nil {
				return err
			}
			logger.Info("migration applied", "path", cfg.MigrationsPath)
		}
		store = pg
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
	}

	if cfg.RedisAddr != "" {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		closers = append(closers, rc.Close)
		pings = append(pings, func(ctx context.Context) error { return rc.Ping(ctx).Err() })
		geoIndex = geo.NewRedisGeo(rc, cfg.RedisGeoKey, cfg.GeoRadiusKm, cat)
		box = inbox.NewRedisInbox(rc, cfg.InboxCapacity, 0)
		idem = httpapi.NewRedisIdempotency(rc)
	} else {
		box = inbox.NewMemoryInbox(cfg.InboxCapacity)
	}
	if err := geo.Seed(ctx, geoIndex, cat.All()); err != nil {
		return err
	}

	wsreg := dispatch.NewWSRegistry()
	notifier := dispatch.Multi{wsreg}
	if len(cfg.KafkaBrokers) > 0 {
		// cmd/consumer files events into the inbox
		producer := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, producer.Close)
		notifier = append(notifier, &dispatch.KafkaDispatcher{Publisher: producer})
	} else {
		notifier = append(notifier, inbox.Dispatcher{Inbox: box})
	}
	if cfg.AMQPURL != "" {
		amqpd, err := dispatch.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, 5, logger)
		if err != nil {
			return err
		}
		closers = append(closers, amqpd.Close)
		notifier = append(notifier, amqpd)
	}
	if cfg.PushEndpoint != "" {
		notifier = append(notifier, dispatch.NewPushDispatcher(cfg.PushEndpoint, cfg.PushKey))
	}

	var processor payments.Processor = payments.Disabled{}
	if cfg.StripeKey != "" {
		processor = payments.NewStripeClient(cfg.StripeKey)
	} else {
		logger.Warn("STRIPE_API_KEY not set, payments are disabled")
	}

	quotes := &quote.Service{Routes: routes, DefaultSpeedMps: cfg.DefaultSpeedMps}
	if cfg.OSRMEndpoint != "" {
		quotes.ETARouter = eta.NewOSRMClient(cfg.OSRMEndpoint)
		quotes.ETACache = eta.NewCache(cfg.ETACacheTTL)
	}

	mgr := trips.NewManager(store, routes, notifier, observer, logger)
	mgr.MaxAttempts = cfg.JoinMaxAttempts
	mgr.RetryDelay = cfg.JoinRetryDelay
	sweeper := &trips.Sweeper{Manager: mgr, Interval: cfg.SweepInterval, Grace: cfg.SweepGrace, Logger: logger}
	go sweeper.Run(ctx)

	var identity func(http.Handler) http.Handler
	if cfg.DevHeaderAuth {
		logger.Warn("AUTH_DEV_HEADERS enabled, trusting X-User-ID")
		identity = auth.HeaderIdentity
	} else {
		identity = auth.NewManager(cfg.JWTSecret, cfg.TokenTTL).Middleware
	}

	api := httpapi.NewServer(httpapi.Deps{
		Catalog:        cat,
		Routes:         routes,
		Quotes:         quotes,
		Geo:            geoIndex,
		Trips:          mgr,
		Bookings:       &bookings.Service{Store: store, Routes: routes, Payments: processor, Logger: logger},
		Reviews:        &reviews.Service{Store: store},
		Inbox:          box,
		WSReg:          wsreg,
		Observer:       observer,
		Identity:       identity,
		Idempotency:    idem,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Ready: func(ctx context.Context) error {
			for _, p := range pings {
				if err := p(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("airport-shuttle listening", "addr", cfg.HTTPAddr, "stations", cat.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
