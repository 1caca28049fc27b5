package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/meshly/backend/modules/notifications"
	"github.com/meshly/backend/pkg/auth"
	"github.com/meshly/backend/pkg/bus"
	"github.com/meshly/backend/pkg/config"
	"github.com/meshly/backend/pkg/httpserver"
	"github.com/meshly/backend/pkg/logger"
	"github.com/meshly/backend/pkg/notification"
	"github.com/meshly/backend/pkg/pg"
	"github.com/meshly/backend/pkg/redis"
	"github.com/meshly/backend/pkg/stream"
)

type appConfig struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"json"`
	BusMode           string        `env:"BUS_MODE" envDefault:"local"` // local or redis
	BusChannel        string        `env:"BUS_CHANNEL" envDefault:"notifications:events"`
	HeartbeatInterval time.Duration `env:"STREAM_HEARTBEAT_INTERVAL" envDefault:"25s"`

	// AuthTokens maps service tokens to user ids: "token1:user1,token2:user2".
	AuthTokens string `env:"AUTH_TOKENS,required"`
}

func main() {
	var (
		appCfg   appConfig
		pgCfg    pg.Config
		redisCfg redis.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)

	log := logger.New(
		logger.WithFormat(logger.Format(appCfg.LogFormat)),
		logger.WithService("meshly-backend"),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "postgres connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "migrations failed", logger.Error(err))
		os.Exit(1)
	}

	store := notification.NewPgStore(pool)
	gateway := stream.NewGateway(
		stream.WithHeartbeatInterval(appCfg.HeartbeatInterval),
		stream.WithGatewayLogger(log),
	)

	checks := []func(context.Context) error{pg.Healthcheck(pool)}

	var eventBus bus.Bus
	if appCfg.BusMode == "redis" {
		config.MustLoad(&redisCfg)
		rb := bus.NewRedisBus(
			func(ctx context.Context) (goredis.UniversalClient, error) {
				return redis.Connect(ctx, redisCfg)
			},
			bus.WithChannel(appCfg.BusChannel),
			bus.WithBusLogger(log),
		)
		// Readiness covers the broker in distributed mode; the probe
		// establishes the lazy connection if publishing has not yet.
		checks = append(checks, func(ctx context.Context) error {
			client, err := rb.Client(ctx)
			if err != nil {
				return err
			}
			return redis.Healthcheck(client)(ctx)
		})
		eventBus = rb
	} else {
		eventBus = bus.NewLocalBus()
	}
	defer eventBus.Close()

	// In distributed mode the publishing process hears its own events
	// through this same subscription; the service never dispatches
	// locally after a transmitted publish.
	eventBus.RegisterHandler(func(ctx context.Context, ev notification.Event) {
		gateway.PublishToUser(ctx, ev)
	})

	svc := notification.NewService(store, eventBus, gateway, notification.WithLogger(log))

	resolver := auth.NewStaticResolver(parseTokens(appCfg.AuthTokens))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", httpserver.HealthCheckHandler(log))
	r.Get("/ready", httpserver.HealthCheckHandler(log, checks...))
	r.Mount("/notifications", notifications.Router(notifications.RouterOptions{
		Store:    store,
		Gateway:  gateway,
		Service:  svc,
		Resolver: resolver,
		Logger:   log,
	}))

	srv := httpserver.New(
		httpserver.WithAddr(appCfg.Addr),
		httpserver.WithServerLogger(log),
		// Streams must drop before the listener drains, or shutdown
		// waits out every open connection.
		httpserver.WithStopHook(func(context.Context) {
			_ = gateway.Close()
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.ErrorContext(ctx, "server stopped", logger.Error(err))
		os.Exit(1)
	}
}

// parseTokens parses "token:userID" pairs separated by commas.
func parseTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		token, userID, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if ok && token != "" && userID != "" {
			tokens[token] = userID
		}
	}
	return tokens
}
