package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workboard/internal/analytics"
	analyticshandler "workboard/internal/analytics/handler"
	"workboard/internal/assistant"
	assistantsvc "workboard/internal/assistant/service"
	"workboard/internal/auth"
	"workboard/internal/auth/credentials"
	"workboard/internal/auth/revocation"
	authsvc "workboard/internal/auth/service"
	"workboard/internal/auth/token"
	"workboard/internal/directive"
	directivesvc "workboard/internal/directive/service"
	"workboard/internal/domain"
	"workboard/internal/platform/config"
	"workboard/internal/platform/httpserver"
	"workboard/internal/platform/logger"
	platformpg "workboard/internal/platform/postgres"
	platformredis "workboard/internal/platform/redis"
	"workboard/internal/proposal"
	proposalsvc "workboard/internal/proposal/service"
	"workboard/internal/roster"
	rostersvc "workboard/internal/roster/service"
	"workboard/internal/seed"
	"workboard/internal/server"
	"workboard/internal/store"
	memorystore "workboard/internal/store/memory"
	pgstore "workboard/internal/store/postgres"
	redisstore "workboard/internal/store/redis"
	"workboard/internal/sync"
	"workboard/internal/workitem"
	workitemmetrics "workboard/internal/workitem/metrics"
	workitemsvc "workboard/internal/workitem/service"
	"workboard/pkg/requestcontext"
)

// main wires the store backend, the sync layer, the domain services, and the
// HTTP server. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store backend selection. Memory is the default for development.
	var (
		docStore    store.Store
		health      func() error
		redisClient *platformredis.Client
	)
	switch cfg.StoreBackend {
	case "redis":
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		if client == nil {
			log.Error("redis backend selected but REDIS_URL is empty")
			os.Exit(1)
		}
		defer client.Close()
		redisClient = client
		docStore = redisstore.New(client.Client, redisstore.WithLogger(log))
		health = func() error { return client.Health(context.Background()) }
	case "postgres":
		pool, err := platformpg.New(ctx, cfg.Postgres)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if pool == nil {
			log.Error("postgres backend selected but POSTGRES_DSN is empty")
			os.Exit(1)
		}
		defer pool.Close()
		st := pgstore.New(pool, pgstore.WithLogger(log))
		if err := st.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		docStore = st
		health = func() error { return pool.Ping(context.Background()) }
	default:
		docStore = memorystore.New()
	}

	// Live mirrors of the four collections.
	syncer := sync.New(docStore,
		sync.WithLogger(log),
		sync.WithMetrics(sync.NewMetrics()),
		sync.WithWeights(domain.Weights{
			Impact:   cfg.Weights.Impact,
			Urgency:  cfg.Weights.Urgency,
			Deadline: cfg.Weights.Deadline,
		}),
	)
	defer syncer.Stop()

	// Analytics: structured logs always, Kafka when brokers are configured.
	sinks := analytics.MultiSink{analytics.NewSlogSink(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := analytics.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to connect analytics kafka sink", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafkaSink.Close(flushCtx)
		}()
		sinks = append(sinks, kafkaSink)
	}
	tracking := analytics.NewRegistry(sinks,
		analytics.WithLogger(log),
		analytics.WithMetrics(analytics.NewMetrics()),
	)

	// Domain services over the store and the mirrors.
	seedSvc := seed.New(docStore, seed.WithLogger(log))
	workitemSvc := workitem.NewService(docStore, syncer,
		workitemsvc.WithLogger(log),
		workitemsvc.WithMetrics(workitemmetrics.New()),
	)
	rosterSvc := roster.NewService(docStore, syncer, rostersvc.WithLogger(log))
	proposalSvc := proposal.NewService(docStore, syncer, proposalsvc.WithLogger(log))
	directiveSvc := directive.NewService(docStore, syncer, directivesvc.WithLogger(log))

	generator := assistant.NewGuardedGenerator(
		assistant.NewGemini(cfg.Assistant.BaseURL, cfg.Assistant.Model, cfg.Assistant.APIKey),
		assistantsvc.WithGuardLogger(log),
	)
	assistantSvc := assistant.NewService(generator, syncer, docStore,
		assistantsvc.WithLogger(log),
		assistantsvc.WithMetrics(assistant.NewMetrics()),
		assistantsvc.WithEvents(tracking),
		assistantsvc.WithTimeout(cfg.Assistant.Timeout),
	)

	// Identity: session start drives the sync layer and, for managers,
	// baseline seeding.
	tokens := token.NewService(cfg.JWTSigningKey, "workboard", "workboard-api")

	// Credentials and the revocation list share the redis backend when one
	// is configured, so every instance sees the same accounts and revoked
	// tokens. Memory otherwise.
	var (
		creds   credentials.Store = credentials.NewMemoryStore()
		revoked revocation.List   = revocation.NewMemoryList()
	)
	if redisClient != nil {
		creds = credentials.NewRedisStore(redisClient.Client)
		revoked = revocation.NewRedisList(redisClient.Client)
	}

	authSvc := auth.NewService(docStore, creds, tokens, revoked,
		authsvc.WithLogger(log),
		authsvc.WithMetrics(auth.NewMetrics()),
		authsvc.WithHooks(auth.Hooks{
			OnSignIn: func(hookCtx context.Context, state auth.AuthState) {
				syncer.Start(ctx)
				tracking.Login(hookCtx)
				if cfg.SeedOnStart && state.Role == domain.RoleManager {
					if err := seedSvc.EnsureSeed(hookCtx); err != nil {
						log.ErrorContext(hookCtx, "baseline seeding failed", "error", err)
					}
				}
			},
			OnSignOut: func(hookCtx context.Context) {
				tracking.EndSession(requestcontext.SessionID(hookCtx))
				syncer.Stop()
			},
		}),
	)

	router := server.NewRouter(server.Deps{
		Logger:      log,
		Validator:   token.NewValidatorAdapter(tokens),
		Revocation:  revocation.NewCheckerAdapter(revoked),
		AuthHandler: auth.NewHandler(authSvc, log),
		Handlers: []server.Registerer{
			workitem.NewHandler(workitemSvc, log),
			roster.NewHandler(rosterSvc, log),
			proposal.NewHandler(proposalSvc, log),
			directive.NewHandler(directiveSvc, assistantSvc, log),
			assistant.NewHandler(assistantSvc, log),
			analyticshandler.New(tracking, log),
		},
		SeedHandler: server.SeedHandler(seedSvc),
		Syncer:      syncer,
		Health:      health,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting workboard", "addr", cfg.Addr, "store", cfg.StoreBackend)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
