package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	channeldomain "github.com/divverma2003/convo-app/internal/channel/domain"
	channelhandler "github.com/divverma2003/convo-app/internal/channel/handler"
	channelrepo "github.com/divverma2003/convo-app/internal/channel/repository"
	channelservice "github.com/divverma2003/convo-app/internal/channel/service"
	chathandler "github.com/divverma2003/convo-app/internal/chat/handler"
	"github.com/divverma2003/convo-app/internal/config"
	"github.com/divverma2003/convo-app/internal/identity/consumer"
	identityhandler "github.com/divverma2003/convo-app/internal/identity/handler"
	"github.com/divverma2003/convo-app/internal/identity/webhook"
	"github.com/divverma2003/convo-app/internal/user/cache"
	userdomain "github.com/divverma2003/convo-app/internal/user/domain"
	userhandler "github.com/divverma2003/convo-app/internal/user/handler"
	"github.com/divverma2003/convo-app/internal/user/presence"
	userrepo "github.com/divverma2003/convo-app/internal/user/repository"
	userservice "github.com/divverma2003/convo-app/internal/user/service"
	"github.com/divverma2003/convo-app/pkg/database"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/jwt"
	pkglog "github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/middleware"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	// Error reporting
	flushErrors, err := errreport.Init(cfg.Sentry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init sentry")
	}
	defer flushErrors()
	if cfg.Sentry.Enabled() {
		logger.Info().Str("environment", cfg.Sentry.Environment).Msg("sentry error reporting enabled")
	}

	// Database
	db, err := database.New(cfg.Database.ToDatabase())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &userdomain.UserModel{}, &channeldomain.ChannelModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	// Redis for the directory cache and presence
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	dirCache := cache.NewRedisDirectoryCache(rdb, cfg.Cache.Prefix)
	defer dirCache.Close()
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	// Optional elasticsearch directory backend
	var index userrepo.DirectoryIndex
	if cfg.Directory.Backend == config.BackendElasticsearch {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
		}
		esRepo := userrepo.NewESDirectoryRepository(esClient, cfg.Elasticsearch.IndexUsers)
		if err := esRepo.EnsureIndex(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare elasticsearch index")
		}
		index = esRepo
		logger.Info().Strs("addresses", cfg.Elasticsearch.Addresses).Msg("elasticsearch connected")
	}

	// Event bus for identity lifecycle events
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create pubsub")
	}
	defer bus.Close()

	tokens, err := jwt.NewManager(jwt.Config{
		SessionSecret: cfg.Identity.SessionSecret,
		SessionIssuer: cfg.Identity.SessionIssuer,
		ChatSecret:    cfg.Chat.APISecret,
		ChatTokenTTL:  cfg.Chat.TokenTTL,
		Leeway:        cfg.Identity.Leeway,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	auth := middleware.NewAuthMiddleware(tokens)

	// Services
	userSvc := userservice.NewUserService(
		userrepo.NewGormUserRepository(db),
		index,
		dirCache,
		presence.NewRedisStore(rdb, cfg.Presence.Prefix),
		userservice.Config{CacheTTL: cfg.Cache.TTL, PresenceTTL: cfg.Presence.TTL},
	)
	channelSvc := channelservice.NewChannelService(channelrepo.NewGormChannelRepository(db), userSvc)

	// Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(errreport.GinMiddleware())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(middleware.CORS(cfg.Server.ClientURL))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	userhandler.NewHandler(userSvc, auth).RegisterRoutes(r)
	channelhandler.NewHandler(channelSvc, auth).RegisterRoutes(r)
	chathandler.NewHandler(tokens, auth).RegisterRoutes(r)

	if cfg.Identity.WebhookSecret != "" {
		verifier, err := webhook.NewVerifier(cfg.Identity.WebhookSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid identity webhook secret")
		}
		identityhandler.NewHandler(verifier, bus).RegisterRoutes(r)
	} else {
		logger.Warn().Msg("identity webhook secret not set, webhook intake disabled")
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("convo-api starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return consumer.NewLifecycleWorker(bus, userSvc, channelSvc).Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("convo-api stopped with error")
		errreport.Capture(context.Background(), err, "api", nil)
		flushErrors()
		os.Exit(1)
	}
	logger.Info().Msg("convo-api stopped")
}
