package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/analytics"
	"github.com/veltaire/storefront/internal/cart"
	"github.com/veltaire/storefront/internal/catalog"
	"github.com/veltaire/storefront/internal/config"
	"github.com/veltaire/storefront/internal/events"
	"github.com/veltaire/storefront/internal/httpx"
	"github.com/veltaire/storefront/internal/identity"
	kafkax "github.com/veltaire/storefront/internal/kafka"
	"github.com/veltaire/storefront/internal/postgres"
	"github.com/veltaire/storefront/internal/profile"
	"github.com/veltaire/storefront/internal/redisx"
	"github.com/veltaire/storefront/internal/shopify"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: cart activity & profile sync (separate topics)
	cartProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicCartActivity, 1024, logger)
	cartProd.Start(ctx)
	profProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicProfileSynced, 1024, logger)
	profProd.Start(ctx)

	// Commerce platform client
	shop, err := shopify.New(shopify.Config{
		Domain:      cfg.ShopifyDomain,
		AccessToken: cfg.ShopifyToken,
		APIVersion:  cfg.ShopifyAPIVersion,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("storefront client", zap.Error(err))
	}

	// Identity provider client
	idp, err := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentitySecretKey, logger)
	if err != nil {
		logger.Fatal("identity client", zap.Error(err))
	}

	// Services
	catalogSvc := catalog.NewService(shop, rdb, logger)
	cartMgr := cart.NewManager(shop, catalogSvc, &cart.CookieStore{Secure: cfg.Production()}, logger)
	profileRepo := &profile.Repo{DB: db}
	bridge := profile.NewBridge(profileRepo, logger)
	stats := &analytics.Service{Redis: rdb, Log: logger}

	// Router & handlers
	router := httpx.NewRouter()
	ch := &httpx.CatalogHandler{Catalog: catalogSvc}
	ch.Register(router)
	crh := &httpx.CartHandler{
		Cart:     cartMgr,
		Producer: cartProd,
		Service:  cfg.ServiceName,
		Log:      logger,
	}
	crh.Register(router)
	ah := &httpx.AccountHandler{
		Identity: idp,
		Bridge:   bridge,
		Profiles: profileRepo,
		Producer: profProd,
		Service:  cfg.ServiceName,
		Log:      logger,
	}
	ah.Register(router)
	sh := &httpx.StatsHandler{Stats: stats}
	sh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cartProd.Close() // close inboxes -> flush & close writers
	profProd.Close()
	cancel() // stop producer loops
	cartProd.WaitClosed()
	profProd.WaitClosed()
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return logger
}
