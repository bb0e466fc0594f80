package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RamanBirulia/stock-notebook/internal/auth"
	"github.com/RamanBirulia/stock-notebook/internal/cache"
	"github.com/RamanBirulia/stock-notebook/internal/config"
	"github.com/RamanBirulia/stock-notebook/internal/db"
	apihttp "github.com/RamanBirulia/stock-notebook/internal/http"
	"github.com/RamanBirulia/stock-notebook/internal/jobs"
	"github.com/RamanBirulia/stock-notebook/internal/logger"
	"github.com/RamanBirulia/stock-notebook/internal/price"
	"github.com/RamanBirulia/stock-notebook/internal/server"
	"github.com/RamanBirulia/stock-notebook/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("db connect", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			lg.Warn("db close", zap.Error(err))
		}
	}()

	marketCache := newCache(ctx, cfg, lg)

	var provider price.Provider
	switch cfg.Price.Provider {
	case config.ProviderRandom:
		provider = price.NewRandomFetcher(cfg.Price.RandomFloor, cfg.Price.RandomCeil)
	default:
		provider = price.NewYahooClient(cfg.Yahoo.BaseURL, cfg.Yahoo.Timeout)
	}

	priceSvc := price.NewService(store, provider, marketCache, lg.Named("price"), price.Options{
		PriceTTL:    cfg.Cache.PriceTTL,
		ChartTTL:    cfg.Cache.ChartTTL,
		SymbolTTL:   cfg.Cache.SymbolTTL,
		Concurrency: cfg.Price.Concurrency,
	})
	if err := priceSvc.SeedCatalog(ctx); err != nil {
		lg.Warn("seed symbol catalog", zap.Error(err))
	}

	tokens := auth.JWT{
		Secret:     []byte(cfg.JWT.Secret),
		AccessTTL:  cfg.JWT.TTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}
	authSvc := service.NewAuthService(store, tokens, nil, lg.Named("auth"))
	purchaseSvc := service.NewPurchaseService(store, nil, lg.Named("purchases"))
	portfolioSvc := service.NewPortfolioService(store, priceSvc, lg.Named("portfolio"))

	handler := apihttp.NewHandler(apihttp.Options{
		Auth:          authSvc,
		Purchases:     purchaseSvc,
		Portfolio:     portfolioSvc,
		Prices:        priceSvc,
		Tokens:        tokens,
		AdminToken:    cfg.AdminToken,
		AllowedOrigin: cfg.FrontendURL,
		Ping:          store.Ping,
		Log:           lg.Named("http"),
	})
	httpServer := server.New(cfg.Port, handler.Router(), server.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
	})

	priceJob := jobs.NewPriceSyncJob(priceSvc, store, portfolioSvc, lg.Named("jobs"))
	go func() {
		if err := priceJob.Start(ctx, cfg.Price.JobSchedule); err != nil {
			lg.Error("price sync job", zap.Error(err))
		}
	}()

	go func() {
		lg.Info("http server listening",
			zap.String("addr", httpServer.Addr()),
			zap.String("price_provider", provider.Name()),
			zap.String("cache", cfg.Cache.Backend))
		if err := httpServer.Start(); err != nil {
			lg.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		lg.Warn("http server shutdown", zap.Error(err))
	}
}

func newCache(ctx context.Context, cfg *config.Config, lg *zap.Logger) cache.Store {
	if cfg.Cache.Backend != config.CacheRedis {
		return cache.NewMemoryStore()
	}
	rs := cache.NewRedisStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Cache.Prefix)
	if err := rs.Ping(ctx); err != nil {
		lg.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rs.Close()
		return cache.NewMemoryStore()
	}
	return rs
}
