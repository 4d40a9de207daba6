package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/leonardcser/college-api/internal/api"
	"github.com/leonardcser/college-api/internal/cache"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/config"
	"github.com/leonardcser/college-api/internal/docstore"
	"github.com/leonardcser/college-api/internal/favorites"
	"github.com/leonardcser/college-api/internal/logger"
	"github.com/leonardcser/college-api/internal/metrics"
	"github.com/leonardcser/college-api/internal/realtime"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(err)
	}
	if err := initLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		logger.Errorf("server error: %v", err)
		os.Exit(1)
	}
}

func initLogger(cfg config.LogConfig) error {
	if cfg.Level != "" {
		logger.SetLevel(logger.ParseLevel(cfg.Level))
	}
	if cfg.Path == "" {
		return logger.InitFromEnv()
	}
	return logger.Init(cfg.Path)
}

func run(cfg *config.Config) error {
	logger.Infof("Starting college API server")

	store, err := docstore.Open(cfg.Store.Path, docstore.Options{Timeout: cfg.Store.OpenTimeout})
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Infof("Opened document store at %s", cfg.Store.Path)

	m := metrics.New("college_api")
	accessor := cache.New(cache.Options{ProducerTimeout: cfg.Cache.ProducerTimeout, Metrics: m})
	live := realtime.NewService(realtime.NewCatalogProvider(store), accessor, realtime.Options{TTL: cfg.Cache.TTL})

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Catalog:   catalog.NewService(store),
		Favorites: favorites.New(store),
		Realtime:  live,
		Metrics:   m,
	}, api.Options{
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		CORSOrigins: cfg.Server.CORSAllow,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
