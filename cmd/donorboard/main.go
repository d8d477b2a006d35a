package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"donorboard/internal/amqp"
	"donorboard/internal/analytics"
	"donorboard/internal/backend"
	"donorboard/internal/cache"
	"donorboard/internal/cli"
	"donorboard/internal/content"
	apphttp "donorboard/internal/http"
	"donorboard/internal/log"
	"donorboard/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	pageContent, err := content.Default()
	if err != nil {
		logger.Error("Failed to load page content", log.FieldError, err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err,
			"source", bcfg.Source.String(), "store", bcfg.Store.String())
		os.Exit(1)
	}

	engine := analytics.NewEngine(cfg.ViewCacheSize)
	caches := cache.NewManager()
	caches.Register("views", engine.Cache())
	deps := apphttp.Deps{
		Content:        pageContent,
		Engine:         engine,
		Sessions:       session.NewManager(res.Store, cfg.SessionTTL, os.Getenv("COOKIE_SECURE") == "true"),
		Source:         res.Source,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Pingers:        make(map[string]apphttp.Pinger),
		Caches:         make(map[string]apphttp.CacheStats),
	}
	for name, c := range res.Caches {
		caches.Register(name, c)
		deps.Caches[name] = c
	}
	for name, c := range res.Cleaners {
		caches.Register(name, c)
	}
	for name, p := range res.Pingers {
		deps.Pingers[name] = p
	}

	// Dataset events are optional; the dashboard runs without a broker.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without dataset events",
				log.FieldError, err,
				log.FieldComponent, log.ComponentAMQP)
		} else {
			deps.Publisher = publisher
			deps.Pingers["amqp"] = publisher
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"routing_key", cfg.AMQPRoutingKey)
		}
	}

	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if publisher != nil {
			_ = publisher.Close()
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting donorboard server",
		"port", cfg.Port,
		"source", bcfg.Source.String(),
		"session_store", bcfg.Store.String(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
