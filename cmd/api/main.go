package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telefonia-inventory-api/internal"
	"telefonia-inventory-api/internal/config"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	srv, err := internal.NewServer(cfg.DatabaseURL, cfg)
	if err != nil {
		log.WithError(err).Fatal("server startup failed")
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":         cfg.ListenAddr,
			"jwt_issuer":   cfg.JWTIssuer,
			"jwt_audience": cfg.JWTAudience,
		}).Info("starting inventory API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := srv.Close(ctx); err != nil {
		log.WithError(err).Warn("closing database")
	}
}
