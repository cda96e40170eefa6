package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/api/router"
	"github.com/RoyceAzure/lab/storefront/internal/appcontext"
	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/rs/zerolog/log"
)

// @title storefront
// @version 1.0
// @description 電商前台 API：商品、購物車、結帳與訂單

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.

const shutdownTimeout = 30 * time.Second

func main() {
	app, err := appcontext.NewApplicationContext(context.Background(), config.GetConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init application")
	}

	r := router.SetupRouter(app.Server, router.Options{
		Verifier:        app.Verifier,
		CheckoutLimiter: app.CheckoutLimiter,
		AllowedOrigins:  app.Cf.AllowedOrigins(),
		Logger:          app.Logger,
	})
	if err := router.LogRoutes(r, app.Logger); err != nil {
		log.Warn().Err(err).Msg("failed to walk routes")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", app.Cf.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 設置訊號監聽
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdownCompleted := make(chan struct{})
	go func() {
		defer close(shutdownCompleted)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("application shutdown error")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped unexpectedly")
	}
	<-shutdownCompleted
	log.Info().Msg("server closed")
}
