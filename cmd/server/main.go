package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/cart"
	"github.com/tokobelanja/checkout-service/internal/catalog"
	"github.com/tokobelanja/checkout-service/internal/checkout"
	"github.com/tokobelanja/checkout-service/internal/config"
	"github.com/tokobelanja/checkout-service/internal/db"
	handler "github.com/tokobelanja/checkout-service/internal/handler/http"
	"github.com/tokobelanja/checkout-service/internal/payment"
	"github.com/tokobelanja/checkout-service/internal/transaction"
	"github.com/tokobelanja/checkout-service/internal/user"
	"github.com/tokobelanja/checkout-service/pkg/metrics"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "checkout-service").Logger()

	log.Info().Msg("Checkout service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbConn, err := db.New(ctx, cfg.Postgres)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	userRepo := user.NewRepository(dbConn.Pool)
	catalogRepo := catalog.NewRepository(dbConn.Pool)
	cartRepo := cart.NewRepository(dbConn.Pool)
	transactionRepo := transaction.NewRepository(dbConn.Pool)

	gateway := payment.NewSnapGateway(cfg.Midtrans.ServerKey, cfg.Midtrans.Production, cfg.Midtrans.Timeout)

	cartSvc := cart.NewService(cartRepo, userRepo, catalogRepo)
	transactionSvc := transaction.NewService(transactionRepo, userRepo, catalogRepo)
	checkoutSvc := checkout.NewService(userRepo, cartSvc, catalogRepo, transactionRepo, gateway)

	m := metrics.NewServerMetrics("checkout")
	router := handler.NewRouter(cartSvc, checkoutSvc, transactionSvc, m)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
