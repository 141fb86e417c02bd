package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starktol/config"
	"starktol/internal/database"
	"starktol/internal/forwarder"
	"starktol/internal/router"
	"starktol/internal/ws"
	"starktol/pkg/flutterwave"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gateway := flutterwave.NewClient(cfg.Flutterwave.BaseURL, cfg.Flutterwave.SecretKey)
	hub := ws.NewPaymentHub()
	hub.Start()

	engineRouter, jobStore := router.Setup(cfg, db, router.Deps{Gateway: gateway, Hub: hub})

	ledger := forwarder.NewLedgerClient(cfg.Ledger.BaseURL, cfg.Ledger.Timeout)
	dispatcher := forwarder.NewDispatcher(
		jobStore,
		ledger,
		cfg.Forwarder.PollInterval,
		cfg.Forwarder.BaseDelay,
		cfg.Forwarder.MaxDelay,
		cfg.Forwarder.MaxAttempts,
		cfg.Forwarder.BatchSize,
	)
	dispatchCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatchCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engineRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	stopDispatcher()
	hub.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
