package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	intconfig "travelbackend/internal/config"
	"travelbackend/internal/db"
	"travelbackend/internal/gateway"
	router "travelbackend/internal/http"
	"travelbackend/internal/http/handlers"
	"travelbackend/internal/notify"
)

func main() {
	cfg, err := intconfig.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}

	conn := intconfig.ConnectDB(cfg.MySQL)
	defer intconfig.CloseDB()

	if err := db.EnsureSchema(conn); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	var relay notify.Relay = notify.NopRelay{}
	if cfg.Redis.Enabled() {
		redisRelay, err := notify.NewRedisRelay(context.Background(), cfg.Redis)
		if err != nil {
			log.Printf("warning: redis relay unavailable, notifications disabled: %v", err)
		} else {
			defer redisRelay.Close()
			relay = redisRelay
		}
	}

	gw := gateway.NewClient(cfg.Razorpay)
	handlers.Configure(cfg, gw, relay)

	r := router.NewRouter(cfg)

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.App.ReadTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
		IdleTimeout:       cfg.App.IdleTimeout,
	}

	go func() {
		log.Printf("server listening on %s", cfg.App.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped cleanly.")
}
