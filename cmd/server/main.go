package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-reconciliation-backend/internal/config"
	"crm-reconciliation-backend/internal/httpkit"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/routes"
	"crm-reconciliation-backend/internal/services/matching"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("production").Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Error("failed to migrate database", "error", err.Error())
		os.Exit(1)
	}

	if err := httpkit.RegisterValidators(); err != nil {
		log.Error("failed to register validators", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpkit.RequestID())
	r.Use(httpkit.RequestLogger(log))
	r.Use(httpkit.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetCORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", httpkit.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", httpkit.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	rps, burst := cfg.GetRateLimit()
	if rps > 0 {
		r.Use(httpkit.NewIPRateLimiter(rate.Limit(rps), burst, log).RateLimit())
	}

	reconService := routes.RegisterRoutes(r, db, routes.Options{
		Policy:      matching.PolicyFromConfig(cfg.Matching),
		PhoneRegion: cfg.GetPhoneRegion(),
		Log:         log,
	})

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err.Error())
	}
	reconService.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
