package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"devicelab/internal/config"
	"devicelab/internal/database"
	"devicelab/internal/middleware"
	"devicelab/internal/modules/auth"
	"devicelab/internal/modules/device"
	"devicelab/internal/modules/reservation"
	"devicelab/internal/pkg/jwt"
	"devicelab/internal/repository"
	"devicelab/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	sessions := session.NewCacheStore(cfg.SessionTTL)
	tokens := jwt.New(cfg.JWTSecret, cfg.AccessTTL)

	authSvc := auth.NewService(userRepo, tokens, sessions)
	deviceSvc := device.NewService(deviceRepo, reservationRepo)
	reservationSvc := reservation.NewService(reservationRepo, deviceRepo)

	authHandler := auth.NewHandler(authSvc)
	deviceHandler := device.NewHandler(deviceSvc)
	reservationHandler := reservation.NewHandler(reservationSvc)

	r := gin.Default()
	r.Use(middleware.RateLimit(rate.Limit(cfg.RateLimitPerSec), cfg.RateBurst))

	api := r.Group("/api/v1")
	protected := api.Group("/", middleware.Auth(authSvc))

	authHandler.RegisterRoutes(api, protected)
	deviceHandler.RegisterRoutes(protected, middleware.AdminOnly())
	reservationHandler.RegisterRoutes(protected, middleware.AdminOnly())

	log.Printf("API listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
