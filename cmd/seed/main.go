// Seed populates a fresh database with an admin account and a small
// device catalog for local development.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"devicelab/internal/database"
	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
	"devicelab/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	devices := repository.NewDeviceRepository(db)

	seedAdmin(ctx, users)
	seedDevices(ctx, devices)

	log.Println("Seed complete")
}

func seedAdmin(ctx context.Context, users *repository.UserRepository) {
	const username = "admin"

	if _, err := users.GetByUsername(ctx, username); err == nil {
		log.Println("admin user already exists, skipping")
		return
	} else if !errors.Is(err, apperr.ErrNotFound) {
		log.Fatalf("seed admin: %v", err)
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("SEED_ADMIN_PASSWORD not set, using default admin123")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	now := time.Now()
	err = users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		RealName:     "Lab Administrator",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	log.Println("created admin user")
}

func seedDevices(ctx context.Context, devices *repository.DeviceRepository) {
	now := time.Now()
	catalog := []domain.Device{
		{Code: "OSC-001", Name: "Oscilloscope", Brand: "Rigol", Model: "DS1054Z", Location: "Lab A, bench 1"},
		{Code: "OSC-002", Name: "Oscilloscope", Brand: "Rigol", Model: "DS1054Z", Location: "Lab A, bench 2"},
		{Code: "PSU-001", Name: "Bench power supply", Brand: "Keysight", Model: "E36313A", Location: "Lab A, bench 1"},
		{Code: "SA-001", Name: "Spectrum analyzer", Brand: "Siglent", Model: "SSA3021X", Location: "Lab B, bench 3"},
		{Code: "PRN3D-001", Name: "3D printer", Brand: "Prusa", Model: "MK4", Location: "Workshop"},
	}

	for i := range catalog {
		d := &catalog[i]
		if _, err := devices.GetByCode(ctx, d.Code); err == nil {
			log.Printf("device %s already exists, skipping", d.Code)
			continue
		} else if !errors.Is(err, apperr.ErrNotFound) {
			log.Fatalf("seed devices: %v", err)
		}

		d.Status = domain.DeviceAvailable
		d.CreatedAt = now
		d.UpdatedAt = now
		if err := devices.Create(ctx, d); err != nil {
			log.Fatalf("seed devices: %v", err)
		}
		log.Printf("created device %s", d.Code)
	}
}
