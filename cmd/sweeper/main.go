// The sweeper demotes pending and approved reservations whose window
// already ended. Run it with -once from cron, or without for a
// long-running loop.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"devicelab/internal/config"
	"devicelab/internal/database"
	"devicelab/internal/repository"
	"devicelab/internal/sweeper"
)

func main() {
	configPath := flag.String("config", "sweeper.yaml", "path to sweeper config")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.LoadSweeper(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	sw := sweeper.New(repository.NewReservationRepository(db), cfg.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		n, err := sw.Sweep(ctx, time.Now())
		if err != nil {
			log.Fatalf("sweep: %v", err)
		}
		log.Printf("sweep expired %d reservations", n)
		return
	}

	log.Printf("sweeping every %s", cfg.Interval)
	sw.Run(ctx, cfg.Interval)
}
