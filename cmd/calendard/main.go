package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryanbeasley/odsa-app-sub000/config"
	"github.com/ryanbeasley/odsa-app-sub000/internal/clients/discord"
	"github.com/ryanbeasley/odsa-app-sub000/internal/feed"
	"github.com/ryanbeasley/odsa-app-sub000/internal/notify"
	"github.com/ryanbeasley/odsa-app-sub000/internal/scheduler"
	"github.com/ryanbeasley/odsa-app-sub000/internal/server"
	"github.com/ryanbeasley/odsa-app-sub000/internal/service"
	"github.com/ryanbeasley/odsa-app-sub000/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	discordClient := discord.NewClient(cfg.DiscordBotToken, cfg.DiscordGuildID)
	seriesSvc := service.NewSeriesService(store)
	syncSvc := service.NewSyncService(store, discordClient, seriesSvc)
	feedGen := feed.NewGenerator(store, cfg.PublicHost)

	notifier, err := notify.New(cfg.TelegramToken, cfg.AdminTelegramID)
	if err != nil {
		log.Fatalf("Failed to init notifier: %v", err)
	}

	sched := scheduler.New(cfg, syncSvc)
	if notifier.Enabled() {
		sched.SetReporter(notifier)
	}

	srv := server.New(cfg, store, seriesSvc, syncSvc, feedGen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if discordClient.IsConfigured() {
		go func() {
			if err := sched.Start(ctx); err != nil {
				log.Printf("Scheduler error: %v", err)
			}
		}()
	} else {
		log.Println("Discord credentials not configured, sync disabled")
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Calendar service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	if discordClient.IsConfigured() {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping server: %v", err)
	}

	log.Println("Calendar service stopped")
}
