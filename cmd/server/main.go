package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"lead-outreach-driver/internal/api"
	"lead-outreach-driver/internal/campaign"
	"lead-outreach-driver/internal/config"
	"lead-outreach-driver/internal/orchestrator"
	"lead-outreach-driver/internal/storage"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := orchestrator.New(cfg.Orchestrator.BaseURL, cfg.Orchestrator.Workflow, cfg.RequestTimeout())

	driver := campaign.New(client, campaign.Options{
		PollAfterResume: cfg.Campaign.PollAfterResume,
		PollTimeout:     cfg.PollTimeout(),
		PollInterval:    cfg.PollInterval(),
	})

	if cfg.ArchiveEnabled() {
		store, err := storage.New(rootCtx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init report archive")
		}
		defer store.Close()
		driver.SetArchiver(store)
		log.Info().Str("host", cfg.Postgres.Host).Msg("report archive enabled")
	}

	h := api.NewCampaignHandler(driver)
	r := api.Router(h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Campaign loop
	go driver.Run(rootCtx, cfg.TickInterval())

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("orchestrator", cfg.Orchestrator.BaseURL).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop campaign loop
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
