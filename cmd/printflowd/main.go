package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/orrn/printflow/internal/api"
	"github.com/orrn/printflow/internal/config"
	"github.com/orrn/printflow/internal/core"
	"github.com/orrn/printflow/internal/db"
	"github.com/orrn/printflow/internal/fetch"
	"github.com/orrn/printflow/internal/pdf"
	"github.com/orrn/printflow/internal/printer"
	"github.com/orrn/printflow/internal/store"
	"github.com/orrn/printflow/internal/webhook"
)

func main() {
	configPath := flag.String("config", "printflow.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] invalid config: %v", err)
	}

	history, err := db.Open(cfg.Storage.HistoryPath)
	if err != nil {
		log.Fatalf("[main] open history: %v", err)
	}
	defer history.Close()

	sequence := core.NewDeliverySequence(cfg.Delivery.StartLetter[0], nil)
	dispatcher := printer.NewLPDispatcher(cfg.Printer.Name)
	fetcher := fetch.NewClient(cfg.Fetch.Timeout)
	renderer := pdf.NewRenderer()

	executor := core.NewJobExecutor(
		sequence,
		dispatcher,
		fetcher,
		renderer,
		cfg.Storage.SpoolDir,
		cfg.Printer.SettleDelay,
		cfg.Printer.DispatchTimeout,
	)

	var notifier core.Notifier
	sender := webhook.NewSender(cfg.Webhooks)
	if len(cfg.Webhooks) > 0 {
		sender.Start()
		defer sender.Stop()
		notifier = sender
	}

	queue := core.NewQueue(store.NewFileStore(cfg.Storage.QueuePath), executor, history, notifier, &cfg.Queue)
	if err := queue.Start(); err != nil {
		log.Fatalf("[main] start queue: %v", err)
	}
	defer queue.Stop()

	router := api.NewRouter(cfg, queue, sequence, history)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[main] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[main] server shutdown: %v", err)
	}
}
