package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jpleclerc/linktrade/params"
	"github.com/jpleclerc/linktrade/pkg/api"
	"github.com/jpleclerc/linktrade/pkg/lang"
	"github.com/jpleclerc/linktrade/pkg/legalize"
	"github.com/jpleclerc/linktrade/pkg/notify"
	"github.com/jpleclerc/linktrade/pkg/queue"
	"github.com/jpleclerc/linktrade/pkg/shopify"
	"github.com/jpleclerc/linktrade/pkg/storage"
	"github.com/jpleclerc/linktrade/pkg/util"
	"github.com/jpleclerc/linktrade/pkg/worker"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	if cfg.Shop.URL == "" || cfg.Shop.AccessToken == "" {
		sugar.Fatal("SHOP_URL and SHOP_ACCESS_TOKEN must be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Audit store ----
	store, err := storage.NewPebbleStore(filepath.Join(cfg.DataDir, "trades"))
	if err != nil {
		sugar.Fatalw("store_open_failed", "err", err)
	}
	defer store.Close()

	// ---- Shared trade queue ----
	q := queue.New(queue.Options{
		DiscardClaimed:  cfg.Queue.DiscardClaimed,
		SecondsPerTrade: cfg.Queue.SecondsPerTrade,
	})

	// ---- Event mirror (optional) ----
	var mirror notify.Mirror
	if len(cfg.Events.Brokers) > 0 {
		km := notify.NewKafkaMirror(cfg.Events.Brokers, cfg.Events.Topic, sugar)
		defer km.Close()
		mirror = km
		sugar.Infow("event_mirror_enabled", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	}

	// ---- Workers ----
	// The simulated executor stands in until the device automation is wired.
	pool := worker.NewPool(q, worker.SimulatedExecutor{Delay: cfg.Workers.TradeDuration}, cfg.Workers.Count, sugar)
	pool.Start(ctx)

	// ---- Gateway ----
	shop := shopify.New(cfg.Shop.URL, cfg.Shop.AccessToken, sugar)
	server := api.NewServer(api.Deps{
		Queue:        q,
		Verifier:     shop,
		Builder:      legalize.SetBuilder{},
		Fulfiller:    shop,
		Recorder:     store,
		Mirror:       mirror,
		Clock:        util.RealClock{},
		Catalog:      lang.ForLanguage(cfg.Shop.Language),
		TradeSet:     cfg.TradeSet,
		PollInterval: cfg.Queue.PollInterval,
		Log:          sugar,
	})

	go func() {
		if err := server.Start(cfg.Server.Addr); err != nil {
			sugar.Fatalw("gateway_failed", "err", err)
		}
	}()

	sugar.Infow("server_started",
		"addr", cfg.Server.Addr,
		"workers", cfg.Workers.Count,
		"language", cfg.Shop.Language)

	<-ctx.Done()
	sugar.Info("shutting_down")
}
