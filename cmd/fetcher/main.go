package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VolSentinel/internal/collector"
	"VolSentinel/internal/config"
	"VolSentinel/internal/notifier"
	"VolSentinel/internal/recorder"
	"VolSentinel/internal/saver"
	"VolSentinel/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] VolSentinel fetcher starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.ValidateFetch(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	symbols := collector.DefaultSymbolMap().Merge(cfg.Symbols.Aliases)

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case config.ProviderFinnhub:
		fetcher = collector.NewFinnhubFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case config.ProviderMock:
		fetcher = &collector.MockFetcher{}
	default:
		av := collector.NewAlphaVantageFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
		if cfg.DataSource.EquityFunction != "" {
			av.Functions[symbols.Resolve(cfg.Symbols.Equity)] = cfg.DataSource.EquityFunction
		}
		fetcher = av
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	col := collector.NewCollector(fetcher, collector.Options{
		Equity:    cfg.Symbols.Equity,
		VolIndex:  cfg.Symbols.VolIndex,
		Symbols:   symbols,
		Delay:     cfg.DataSource.RequestDelay,
		Saver:     saver.MustSaver(cfg.Output.Format),
		DataDir:   cfg.Output.DataDir,
		Recorder:  rec,
		CacheSize: cfg.DataSource.CacheSize,
	})

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Schedule.FetchCron == "" {
		if err := runOnce(ctx, cfg, col, tn); err != nil {
			log.Printf("[ERROR] %v", err)
			os.Exit(1)
		}
		return
	}

	var sender scheduler.Sender
	if tn != nil {
		sender = tn
	}
	sched := scheduler.NewScheduler(ctx, col, sender, cfg.Range.LookbackDays)
	if err := sched.Register(cfg.Schedule.FetchCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing fetch task now")
		go sched.RunNow()
	}

	log.Println("[INFO] VolSentinel fetcher is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] VolSentinel fetcher stopped")
}

// runOnce fetches the configured date range a single time.
func runOnce(ctx context.Context, cfg *config.Config, col *collector.Collector, tn *notifier.TelegramNotifier) error {
	start, end, err := cfg.DateRange(time.Now())
	if err != nil {
		return err
	}
	data, err := col.Collect(ctx, start, end)
	if err != nil {
		return err
	}
	for _, f := range data.Files {
		log.Printf("[INFO] wrote %s", f)
	}
	if tn != nil {
		report := notifier.FormatFetchReport(data.Equity, data.VolIndex, data.Premium, data.Files, data.Errors)
		if err := tn.SendWithRetry(ctx, report, 3); err != nil {
			log.Printf("[ERROR] send notification: %v", err)
		}
	}
	return nil
}
