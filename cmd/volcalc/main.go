package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"VolSentinel/internal/calculator"
	"VolSentinel/internal/config"
	"VolSentinel/internal/model"
	"VolSentinel/internal/notifier"
	"VolSentinel/internal/recorder"
	"VolSentinel/internal/saver"
)

// Usage: volcalc [input.csv [output.(csv|json|parquet|xlsx)]]
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if len(os.Args) > 1 {
		cfg.Volatility.InputPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.Volatility.OutputPath = os.Args[2]
	}
	if err := cfg.ValidateVolatility(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	calc, err := calculator.New(cfg.Volatility.Params, cfg.Volatility.Estimators...)
	if err != nil {
		log.Fatalf("[FATAL] init calculator: %v", err)
	}
	out := outputSaver(cfg.Volatility.OutputPath, cfg.Output.Format)

	prices, err := saver.ReadPriceCSV(cfg.Volatility.InputPath)
	if err != nil {
		log.Fatalf("[FATAL] read prices: %v", err)
	}
	log.Printf("[INFO] read %d rows from %s", prices.Len(), cfg.Volatility.InputPath)

	results, err := calc.CalculateTable(prices)
	if err != nil {
		log.Fatalf("[FATAL] calculate volatility: %v", err)
	}
	if err := out.Save(results, cfg.Volatility.OutputPath); err != nil {
		log.Fatalf("[FATAL] save results: %v", err)
	}
	log.Printf("[INFO] saved %d rows to %s", results.Len(), cfg.Volatility.OutputPath)

	if cfg.Database.SQLitePath != "" {
		record(cfg, results)
	}

	date, readings, ok := calculator.Latest(results)
	if !ok {
		return
	}
	for _, r := range readings {
		log.Printf("[INFO] %s %s = %.4f", date.Format("2006-01-02"), r.Column, r.Value)
	}

	if cfg.Telegram.BotToken != "" {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		msg := notifier.FormatVolatilityReport(prices.Name, date, readings)
		if err := tn.SendWithRetry(context.Background(), msg, 3); err != nil {
			log.Printf("[ERROR] send notification: %v", err)
		}
	}
}

// outputSaver picks the format from the output extension, falling back to
// the configured format.
func outputSaver(path, format string) saver.Saver {
	if s := saver.NewSaver(strings.TrimPrefix(filepath.Ext(path), ".")); s != nil && filepath.Ext(path) != "" {
		return s
	}
	s := saver.NewSaver(format)
	if s == nil {
		log.Fatalf("[FATAL] unsupported output format %q", format)
	}
	return s
}

func record(cfg *config.Config, results *model.Table) {
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, results not archived: %v", err)
		return
	}
	defer rec.Close()

	names := cfg.Volatility.Estimators
	if len(names) == 0 {
		names = calculator.EstimatorNames()
	}
	run := recorder.NewVolatilityRun(cfg.Volatility.InputPath, cfg.Volatility.RollingWindow,
		cfg.Volatility.AnnualisationFactor, cfg.Volatility.RVWindow, names)
	if err := rec.RecordVolatility(run, results); err != nil {
		log.Printf("[ERROR] record volatility run: %v", err)
		return
	}
	log.Printf("[INFO] recorded volatility run %s", run.ID)
}
