package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"VolSentinel/internal/collector"
	"VolSentinel/internal/notifier"

	"github.com/robfig/cron/v3"
)

// Sender delivers report messages. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the fetch workflow on a cron schedule and on demand.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  Sender // nil disables notifications
	Lookback  int    // days
	Ctx       context.Context
	Now       func() time.Time

	run  sync.Mutex
	mu   sync.Mutex
	last *collector.MarketData
}

// NewScheduler creates a new Scheduler. Overlapping cron runs are skipped.
func NewScheduler(ctx context.Context, col *collector.Collector, sender Sender, lookbackDays int) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Collector: col,
		Notifier:  sender,
		Lookback:  lookbackDays,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// Register adds the fetch job. An empty spec registers nothing.
func (s *Scheduler) Register(fetchCron string) error {
	if fetchCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(fetchCron, s.fetchTask); err != nil {
		return fmt.Errorf("register fetch task: %w", err)
	}
	log.Printf("[INFO] fetch task scheduled: %s", fetchCron)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow fetches the trailing lookback window ending today and reports the
// result.
func (s *Scheduler) RunNow() (*collector.MarketData, error) {
	s.run.Lock()
	defer s.run.Unlock()

	end := s.Now().UTC()
	start := end.AddDate(0, 0, -s.Lookback)
	log.Printf("[INFO] running fetch task (%s to %s)", start.Format("2006-01-02"), end.Format("2006-01-02"))

	data, err := s.Collector.Collect(s.Ctx, start, end)
	if err != nil {
		log.Printf("[ERROR] fetch task: %v", err)
		s.trySend(fmt.Sprintf("❌ fetch failed: %s", html.EscapeString(err.Error())))
		return nil, err
	}

	s.mu.Lock()
	s.last = data
	s.mu.Unlock()

	s.trySend(notifier.FormatFetchReport(data.Equity, data.VolIndex, data.Premium, data.Files, data.Errors))
	return data, nil
}

func (s *Scheduler) fetchTask() {
	s.RunNow()
}

// Last returns the most recent successful fetch, or nil.
func (s *Scheduler) Last() *collector.MarketData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/fetch@VolSentinelBot"
	}
	switch cmd {
	case "/fetch":
		// RunNow sends its own report.
		s.RunNow()
		return ""
	case "/premium":
		last := s.Last()
		if last == nil || last.Premium == nil {
			return "No volatility premium yet. Send /fetch first."
		}
		return notifier.FormatPremiumSummary(*last.Premium)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
