package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"VolSentinel/internal/model"
	"VolSentinel/internal/recorder"
	"VolSentinel/internal/saver"

	"github.com/marstr/collection/v2"
	"golang.org/x/time/rate"
)

// DefaultDelay is the pause between provider calls; free-tier quote APIs
// allow about five requests a minute.
const DefaultDelay = 12 * time.Second

// Options configures a Collector. Zero values fall back to defaults.
type Options struct {
	Equity    string // default "SPX"
	VolIndex  string // default "VIX"
	Symbols   SymbolMap
	Delay     time.Duration // negative disables the delay
	Saver     saver.Saver
	DataDir   string
	Recorder  recorder.Recorder
	CacheSize uint // 0 disables the in-process cache
}

type cacheKey struct {
	provider, symbol string
	start, end       time.Time
}

// Collector orchestrates fetching, cleaning, deriving and saving market data.
type Collector struct {
	Fetcher Fetcher
	opts    Options
	limiter *rate.Limiter

	mu    sync.Mutex
	cache *collection.LRUCache[cacheKey, *model.PriceSeries]
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	if opts.Equity == "" {
		opts.Equity = "SPX"
	}
	if opts.VolIndex == "" {
		opts.VolIndex = "VIX"
	}
	if opts.Symbols == nil {
		opts.Symbols = DefaultSymbolMap()
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Saver == nil {
		opts.Saver = saver.CSVSaver{}
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	c := &Collector{
		Fetcher: fetcher,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
	if opts.CacheSize > 0 {
		c.cache = collection.NewLRUCache[cacheKey, *model.PriceSeries](opts.CacheSize)
	}
	return c
}

// Symbols returns the configured equity and volatility index names.
func (c *Collector) Symbols() (equity, volIndex string) {
	return c.opts.Equity, c.opts.VolIndex
}

// FetchSeries fetches the daily bars of symbol within [start, end]
// (calendar dates, inclusive). Bars failing validation are dropped and
// logged; for repeated dates the last bar wins.
func (c *Collector) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	ticker := c.opts.Symbols.Resolve(symbol)
	from, to := model.DateOf(start), model.DateOf(end)
	if to.Before(from) {
		return nil, &model.ValidationError{Field: "date range", Reason: fmt.Sprintf("end %s before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))}
	}
	key := cacheKey{provider: c.Fetcher.Name(), symbol: ticker, start: from, end: to}

	if cached, ok := c.cached(key); ok {
		log.Printf("[INFO] %s: using cached %s bars (%d)", symbol, ticker, cached.Len())
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	raw, err := c.Fetcher.FetchDaily(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	series := &model.PriceSeries{
		Symbol:    ticker,
		Provider:  c.Fetcher.Name(),
		Bars:      cleanBars(raw, ticker, from, to),
		FetchedAt: time.Now().UTC(),
	}
	if series.Len() == 0 {
		log.Printf("[WARN] %s: no bars between %s and %s", ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
	} else {
		log.Printf("[INFO] %s: fetched %d bars from %s (%s to %s)", ticker, series.Len(), series.Provider,
			series.Bars[0].Time.Format("2006-01-02"), series.Bars[series.Len()-1].Time.Format("2006-01-02"))
	}

	if c.cache != nil {
		c.mu.Lock()
		c.cache.Put(key, series)
		c.mu.Unlock()
	}
	return copySeries(series), nil
}

func (c *Collector) cached(key cacheKey) (*model.PriceSeries, bool) {
	if c.cache == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return copySeries(s), true
}

func copySeries(s *model.PriceSeries) *model.PriceSeries {
	cp := *s
	cp.Bars = append([]model.OHLCV(nil), s.Bars...)
	cp.Returns = append(model.Series(nil), s.Returns...)
	cp.RealizedVol = append(model.Series(nil), s.RealizedVol...)
	return &cp
}

// cleanBars validates, normalises to calendar dates, deduplicates (last
// wins), filters to [from, to] and sorts.
func cleanBars(raw []model.OHLCV, ticker string, from, to time.Time) []model.OHLCV {
	index := make(map[time.Time]int, len(raw))
	out := make([]model.OHLCV, 0, len(raw))
	dropped := 0
	for _, b := range raw {
		b.Time = model.DateOf(b.Time)
		if b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		if err := model.ValidateBar(b); err != nil {
			log.Printf("[WARN] %s: dropping bar: %v", ticker, err)
			dropped++
			continue
		}
		if i, ok := index[b.Time]; ok {
			out[i] = b
			continue
		}
		index[b.Time] = len(out)
		out = append(out, b)
	}
	if dropped > 0 {
		log.Printf("[WARN] %s: dropped %d invalid bars", ticker, dropped)
	}
	sortBars(out)
	return out
}

// MarketData is the result of one Collect run. Series whose fetch failed
// are nil, and so is everything derived from them.
type MarketData struct {
	Equity   *model.PriceSeries
	VolIndex *model.PriceSeries
	Combined *model.Table
	Premium  *model.PremiumSummary
	Files    []string
	Errors   []error
}

// Collect fetches the equity and volatility index over [start, end],
// derives returns and realized volatility, and writes
// <EQ>_data, <VOL>_data and <EQ>_<VOL>_Combined files to the data
// directory. A failed fetch is logged and its outputs are skipped; an
// error is returned only if every fetch failed.
func (c *Collector) Collect(ctx context.Context, start, end time.Time) (*MarketData, error) {
	eqLabel, volLabel := label(c.opts.Equity), label(c.opts.VolIndex)
	data := &MarketData{}
	failed := 0

	log.Printf("[INFO] fetching %s data...", eqLabel)
	eq, err := c.FetchSeries(ctx, c.opts.Equity, start, end)
	if err != nil {
		log.Printf("[ERROR] fetch %s: %v", eqLabel, err)
		failed++
		data.Errors = append(data.Errors, fmt.Errorf("fetch %s: %w", eqLabel, err))
	} else {
		Derive(eq)
		data.Equity = eq
		c.record(eq)
		c.save(data, saver.PriceTable(eq), eqLabel+"_data")
	}

	log.Printf("[INFO] fetching %s data...", volLabel)
	vol, err := c.FetchSeries(ctx, c.opts.VolIndex, start, end)
	if err != nil {
		log.Printf("[ERROR] fetch %s: %v", volLabel, err)
		failed++
		data.Errors = append(data.Errors, fmt.Errorf("fetch %s: %w", volLabel, err))
	} else {
		data.VolIndex = vol
		c.record(vol)
		c.save(data, saver.PriceTable(vol), volLabel+"_data")
	}

	if failed == 2 {
		return nil, errors.Join(data.Errors...)
	}
	if ctx.Err() != nil {
		return data, ctx.Err()
	}

	if data.Equity != nil && data.VolIndex != nil {
		data.Combined = CombinedTable(data.Equity, data.VolIndex, eqLabel, volLabel)
		c.save(data, data.Combined, data.Combined.Name)

		_, summary, err := Premium(data.Combined, eqLabel+"_RealizedVol", volLabel+"_Close")
		if err != nil {
			log.Printf("[WARN] volatility premium: %v", err)
		} else {
			data.Premium = &summary
			log.Printf("[INFO] volatility premium %s-%s: %s", eqLabel, volLabel, describe(summary))
		}
	}
	return data, nil
}

func (c *Collector) record(s *model.PriceSeries) {
	if err := c.opts.Recorder.RecordBars(s); err != nil {
		log.Printf("[WARN] record %s bars: %v", s.Symbol, err)
	}
}

func (c *Collector) save(data *MarketData, t *model.Table, base string) {
	path := filepath.Join(c.opts.DataDir, saver.FileName(c.opts.Saver, base))
	if err := c.opts.Saver.Save(t, path); err != nil {
		log.Printf("[ERROR] save %s: %v", path, err)
		data.Errors = append(data.Errors, fmt.Errorf("save %s: %w", path, err))
		return
	}
	data.Files = append(data.Files, path)
	log.Printf("[INFO] saved %d rows to %s", t.Len(), path)
}

// label turns a configured symbol into a file and column prefix.
func label(symbol string) string {
	return strings.ToUpper(strings.TrimLeft(strings.TrimSpace(symbol), "^"))
}
