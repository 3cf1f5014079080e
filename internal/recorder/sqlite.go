package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"VolSentinel/internal/model"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists price bars and volatility results to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_bars (
			symbol     TEXT NOT NULL,
			date       TEXT NOT NULL,
			provider   TEXT,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			volume     REAL,
			fetched_at INTEGER,
			PRIMARY KEY (symbol, date)
		)`,

		`CREATE TABLE IF NOT EXISTS volatility_runs (
			id                   TEXT PRIMARY KEY,
			timestamp            INTEGER NOT NULL,
			source               TEXT,
			rolling_window       INTEGER,
			annualisation_factor REAL,
			rv_window            INTEGER,
			estimators           TEXT,
			row_count            INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON volatility_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS volatility_results (
			run_id TEXT NOT NULL REFERENCES volatility_runs(id),
			date   TEXT NOT NULL,
			metric TEXT NOT NULL,
			value  REAL NOT NULL,
			PRIMARY KEY (run_id, date, metric)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_metric ON volatility_results(metric, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordBars upserts every bar of s keyed by (symbol, date).
func (r *SQLiteRecorder) RecordBars(s *model.PriceSeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO price_bars
		(symbol, date, provider, open, high, low, close, volume, fetched_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			provider=excluded.provider, open=excluded.open, high=excluded.high,
			low=excluded.low, close=excluded.close, volume=excluded.volume,
			fetched_at=excluded.fetched_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	fetched := s.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	for _, b := range s.Bars {
		if _, err := stmt.Exec(s.Symbol, b.Time.Format(dateLayout), s.Provider,
			b.Open, b.High, b.Low, b.Close, b.Volume, fetched.Unix()); err != nil {
			return fmt.Errorf("upsert %s %s: %w", s.Symbol, b.Time.Format(dateLayout), err)
		}
	}
	return tx.Commit()
}

// RecordVolatility stores the run and every defined value of t in long
// format, one row per (date, column).
func (r *SQLiteRecorder) RecordVolatility(run *VolatilityRun, t *model.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.Exec(`INSERT INTO volatility_runs
		(id, timestamp, source, rolling_window, annualisation_factor, rv_window, estimators, row_count)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, created.Unix(), run.Source, run.RollingWindow, run.AnnualisationFactor,
		run.RVWindow, strings.Join(run.Estimators, ","), t.Len(),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO volatility_results (run_id, date, metric, value) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		date := row.Date.Format(dateLayout)
		for j, v := range row.Values {
			if !v.Valid {
				continue
			}
			if _, err := stmt.Exec(run.ID, date, t.Columns[j], v.Float64); err != nil {
				return fmt.Errorf("insert result %s %s: %w", date, t.Columns[j], err)
			}
		}
	}
	return tx.Commit()
}

// LoadBars returns the stored bars of symbol within [start, end], oldest first.
func (r *SQLiteRecorder) LoadBars(symbol string, start, end time.Time) ([]model.OHLCV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT date, open, high, low, close, volume FROM price_bars
		WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date`,
		symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var day string
		var b model.OHLCV
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		if b.Time, err = time.Parse(dateLayout, day); err != nil {
			return nil, fmt.Errorf("stored date %q: %w", day, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LatestMetric returns the most recent stored value of metric across runs.
func (r *SQLiteRecorder) LatestMetric(metric string) (time.Time, float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var day string
	var value float64
	err := r.db.QueryRow(`SELECT res.date, res.value FROM volatility_results res
		JOIN volatility_runs run ON run.id = res.run_id
		WHERE res.metric = ?
		ORDER BY res.date DESC, run.timestamp DESC LIMIT 1`, metric).Scan(&day, &value)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, err
	}
	t, err := time.Parse(dateLayout, day)
	if err != nil {
		return time.Time{}, 0, false, err
	}
	return t, value, true, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
