package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"VolSentinel/internal/collector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func newTestScheduler(t *testing.T, m *collector.MockFetcher) (*Scheduler, *fakeSender) {
	t.Helper()
	col := collector.NewCollector(m, collector.Options{Delay: -1, DataDir: t.TempDir()})
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), col, sender, 90)
	s.Now = func() time.Time { return time.Date(2024, 6, 28, 22, 0, 0, 0, time.UTC) }
	return s, sender
}

func TestRunNow(t *testing.T) {
	s, sender := newTestScheduler(t, &collector.MockFetcher{Base: map[string]float64{"^VIX": 12}})

	data, err := s.RunNow()
	require.NoError(t, err)
	require.NotNil(t, data.Equity)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), data.Equity.Bars[0].Time,
		"first weekday of the lookback window")
	assert.Len(t, data.Files, 3)
	assert.Same(t, data, s.Last())

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "VolSentinel fetch")
	assert.Contains(t, msgs[0], "Volatility premium")
}

func TestRunNowFailure(t *testing.T) {
	down := errors.New("down")
	s, sender := newTestScheduler(t, &collector.MockFetcher{Errors: map[string]error{"^GSPC": down, "^VIX": down}})

	_, err := s.RunNow()
	require.Error(t, err)
	assert.Nil(t, s.Last())
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "fetch failed")
}

func TestHandleCommand(t *testing.T) {
	s, sender := newTestScheduler(t, &collector.MockFetcher{})

	assert.Contains(t, s.HandleCommand("/premium"), "/fetch first")
	assert.Contains(t, s.HandleCommand("hello"), "/fetch")

	assert.Empty(t, s.HandleCommand("/fetch@VolSentinelBot"))
	assert.Len(t, sender.messages(), 1)
	assert.Contains(t, s.HandleCommand("/PREMIUM"), "mean")
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{})
	assert.NoError(t, s.Register(""))
	assert.Empty(t, s.Cron.Entries())
	assert.NoError(t, s.Register("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("every evening"))
}
