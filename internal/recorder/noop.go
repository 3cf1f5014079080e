package recorder

import "VolSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBars(_ *model.PriceSeries) error                   { return nil }
func (n *NoopRecorder) RecordVolatility(_ *VolatilityRun, _ *model.Table) error { return nil }
func (n *NoopRecorder) Close() error                                             { return nil }
