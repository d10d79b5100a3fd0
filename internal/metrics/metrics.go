// Package metrics builds the tally scope a run reports into. Values are
// flushed to the zap logger when the scope is closed.
package metrics

import (
	"io"
	"sort"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
)

// Prefix is prepended to every metric name.
const Prefix = "als_transform"

// Metric names.
const (
	RecordsProcessed = "records_processed"
	RecordsPassed    = "records_passed"
	RecordsFailed    = "records_failed"
	RecordsEmitted   = "records_emitted"
	TransformErrors  = "transform_errors"
	Violations       = "violations"
	RunLatency       = "run_latency"
	RunAborted       = "run_aborted"

	// TagRule tags Violations with the violated rule.
	TagRule = "rule"
)

// NewScope returns a root scope whose values are logged at info level on
// Close. A nil logger yields a no-op scope.
func NewScope(logger *zap.Logger) (tally.Scope, io.Closer) {
	if logger == nil {
		return tally.NoopScope, io.NopCloser(nil)
	}

	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:   Prefix,
		Reporter: &zapReporter{logger: logger.Named("metrics")},
	}, 0)
}

type zapReporter struct {
	logger *zap.Logger
}

var _ tally.StatsReporter = (*zapReporter)(nil)

func (r *zapReporter) Capabilities() tally.Capabilities {
	return r
}

func (r *zapReporter) Reporting() bool {
	return true
}

func (r *zapReporter) Tagging() bool {
	return true
}

func (r *zapReporter) Flush() {
	_ = r.logger.Sync()
}

func (r *zapReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.logger.Info("counter", zap.String("name", name), tagsField(tags), zap.Int64("value", value))
}

func (r *zapReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.logger.Info("gauge", zap.String("name", name), tagsField(tags), zap.Float64("value", value))
}

func (r *zapReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.logger.Info("timer", zap.String("name", name), tagsField(tags), zap.Duration("value", interval))
}

func (r *zapReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	lower, upper float64,
	samples int64,
) {
	r.logger.Info("histogram", zap.String("name", name), tagsField(tags),
		zap.Float64("lower", lower), zap.Float64("upper", upper), zap.Int64("samples", samples))
}

func (r *zapReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	lower, upper time.Duration,
	samples int64,
) {
	r.logger.Info("histogram", zap.String("name", name), tagsField(tags),
		zap.Duration("lower", lower), zap.Duration("upper", upper), zap.Int64("samples", samples))
}

func tagsField(tags map[string]string) zap.Field {
	if len(tags) == 0 {
		return zap.Skip()
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+tags[k])
	}

	return zap.Strings("tags", pairs)
}
