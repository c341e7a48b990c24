package pipeline

import (
	"sort"
	"sync"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// Collector is the one shared sink concurrent workers write to. A failure
// never aborts unrelated work; it is recorded here and the run carries on.
type Collector struct {
	mu         sync.Mutex
	failures   []model.Failure
	residuals  []model.RollbackResidual
	rollbacks  int
	failedKeys map[timeseries.Key]bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{failedKeys: make(map[timeseries.Key]bool)}
}

// Fail records a slice or series failure.
func (c *Collector) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, model.FailureFor(err))
}

// FailEntry records a pre-built failure entry.
func (c *Collector) FailEntry(f model.Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

// FailSeries records a series failure and marks the series failed so the
// group stages treat its unresolved points as missing.
func (c *Collector) FailSeries(key timeseries.Key, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, model.FailureFor(err))
	c.failedKeys[key] = true
}

// SeriesFailed reports whether a series was marked failed.
func (c *Collector) SeriesFailed(key timeseries.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failedKeys[key]
}

// Residual records deficit a rollback window could not absorb.
func (c *Collector) Residual(r model.RollbackResidual) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.residuals = append(c.residuals, r)
}

// CountRollback increments the rollback counter.
func (c *Collector) CountRollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollbacks++
}

// Failures returns the recorded failures sorted by locator, so reports are
// stable regardless of worker scheduling.
func (c *Collector) Failures() []model.Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Failure, len(c.failures))
	copy(out, c.failures)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Residuals returns the recorded residuals sorted by locator.
func (c *Collector) Residuals() []model.RollbackResidual {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.RollbackResidual, len(c.residuals))
	copy(out, c.residuals)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// Rollbacks returns the rollback count.
func (c *Collector) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

// FailureCount returns how many failures were recorded.
func (c *Collector) FailureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures)
}
