package memory

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Config controls the memory guard.
type Config struct {
	// MemoryLimitBytes overrides the limit. Zero uses GOMEMLIMIT.
	MemoryLimitBytes int64
	// RecoverWaterMark is the usage ratio below which requests are
	// admitted again after a critical period.
	RecoverWaterMark float64
	// CriticalWaterMark is the usage ratio at which new work is refused.
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultConfig returns the guard defaults.
func DefaultConfig() Config {
	return Config{
		RecoverWaterMark:  0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and flips into a critical state when it
// crosses CriticalWaterMark, staying there until usage falls below
// RecoverWaterMark.
type Monitor struct {
	config   Config
	limit    int64
	readHeap func() uint64

	stopOnce sync.Once
	stop     chan struct{}

	mu       sync.RWMutex
	current  uint64
	critical bool
}

func readHeapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// NewMonitor returns a monitor. With no limit configured it never reports
// critical.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		readHeap: readHeapAlloc,
		stop:     make(chan struct{}),
	}
}

// Enabled reports whether a limit is known.
func (m *Monitor) Enabled() bool {
	return m.limit > 0
}

// Start begins periodic sampling. It is a no-op without a limit.
func (m *Monitor) Start() {
	if !m.Enabled() {
		logging.Debug("Memory guard disabled: no limit configured")
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) check() {
	alloc := m.readHeap()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case !m.critical && usage >= m.config.CriticalWaterMark:
		m.critical = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		logging.Warn("Memory critical (%.1f%% of limit), refusing new conversions", usage*100)
		go runtime.GC()
	case m.critical && usage < m.config.RecoverWaterMark:
		m.critical = false
		metrics.MemoryPaused.Set(0)
		logging.Info("Memory recovered (%.1f%% of limit), accepting conversions", usage*100)
	}
}

// Critical reports whether new work should be refused.
func (m *Monitor) Critical() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.critical
}

// Stats returns the last sample, the limit and their ratio.
func (m *Monitor) Stats() (current uint64, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.limit > 0 {
		usage = float64(m.current) / float64(m.limit)
	}
	return m.current, m.limit, usage
}

// Guard rejects requests with 503 while the monitor is critical. A nil
// monitor admits everything.
func Guard(m *Monitor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Critical() {
				metrics.UploadsRejectedTotal.WithLabelValues("memory").Inc()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "30")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "server is low on memory, retry later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
