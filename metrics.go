package tachyon

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Tachyon's counters and latency histograms, per spec.md §9's
// per-operation stats surface. Import adds to RecordsImported,
// BlocksWritten and BytesWritten; nothing in this package increments
// ChecksumErrors or calls ObserveBlockBuild/ObserveQuery. The prometheus
// counters are safe for concurrent use.
type Metrics struct {
	RecordsImported prometheus.Counter
	BlocksWritten   prometheus.Counter
	BytesWritten    prometheus.Counter
	ChecksumErrors  prometheus.Counter

	BlockBuildLatency *hdrhistogram.Histogram
	QueryLatency      *hdrhistogram.Histogram
}

// NewMetrics returns a Metrics with fresh prometheus counters (registered
// under the "tachyon" namespace) and microsecond-resolution latency
// histograms spanning 1us..10s.
func NewMetrics() *Metrics {
	const (
		lowestDiscernible = 1
		highestTrackable  = 10 * time.Second.Microseconds()
		sigFigs           = 3
	)
	return &Metrics{
		RecordsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tachyon", Name: "records_imported_total",
			Help: "Number of variant records imported.",
		}),
		BlocksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tachyon", Name: "blocks_written_total",
			Help: "Number of blocks appended to the archive.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tachyon", Name: "bytes_written_total",
			Help: "Number of compressed bytes written to the archive.",
		}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tachyon", Name: "checksum_errors_total",
			Help: "Number of container checksum mismatches observed.",
		}),
		BlockBuildLatency: hdrhistogram.New(lowestDiscernible, highestTrackable, sigFigs),
		QueryLatency:      hdrhistogram.New(lowestDiscernible, highestTrackable, sigFigs),
	}
}

// Registerer registers m's prometheus counters with r.
func (m *Metrics) Registerer(r prometheus.Registerer) error {
	for _, c := range []prometheus.Counter{m.RecordsImported, m.BlocksWritten, m.BytesWritten, m.ChecksumErrors} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveBlockBuild records how long one block took to build, in
// microseconds.
func (m *Metrics) ObserveBlockBuild(d time.Duration) {
	_ = m.BlockBuildLatency.RecordValue(d.Microseconds())
}

// ObserveQuery records how long one query took, in microseconds.
func (m *Metrics) ObserveQuery(d time.Duration) {
	_ = m.QueryLatency.RecordValue(d.Microseconds())
}
