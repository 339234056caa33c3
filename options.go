package tachyon

import "github.com/tachyon-genomics/tachyon/internal/pipeline"

// Options are shared by ImportOptions and ViewOptions.
type Options struct {
	// Logger receives structured progress and error messages; nil selects
	// DefaultLogger.
	Logger Logger
	// Metrics, if non-nil, receives Import's record, block and byte
	// counters; nil disables metrics collection entirely. Archive queries
	// record nothing into it.
	Metrics *Metrics
}

// EnsureDefaults returns a copy of o with every unset field given its
// default value, the pebble-wide Options convention: a caller never has
// to special-case a zero-value Options.
func (o Options) EnsureDefaults() Options {
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	return o
}

// ImportOptions configures Import, mirroring spec.md §6's `import` CLI
// flags.
type ImportOptions struct {
	Options

	// Threads bounds the block-builder worker pool.
	Threads int
	// TargetBlockRecords caps how many records one block holds.
	TargetBlockRecords int
	// CheckpointRecords, if > 0, invokes OnCheckpoint every this many
	// records written.
	CheckpointRecords uint64
	// CompressionLevel is 1..22; 0 disables compression.
	CompressionLevel int
	// WriteRateLimit, if > 0, caps write throughput in records/second.
	WriteRateLimit float64
	// OnCheckpoint, if non-nil, is invoked from the writer goroutine every
	// CheckpointRecords records.
	OnCheckpoint func(pipeline.ImportStats)
}

// EnsureDefaults fills in ImportOptions' Tachyon-specific zero values in
// addition to the shared Options defaults.
func (o ImportOptions) EnsureDefaults() ImportOptions {
	o.Options = o.Options.EnsureDefaults()
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.TargetBlockRecords <= 0 {
		o.TargetBlockRecords = 5000
	}
	return o
}

// ViewOptions configures querying an open Archive, mirroring spec.md §6's
// `view` CLI flags.
type ViewOptions struct {
	Options

	// Threads bounds the decoder worker pool.
	Threads int
}

// EnsureDefaults fills in ViewOptions' Tachyon-specific zero values.
func (o ViewOptions) EnsureDefaults() ViewOptions {
	o.Options = o.Options.EnsureDefaults()
	if o.Threads <= 0 {
		o.Threads = 1
	}
	return o
}
