// Package pipeline implements the producer/consumer worker pools of
// spec.md §5: a bounded queue of record batches feeding a pool of
// block-builder workers, each writing its finished block to a dedicated
// slot, drained in dispatch order by a single writer thread.
package pipeline

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/tachyon-genomics/tachyon/internal/archivefmt"
	"github.com/tachyon-genomics/tachyon/internal/schema"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
	"github.com/tachyon-genomics/tachyon/internal/vblock"
	"github.com/tachyon-genomics/tachyon/internal/vindex"
)

// Producer is the external collaborator spec.md §6 names as the core's
// producer contract: a schema plus a forward-only stream of records,
// assumed already ordered by (contig, position) the way a VCF/BCF reader
// would emit them.
type Producer interface {
	Schema() *schema.Schema
	Next() (schema.Record, bool, error)
}

// RateLimiter throttles write throughput; TokenBucketLimiter, built on
// cockroachdb/tokenbucket, satisfies it (see NewTokenBucketLimiter). Optional: a nil
// RateLimiter in Options disables rate limiting entirely.
type RateLimiter interface {
	Wait(ctx context.Context, recordCount int) error
}

// Options configures one import run, per spec.md §6's `import` CLI flags.
type Options struct {
	// Threads bounds the block-builder worker pool's concurrency.
	Threads int
	// BatchRecords caps how many records one dispatched batch (and so one
	// block) carries.
	BatchRecords int
	// CheckpointRecords, if > 0, invokes the checkpoint callback every
	// this many records written (spec.md §6 `--checkpoint-records`).
	CheckpointRecords uint64
	// CompressionLevel is spec.md §6's `--compression-level`, 1..22 (0
	// disables compression entirely).
	CompressionLevel int
	// RateLimiter optionally throttles write throughput; nil disables it.
	RateLimiter RateLimiter
}

func (o *Options) ensureDefaults() {
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.BatchRecords <= 0 {
		o.BatchRecords = 5000
	}
}

// ImportStats accumulates the basic per-import counters spec.md §9's
// supplemented stats surface calls for: records imported, blocks written,
// bytes written, and a checksum-failure count. Writer.Run fills in the
// first three; it never increments ChecksumFailure.
type ImportStats struct {
	RecordsWritten  uint64
	BlocksWritten   uint64
	BytesWritten    uint64
	ChecksumFailure uint64
}

type batch struct {
	contigID uint32
	records  []schema.Record
}

type slotResult struct {
	block *vblock.EncodedBlock
	err   error
}

// Writer runs the write-side pipeline of spec.md §5: it groups p's record
// stream into per-contig batches, dispatches them to a bounded pool of
// block-builder workers, and drains the finished blocks in dispatch order
// through a single writer goroutine that appends them to w and advances
// idx. onCheckpoint, if non-nil, is invoked every opts.CheckpointRecords
// records written, in writer order.
type Writer struct {
	opts Options
}

// NewWriter returns a Writer configured by opts (defaults applied).
func NewWriter(opts Options) *Writer {
	opts.ensureDefaults()
	return &Writer{opts: opts}
}

// Run drains p fully, writing blocks to w (starting at absolute file
// offset baseOffset, i.e. however many bytes the caller already wrote to
// the same underlying sink before calling Run) and positional entries
// into idx. A worker error (including an unfinished in-flight batch)
// stops the writer from advancing past the last block it successfully
// wrote, per spec.md §5 "the writer must not advance the index past a
// block it did not finish." If ctx is cancelled, dispatch stops and Run
// returns a Cancelled error.
func (wr *Writer) Run(ctx context.Context, p Producer, w io.Writer, baseOffset uint64, idx *vindex.Index, onCheckpoint func(ImportStats)) (ImportStats, error) {
	sch := p.Schema()
	for i, c := range sch.Contigs {
		if err := idx.AddContig(uint32(i), c.Length); err != nil {
			return ImportStats{}, err
		}
	}

	pp := &peekingProducer{p: p}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wr.opts.Threads)

	slots := make(chan chan slotResult, wr.opts.Threads*2)
	var writeErr error
	writerDone := make(chan struct{})
	var stats ImportStats
	cw := &countingWriter{w: w, n: baseOffset}

	go func() {
		defer close(writerDone)
		var nextChecked uint64
		for slotCh := range slots {
			res := <-slotCh
			if res.err != nil {
				writeErr = res.err
				return
			}
			eb := res.block
			entry := vindex.IndexEntry{
				BlockID:    uint32(stats.BlocksWritten),
				ContigID:   eb.ContigID,
				MinPos:     uint64(eb.MinPos),
				MaxPos:     uint64(eb.MaxPos),
				NVariants:  eb.NVariants,
				ByteOffset: cw.n,
			}
			if err := archivefmt.WriteBlock(cw, eb); err != nil {
				writeErr = err
				return
			}
			entry.ByteLength = cw.n - entry.ByteOffset
			idx.Insert(entry)

			stats.BlocksWritten++
			stats.RecordsWritten += uint64(eb.NVariants)
			stats.BytesWritten = cw.n - baseOffset

			if onCheckpoint != nil && wr.opts.CheckpointRecords > 0 {
				for stats.RecordsWritten-nextChecked >= wr.opts.CheckpointRecords {
					nextChecked += wr.opts.CheckpointRecords
					onCheckpoint(stats)
				}
			}
		}
	}()

dispatch:
	for {
		b, more, err := nextBatch(pp, wr.opts.BatchRecords)
		if err != nil {
			close(slots)
			<-writerDone
			return stats, err
		}
		if !more {
			break dispatch
		}

		slotCh := make(chan slotResult, 1)
		select {
		case slots <- slotCh:
		case <-gctx.Done():
			break dispatch
		}

		level := wr.opts.CompressionLevel
		limiter := wr.opts.RateLimiter
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx, len(b.records)); err != nil {
					slotCh <- slotResult{err: err}
					return err
				}
			}
			builder := vblock.NewBuilder(sch, b.contigID)
			for _, r := range b.records {
				if err := builder.Add(r); err != nil {
					slotCh <- slotResult{err: err}
					return err
				}
			}
			eb, err := builder.Finalize(level)
			if err != nil {
				slotCh <- slotResult{err: err}
				return err
			}
			slotCh <- slotResult{block: eb}
			return nil
		})
	}
	close(slots)

	groupErr := g.Wait()
	<-writerDone
	if err := ctx.Err(); err != nil {
		return stats, tachyonerr.New(tachyonerr.Cancelled, "pipeline: import cancelled: %v", err)
	}
	if writeErr != nil {
		return stats, writeErr
	}
	if groupErr != nil {
		return stats, groupErr
	}
	return stats, nil
}

// peekingProducer adds a one-record pushback buffer over a Producer, so
// nextBatch can end a batch on a contig change without losing the record
// that triggered it.
type peekingProducer struct {
	p       Producer
	pending *schema.Record
}

func (pp *peekingProducer) next() (schema.Record, bool, error) {
	if pp.pending != nil {
		r := *pp.pending
		pp.pending = nil
		return r, true, nil
	}
	return pp.p.Next()
}

func (pp *peekingProducer) pushBack(r schema.Record) { pp.pending = &r }

// nextBatch pulls up to maxRecords consecutive same-contig records off pp,
// ending the batch (without consuming) at the first contig change; spec.md
// §4.2 blocks are single-contig, so a contig change always ends a batch.
func nextBatch(pp *peekingProducer, maxRecords int) (batch, bool, error) {
	var b batch
	started := false
	for len(b.records) < maxRecords {
		r, more, err := pp.next()
		if err != nil {
			return batch{}, false, err
		}
		if !more {
			break
		}
		if !started {
			b.contigID = r.ContigID
			started = true
		} else if r.ContigID != b.contigID {
			pp.pushBack(r)
			break
		}
		b.records = append(b.records, r)
	}
	if len(b.records) == 0 {
		return batch{}, false, nil
	}
	return b, true, nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}
