package tachyon

import (
	"bufio"
	"context"
	"os"

	"github.com/tachyon-genomics/tachyon/internal/archivefmt"
	"github.com/tachyon-genomics/tachyon/internal/pipeline"
	"github.com/tachyon-genomics/tachyon/internal/vindex"
)

// Import drains p into a new archive at path, per spec.md §6's `import`
// CLI contract: magic+version, the compressed global header, the block
// sequence written by the pipeline's worker pool, and the trailing
// footer with the positional index.
func Import(ctx context.Context, path string, p Producer, opts ImportOptions) (pipeline.ImportStats, error) {
	opts = opts.EnsureDefaults()

	f, err := os.Create(path)
	if err != nil {
		return pipeline.ImportStats{}, wrapIOErr(err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	cw := &countingWriter{w: bw}

	if err := archivefmt.WriteHeader(cw); err != nil {
		return pipeline.ImportStats{}, err
	}
	if err := archivefmt.WriteGlobalHeader(cw, archivefmt.NewSchema(p.Schema())); err != nil {
		return pipeline.ImportStats{}, err
	}

	idx := vindex.NewIndex()
	var limiter pipeline.RateLimiter
	if opts.WriteRateLimit > 0 {
		limiter = pipeline.NewTokenBucketLimiter(opts.WriteRateLimit, opts.WriteRateLimit)
	}
	wr := pipeline.NewWriter(pipeline.Options{
		Threads:           opts.Threads,
		BatchRecords:      opts.TargetBlockRecords,
		CheckpointRecords: opts.CheckpointRecords,
		CompressionLevel:  opts.CompressionLevel,
		RateLimiter:       limiter,
	})

	onCheckpoint := opts.OnCheckpoint
	if onCheckpoint == nil {
		onCheckpoint = func(pipeline.ImportStats) {}
	}
	var lastReported uint64
	stats, err := wr.Run(ctx, p, cw, cw.n, idx, func(s pipeline.ImportStats) {
		opts.Logger.Infof("import checkpoint: %d records, %d blocks", s.RecordsWritten, s.BlocksWritten)
		if opts.Metrics != nil {
			opts.Metrics.RecordsImported.Add(float64(s.RecordsWritten - lastReported))
			lastReported = s.RecordsWritten
		}
		onCheckpoint(s)
	})
	if err != nil {
		return stats, err
	}

	footerStart := cw.n
	if err := archivefmt.WriteFooter(cw, idx, footerStart); err != nil {
		return stats, err
	}
	if err := bw.Flush(); err != nil {
		return stats, wrapIOErr(err)
	}
	if opts.Metrics != nil {
		opts.Metrics.RecordsImported.Add(float64(stats.RecordsWritten - lastReported))
		opts.Metrics.BlocksWritten.Add(float64(stats.BlocksWritten))
		opts.Metrics.BytesWritten.Add(float64(stats.BytesWritten))
	}
	opts.Logger.Infof("import complete: %d records in %d blocks, %d bytes", stats.RecordsWritten, stats.BlocksWritten, stats.BytesWritten)
	return stats, nil
}

type countingWriter struct {
	w interface {
		Write([]byte) (int, error)
	}
	n uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}
