package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/tachyon-genomics/tachyon"
	"github.com/tachyon-genomics/tachyon/internal/pipeline"
)

func newImportCmd() *cobra.Command {
	var (
		input             string
		output            string
		threads           int
		checkpointRecords uint64
		compressionLevel  int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a tab-separated variant stream into a Tachyon archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := newFileProducer(f)
			if err != nil {
				return err
			}

			opts := tachyon.ImportOptions{
				Threads:           threads,
				CheckpointRecords: checkpointRecords,
				CompressionLevel:  compressionLevel,
				OnCheckpoint: func(s pipeline.ImportStats) {
					cmd.Printf("checkpoint: %d records, %d blocks\n", s.RecordsWritten, s.BlocksWritten)
				},
			}
			stats, err := tachyon.Import(context.Background(), output, p, opts)
			if err != nil {
				return err
			}
			cmd.Printf("import complete: %d records in %d blocks, %d bytes\n",
				stats.RecordsWritten, stats.BlocksWritten, stats.BytesWritten)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to the import interchange file (required)")
	cmd.Flags().StringVar(&output, "output", "", "path to write the archive to (required)")
	cmd.Flags().IntVar(&threads, "threads", 0, "block-builder worker count (default: 1)")
	cmd.Flags().Uint64Var(&checkpointRecords, "checkpoint-records", 0, "report progress every N records (0 disables)")
	cmd.Flags().IntVar(&compressionLevel, "compression-level", 0, "container compression level, 0-22 (0 disables compression)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}
