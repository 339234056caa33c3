package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tachyon-genomics/tachyon"
)

func newViewCmd() *cobra.Command {
	var (
		input     string
		regions   []string
		threads   int
		stats     bool
		histogram bool
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Stream records from a Tachyon archive, or summarize it with --stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := tachyon.Open(input, tachyon.ViewOptions{Threads: threads})
			if err != nil {
				return err
			}
			defer a.Close()

			if stats {
				return runStats(cmd, a, histogram)
			}
			return runQuery(cmd, a, regions)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to the archive to open (required)")
	cmd.Flags().StringArrayVar(&regions, "region", nil, "contig[:from[-to]], may be repeated; omit for every record")
	cmd.Flags().IntVar(&threads, "threads", 0, "decoder worker count (default: 1)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print per-contig block/record/byte counts instead of records")
	cmd.Flags().BoolVar(&histogram, "histogram", false, "with --stats, also render an ASCII sparkline of per-contig block counts")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runStats(cmd *cobra.Command, a *tachyon.Archive, histogram bool) error {
	rows := a.Stats()

	tw := tablewriter.NewWriter(cmd.OutOrStdout())
	tw.SetHeader([]string{"Contig", "Blocks", "Records", "Bytes"})
	for _, r := range rows {
		tw.Append([]string{r.Contig, strconv.Itoa(r.Blocks), strconv.Itoa(r.Records), strconv.FormatUint(r.Bytes, 10)})
	}
	tw.Render()

	if histogram && len(rows) > 0 {
		data := make([]float64, len(rows))
		labels := make([]string, len(rows))
		for i, r := range rows {
			data[i] = float64(r.Blocks)
			labels[i] = r.Contig
		}
		cmd.Println()
		cmd.Println(asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Caption("blocks per contig: "+strings.Join(labels, ", "))))
	}
	return nil
}

func runQuery(cmd *cobra.Command, a *tachyon.Archive, regions []string) error {
	if len(regions) == 0 {
		it, err := a.Records(context.Background())
		if err != nil {
			return err
		}
		return printRecords(cmd, it)
	}
	for _, region := range regions {
		contig, from, to, err := parseRegion(region)
		if err != nil {
			return err
		}
		it, err := a.Query(context.Background(), contig, from, to)
		if err != nil {
			return err
		}
		if err := printRecords(cmd, it); err != nil {
			return err
		}
	}
	return nil
}

func printRecords(cmd *cobra.Command, it *tachyon.RecordIter) error {
	for it.Next() {
		r := it.Record()
		alleles := make([]string, len(r.Alleles))
		for i, a := range r.Alleles {
			alleles[i] = string(a)
		}
		cmd.Printf("%d\t%d\t%s\n", r.ContigID, r.Position, strings.Join(alleles, ","))
	}
	return nil
}

// parseRegion parses "contig[:from[-to]]" per spec.md §6's `--region`
// flag. A bare contig covers positions 0 through the largest uint64;
// "contig:from" without "-to" selects the single position from.
func parseRegion(region string) (contig string, from, to uint64, err error) {
	contig, rangePart, hasRange := strings.Cut(region, ":")
	if contig == "" {
		return "", 0, 0, fmt.Errorf("tachyon: empty contig in --region %q", region)
	}
	if !hasRange {
		return contig, 0, ^uint64(0), nil
	}
	fromStr, toStr, hasTo := strings.Cut(rangePart, "-")
	from, err = strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("tachyon: bad --region %q: %w", region, err)
	}
	if !hasTo {
		return contig, from, from, nil
	}
	to, err = strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("tachyon: bad --region %q: %w", region, err)
	}
	return contig, from, to, nil
}
