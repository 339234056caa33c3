// Package tachyon implements a columnar storage engine for variant-call
// genomic records: a block-structured, compressed, randomly-addressable
// archive format with a two-tier positional index.
//
// A producer (an external VCF/BCF reader, say) is imported into an
// archive with Import. An archive can be reopened with Open, queried by
// contig range with Archive.Query, or iterated wholesale with
// Archive.Records.
//
//	stats, err := tachyon.Import(ctx, "out.tcy", producer, tachyon.ImportOptions{})
//	...
//	a, err := tachyon.Open("out.tcy", tachyon.ViewOptions{})
//	defer a.Close()
//	it, err := a.Query(ctx, "chr3", 1_000_000, 1_000_100)
//	for it.Next() {
//	  rec := it.Record()
//	}
package tachyon

import (
	"context"
	"encoding/binary"
	"io"
	"os"

	"github.com/tachyon-genomics/tachyon/internal/archivefmt"
	"github.com/tachyon-genomics/tachyon/internal/pipeline"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
	"github.com/tachyon-genomics/tachyon/internal/vindex"
)

// Archive is an opened, read-only Tachyon archive, per spec.md §6's
// consumer contract.
type Archive struct {
	f       *os.File
	schema  *archivefmt.Schema
	index   *vindex.Index
	version archivefmt.Version
	opts    ViewOptions
}

// Open opens the archive at path, reading its global header and footer
// eagerly; block bodies are fetched and decoded lazily by Query/Records.
func Open(path string, opts ViewOptions) (*Archive, error) {
	opts = opts.EnsureDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIOErr(err)
	}
	closeOnErr := func(err error) error {
		f.Close()
		return err
	}

	version, err := archivefmt.ReadHeader(f)
	if err != nil {
		return nil, closeOnErr(err)
	}
	sch, err := archivefmt.ReadGlobalHeader(f)
	if err != nil {
		return nil, closeOnErr(err)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, closeOnErr(wrapIOErr(err))
	}
	size := fi.Size()
	const tailLen = 8 + 4
	if size < tailLen {
		return nil, closeOnErr(tachyonerr.New(tachyonerr.Io, "tachyon: archive too small to contain a footer"))
	}

	var tail [tailLen]byte
	if _, err := f.ReadAt(tail[:], size-tailLen); err != nil {
		return nil, closeOnErr(wrapIOErr(err))
	}
	if gotMagic := [4]byte(tail[8:tailLen]); gotMagic != archivefmt.Magic {
		return nil, closeOnErr(tachyonerr.New(tachyonerr.FormatMagicMismatch,
			"tachyon: trailing magic mismatch: got %x want %x", gotMagic, archivefmt.Magic))
	}
	footerStart := binary.LittleEndian.Uint64(tail[0:8])
	if int64(footerStart) > size-tailLen {
		return nil, closeOnErr(tachyonerr.New(tachyonerr.Io, "tachyon: footer start offset past end of file"))
	}

	footerBody := make([]byte, size-tailLen-int64(footerStart))
	if _, err := f.ReadAt(footerBody, int64(footerStart)); err != nil {
		return nil, closeOnErr(wrapIOErr(err))
	}
	idx, err := archivefmt.ReadFooter(footerBody)
	if err != nil {
		return nil, closeOnErr(err)
	}

	return &Archive{f: f, schema: sch, index: idx, version: version, opts: opts}, nil
}

// Close releases the archive's underlying file handle.
func (a *Archive) Close() error { return wrapIOErr(a.f.Close()) }

// Schema returns the archive's samples, contigs, and field definitions.
func (a *Archive) Schema() *Schema { return a.schema.Schema }

// Version reports the archive format version this file was written with.
func (a *Archive) Version() (major, minor, patch uint8) {
	return a.version.Major, a.version.Minor, a.version.Patch
}

// fileFetcher implements pipeline.BlockFetcher over the archive's open
// file handle, letting the decoder pool fetch blocks by absolute byte
// range without knowing the file is involved at all.
type fileFetcher struct{ f *os.File }

func (ff fileFetcher) FetchBlock(ctx context.Context, offset, length uint64) (io.Reader, error) {
	return io.NewSectionReader(ff.f, int64(offset), int64(length)), nil
}

// Query streams the records on the named contig whose
// [Position, Position+max(1, len(ref allele))) span intersects [from, to],
// per spec.md §6's `query` contract.
func (a *Archive) Query(ctx context.Context, contig string, from, to uint64) (*RecordIter, error) {
	contigID, ok := a.schema.ContigID(contig)
	if !ok {
		return &RecordIter{}, nil
	}
	entries := a.index.LookupEntries(contigID, from, to)
	it, err := a.decodeEntries(ctx, entries)
	if err != nil {
		return nil, err
	}
	it.filterRange(from, to)
	return it, nil
}

// Records returns an unordered-over-blocks iterator of every record in
// the archive, per spec.md §6's `records` contract.
func (a *Archive) Records(ctx context.Context) (*RecordIter, error) {
	return a.decodeEntries(ctx, a.index.AllEntries())
}

func (a *Archive) decodeEntries(ctx context.Context, entries []vindex.IndexEntry) (*RecordIter, error) {
	rd := pipeline.NewReader(a.opts.Threads, len(a.schema.Samples))
	blocks, err := rd.DecodeBlocks(ctx, fileFetcher{a.f}, entries)
	if err != nil {
		return nil, err
	}
	return &RecordIter{blocks: blocks}, nil
}

// ContigStats summarizes one contig's on-disk block/record footprint, for
// `cmd/tachyon view --stats`.
type ContigStats struct {
	Contig  string
	Blocks  int
	Records int
	Bytes   uint64
}

// Stats aggregates block/record/byte counts per contig across the whole
// archive, via the index's unmerged entries (not Meta's contig-span
// reduction, which can coalesce across spans in a way that would
// undercount Blocks for a contig written in more than one run).
func (a *Archive) Stats() []ContigStats {
	byContig := map[uint32]*ContigStats{}
	var order []uint32
	for _, e := range a.index.AllEntries() {
		s, ok := byContig[e.ContigID]
		if !ok {
			name := ""
			if int(e.ContigID) < len(a.schema.Contigs) {
				name = a.schema.Contigs[e.ContigID].Name
			}
			s = &ContigStats{Contig: name}
			byContig[e.ContigID] = s
			order = append(order, e.ContigID)
		}
		s.Blocks++
		s.Records += e.NVariants
		s.Bytes += e.ByteLength
	}
	out := make([]ContigStats, 0, len(order))
	for _, id := range order {
		out = append(out, *byContig[id])
	}
	return out
}

// RecordIter iterates the records decoded from a Query/Records call.
type RecordIter struct {
	blocks  [][]Record
	blockI  int
	recordI int
}

// Next advances the iterator; it returns false once every block has been
// exhausted.
func (it *RecordIter) Next() bool {
	for it.blockI < len(it.blocks) {
		if it.recordI < len(it.blocks[it.blockI]) {
			it.recordI++
			return true
		}
		it.blockI++
		it.recordI = 0
	}
	return false
}

// Record returns the record Next just advanced onto.
func (it *RecordIter) Record() Record {
	return it.blocks[it.blockI][it.recordI-1]
}

// filterRange narrows every decoded block down to the records whose
// [position, position+max(1,|ref|)) span intersects [from, to], per
// spec.md §6's query contract. The quad-tree+linear lookup that produced
// these blocks only guarantees the block's own span overlaps the query
// range; a block can (and typically does) carry records outside it too,
// so this is a second, record-level pass over what LookupEntries handed
// back.
func (it *RecordIter) filterRange(from, to uint64) {
	for i, block := range it.blocks {
		kept := block[:0]
		for _, r := range block {
			if recordIntersects(r, from, to) {
				kept = append(kept, r)
			}
		}
		it.blocks[i] = kept
	}
}

// recordIntersects reports whether r's span intersects the closed
// interval [from, to]. A record's span is half-open
// [Position, Position+max(1,|Alleles[0]|)), so it intersects iff it
// starts at or before to and ends after from.
func recordIntersects(r Record, from, to uint64) bool {
	refLen := uint64(1)
	if len(r.Alleles) > 0 && len(r.Alleles[0]) > 1 {
		refLen = uint64(len(r.Alleles[0]))
	}
	start := uint64(r.Position)
	end := start + refLen
	return start <= to && end > from
}
