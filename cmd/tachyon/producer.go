package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tachyon-genomics/tachyon"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// fileProducer implements tachyon.Producer over Tachyon's own
// tab-separated import interchange format, not VCF/BCF: parsing a real
// VCF/BCF stream requires the htslib-backed reader
// `original_source/lib/vcf_importer_slave.cpp` wraps, which sits outside
// the seven in-scope components of spec.md §2 — the core consumes an
// abstract Producer, it never owns variant-format parsing itself.
//
// Format: leading "#contig\tname\tlength_bp" lines declare the contig
// table (schema.Contigs order is declaration order), followed by one
// data line per record, "contig\tposition\tref,alt1,alt2,...", assumed
// already sorted by (contig declaration order, position) the way an
// upstream VCF/BCF reader would emit them.
type fileProducer struct {
	sch     *tachyon.Schema
	scanner *bufio.Scanner
	lineNo  int

	pendingLine string
	havePending bool
}

// newFileProducer reads and buffers every leading "#contig" line from r,
// leaving the scanner positioned at the first data line.
func newFileProducer(r io.Reader) (*fileProducer, error) {
	p := &fileProducer{sch: &tachyon.Schema{}, scanner: bufio.NewScanner(r)}
	for p.scanner.Scan() {
		p.lineNo++
		line := p.scanner.Text()
		if !strings.HasPrefix(line, "#contig\t") {
			p.pushBack(line)
			break
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, tachyonerr.New(tachyonerr.FormatIncompatible,
				"tachyon: import line %d: want \"#contig\\tname\\tlength_bp\"", p.lineNo)
		}
		length, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, tachyonerr.New(tachyonerr.FormatIncompatible,
				"tachyon: import line %d: bad contig length %q", p.lineNo, fields[2])
		}
		p.sch.Contigs = append(p.sch.Contigs, tachyon.ContigInfo{Name: fields[1], Length: length})
	}
	if err := p.scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "tachyon: reading import input")
	}
	return p, nil
}

// pushBack re-queues the first non-header line so Next sees it.
func (p *fileProducer) pushBack(line string) {
	p.pendingLine = line
	p.havePending = true
}

func (p *fileProducer) Schema() *tachyon.Schema { return p.sch }

func (p *fileProducer) Next() (tachyon.Record, bool, error) {
	for {
		var line string
		if p.havePending {
			line, p.havePending = p.pendingLine, false
		} else if p.scanner.Scan() {
			p.lineNo++
			line = p.scanner.Text()
		} else if err := p.scanner.Err(); err != nil {
			return tachyon.Record{}, false, errors.Wrapf(err, "tachyon: reading import input")
		} else {
			return tachyon.Record{}, false, nil
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return tachyon.Record{}, false, tachyonerr.New(tachyonerr.FormatIncompatible,
				"tachyon: import line %d: want 3 tab-separated fields, got %d", p.lineNo, len(fields))
		}
		contigID, ok := p.sch.ContigID(fields[0])
		if !ok {
			return tachyon.Record{}, false, tachyonerr.New(tachyonerr.FormatIncompatible,
				"tachyon: import line %d: contig %q not declared", p.lineNo, fields[0])
		}
		pos, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return tachyon.Record{}, false, tachyonerr.New(tachyonerr.FormatIncompatible,
				"tachyon: import line %d: bad position %q", p.lineNo, fields[1])
		}
		alleleStrs := strings.Split(fields[2], ",")
		alleles := make([][]byte, len(alleleStrs))
		for i, a := range alleleStrs {
			alleles[i] = []byte(a)
		}
		return tachyon.Record{ContigID: contigID, Position: uint32(pos), Alleles: alleles}, true, nil
	}
}
