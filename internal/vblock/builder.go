package vblock

import (
	"sort"

	"github.com/tachyon-genomics/tachyon/internal/block"
	"github.com/tachyon-genomics/tachyon/internal/genotype"
	"github.com/tachyon-genomics/tachyon/internal/schema"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// Builder accumulates records for one contig-contiguous block and produces
// its on-disk form, per spec.md §4.2: "append to base columns ... record
// the pattern ... finalize: build bitmaps, permute the INFO/FORMAT
// container order, run genotype permutation and encoding, finalize every
// container and compress."
type Builder struct {
	sch      *schema.Schema
	contigID uint32
	records  []schema.Record
}

// NewBuilder returns a Builder for the given contig. Every record passed to
// Add must share this ContigID; producers split input into per-contig
// blocks before building (spec.md §4.2 "a block never spans a contig
// boundary").
func NewBuilder(sch *schema.Schema, contigID uint32) *Builder {
	return &Builder{sch: sch, contigID: contigID}
}

// Add appends one record to the block under construction.
func (b *Builder) Add(r schema.Record) error {
	if r.ContigID != b.contigID {
		return tachyonerr.New(tachyonerr.FormatIncompatible,
			"vblock: record contig %d does not match block contig %d", r.ContigID, b.contigID)
	}
	b.records = append(b.records, r)
	return nil
}

// NumRecords reports how many records have been added so far.
func (b *Builder) NumRecords() int { return len(b.records) }

func sortedUint32Keys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func newFieldContainer(key uint32, kind schema.ValueKind) *block.Container {
	switch kind {
	case schema.KindInt:
		return block.NewContainer(key, block.PrimitiveInt64)
	case schema.KindFloat:
		return block.NewContainer(key, block.PrimitiveF64)
	case schema.KindString:
		return block.NewContainer(key, block.PrimitiveBytes)
	default: // KindFlag
		return block.NewContainer(key, block.PrimitiveBool)
	}
}

// appendTypedValue appends tv's scalars to c and returns how many elements
// were appended, for the caller's AppendStride call.
func appendTypedValue(c *block.Container, tv schema.TypedValue) int {
	switch tv.Kind {
	case schema.KindInt:
		for _, v := range tv.Ints {
			c.AppendInt(v)
		}
		return len(tv.Ints)
	case schema.KindFloat:
		for _, v := range tv.Floats {
			c.AppendFloat(v)
		}
		return len(tv.Floats)
	case schema.KindString:
		for _, v := range tv.Strings {
			c.AppendBytes(v)
		}
		return len(tv.Strings)
	default: // KindFlag: presence alone carries the value
		c.AppendInt(1)
		return 1
	}
}

// Finalize runs the full finalization pipeline of spec.md §4.2 and returns
// the compressed, on-disk-ready block.
func (b *Builder) Finalize(level int) (*EncodedBlock, error) {
	nSamples := len(b.sch.Samples)
	nRecords := len(b.records)
	mgr := block.NewManager(level)

	contigC := block.NewContainer(uint32(ColContig), block.PrimitiveUint32)
	positionC := block.NewContainer(uint32(ColPosition), block.PrimitiveUint32)
	refAltC := block.NewContainer(uint32(ColRefAlt), block.PrimitiveUint8)
	controllerC := block.NewContainer(uint32(ColController), block.PrimitiveUint16)
	qualityC := block.NewContainer(uint32(ColQuality), block.PrimitiveF32)
	namesC := block.NewContainer(uint32(ColNames), block.PrimitiveBytes)
	allelesC := block.NewContainer(uint32(ColAlleles), block.PrimitiveBytes)
	idFilterC := block.NewContainer(uint32(ColIDFilter), block.PrimitiveUint32)
	idFormatC := block.NewContainer(uint32(ColIDFormat), block.PrimitiveUint32)
	idInfoC := block.NewContainer(uint32(ColIDInfo), block.PrimitiveUint32)
	gtPloidyC := block.NewContainer(uint32(ColGTPloidy), block.PrimitiveUint8)
	gtSupportC := block.NewContainer(uint32(ColGTSupport), block.PrimitiveUint32)

	infoContainers := map[uint32]*block.Container{}
	formatContainers := map[uint32]*block.Container{}

	infoPatterns := NewPatternDict()
	formatPatterns := NewPatternDict()
	filterPatterns := NewPatternDict()

	var minPos, maxPos uint32
	for i, r := range b.records {
		if i == 0 || r.Position < minPos {
			minPos = r.Position
		}
		if i == 0 || r.Position > maxPos {
			maxPos = r.Position
		}
	}

	// Pass 1: build the block's sample permutation from every record
	// carrying genotypes (spec.md §4.3.1). A single-sample block, or one
	// with no genotype data at all, skips permutation entirely.
	var gtRecords []genotype.RecordCalls
	anyGenotypes := false
	for _, r := range b.records {
		if r.Genotypes != nil {
			anyGenotypes = true
			gtRecords = append(gtRecords, genotype.RecordCalls{
				Ploidy:   r.Genotypes.Ploidy,
				NAlleles: len(r.Alleles),
				Calls:    r.Genotypes.Calls,
			})
		}
	}
	var ppa genotype.PPA
	if nSamples > 1 && anyGenotypes {
		ppa = genotype.Build(nSamples, gtRecords)
	}

	rawGT := map[BaseColumn][]byte{}

	for _, r := range b.records {
		contigC.AppendInt(int64(r.ContigID))
		contigC.AppendStride(1)
		positionC.AppendInt(int64(r.Position))
		positionC.AppendStride(1)

		quality := r.Quality
		if !r.HasQuality {
			quality = block.QualityMissing()
		}
		qualityC.AppendFloat(float64(quality))
		qualityC.AppendStride(1)

		var name []byte
		if r.HasName {
			name = []byte(r.Name)
		}
		namesC.AppendBytes(name)
		namesC.AppendStride(1)

		for _, a := range r.Alleles {
			allelesC.AppendBytes(a)
		}
		allelesC.AppendStride(len(r.Alleles))

		packed := CanPackRefAlt(r.Alleles)
		if packed {
			refAltC.AppendInt(int64(PackRefAltBytes(r.Alleles)))
		} else {
			refAltC.AppendInt(0xFF)
		}
		refAltC.AppendStride(1)

		filterPatID := filterPatterns.Intern(r.FilterKeys)
		idFilterC.AppendInt(int64(filterPatID))
		idFilterC.AppendStride(1)

		infoKeys := sortedUint32Keys(r.Info)
		infoPatID := infoPatterns.Intern(infoKeys)
		idInfoC.AppendInt(int64(infoPatID))
		idInfoC.AppendStride(1)
		for _, k := range infoKeys {
			tv := r.Info[k]
			c, ok := infoContainers[k]
			if !ok {
				c = newFieldContainer(k, tv.Kind)
				infoContainers[k] = c
			}
			n := appendTypedValue(c, tv)
			c.AppendStride(n)
		}

		formatKeys := sortedUint32Keys(r.Format)
		formatPatID := formatPatterns.Intern(formatKeys)
		idFormatC.AppendInt(int64(formatPatID))
		idFormatC.AppendStride(1)
		for _, k := range formatKeys {
			vals := r.Format[k]
			c, ok := formatContainers[k]
			if !ok {
				var kind schema.ValueKind
				if len(vals) > 0 {
					kind = vals[0].Kind
				}
				c = newFieldContainer(k, kind)
				formatContainers[k] = c
			}
			total := 0
			for _, tv := range vals {
				total += appendTypedValue(c, tv)
			}
			c.AppendStride(total)
		}

		ploidy := 0
		if r.Genotypes != nil {
			ploidy = r.Genotypes.Ploidy
		}
		gtPloidyC.AppendInt(int64(ploidy))
		gtPloidyC.AppendStride(1)

		if r.Genotypes == nil {
			gtSupportC.AppendInt(0)
			gtSupportC.AppendStride(1)
			controllerC.AppendInt(int64(encodeController(r.HasQuality, r.HasName, packed, false, false, 0, 0)))
			controllerC.AppendStride(1)
			continue
		}

		producer := make([]genotype.SampleGT, nSamples)
		anyPhased := false
		for s := 0; s < nSamples; s++ {
			phased := false
			if s < len(r.Genotypes.Phased) {
				phased = r.Genotypes.Phased[s]
			}
			if phased {
				anyPhased = true
			}
			producer[s] = genotype.SampleGT{Alleles: r.Genotypes.Calls[s], Phased: phased}
		}
		permuted := make([]genotype.SampleGT, nSamples)
		if ppa != nil {
			for i, sampleIdx := range ppa {
				permuted[i] = producer[sampleIdx]
			}
		} else {
			copy(permuted, producer)
		}

		result, err := genotype.EncodeRecord(permuted, r.Genotypes.Ploidy, len(r.Alleles))
		if err != nil {
			return nil, err
		}

		var col BaseColumn
		switch result.Family {
		case genotype.FamilyRLEDiploidBiallelic:
			col = gtBiallelicCol(int(result.Width))
		case genotype.FamilyRLEDiploidNAllelic:
			col = gtNAllelicCol(int(result.Width))
		default:
			col = gtNPloidCol(int(result.Width))
		}
		rawGT[col] = append(rawGT[col], result.Bytes...)

		gtSupportC.AppendInt(int64(result.NumRuns))
		gtSupportC.AppendStride(1)
		controllerC.AppendInt(int64(encodeController(r.HasQuality, r.HasName, packed, true, anyPhased, int(result.Family), int(result.Width))))
		controllerC.AppendStride(1)
	}

	eb := &EncodedBlock{
		ContigID:  b.contigID,
		MinPos:    minPos,
		MaxPos:    maxPos,
		NVariants: nRecords,
		Base:      map[BaseColumn]*block.Container{},
	}
	if nSamples > 1 {
		eb.PPA = ppa
	}

	finalize := func(col BaseColumn, c *block.Container) error {
		if c.NumRecords() == 0 {
			return nil
		}
		c.FinalizeUniformity()
		if err := c.FinalizePrimitive(); err != nil {
			return err
		}
		if err := mgr.Compress(c); err != nil {
			return err
		}
		eb.Base[col] = c
		eb.Present.set(col)
		return nil
	}

	for col, c := range map[BaseColumn]*block.Container{
		ColContig: contigC, ColPosition: positionC, ColRefAlt: refAltC,
		ColController: controllerC, ColQuality: qualityC, ColNames: namesC,
		ColAlleles: allelesC, ColIDFilter: idFilterC, ColIDFormat: idFormatC,
		ColIDInfo: idInfoC, ColGTPloidy: gtPloidyC, ColGTSupport: gtSupportC,
	} {
		if err := finalize(col, c); err != nil {
			return nil, err
		}
	}

	for col, buf := range rawGT {
		c := block.NewRawContainer(uint32(col), buf)
		if err := mgr.Compress(c); err != nil {
			return nil, err
		}
		eb.Base[col] = c
		eb.Present.set(col)
	}

	infoKeySpace := sortedUint32Keys(infoContainers)
	for _, k := range infoKeySpace {
		c := infoContainers[k]
		c.FinalizeUniformity()
		if err := c.FinalizePrimitive(); err != nil {
			return nil, err
		}
		if err := mgr.Compress(c); err != nil {
			return nil, err
		}
		eb.Info = append(eb.Info, c)
	}
	formatKeySpace := sortedUint32Keys(formatContainers)
	for _, k := range formatKeySpace {
		c := formatContainers[k]
		c.FinalizeUniformity()
		if err := c.FinalizePrimitive(); err != nil {
			return nil, err
		}
		if err := mgr.Compress(c); err != nil {
			return nil, err
		}
		eb.Format = append(eb.Format, c)
	}

	for i, k := range infoKeySpace {
		eb.Footer.InfoKeyOffsets = append(eb.Footer.InfoKeyOffsets, KeyOffset{GlobalKey: k, LocalOffset: uint32(i)})
	}
	for i, k := range formatKeySpace {
		eb.Footer.FormatKeyOffsets = append(eb.Footer.FormatKeyOffsets, KeyOffset{GlobalKey: k, LocalOffset: uint32(i)})
	}

	filterKeySpace := distinctPatternKeys(filterPatterns)
	eb.Footer.InfoPatterns = infoPatterns.Patterns()
	eb.Footer.FormatPatterns = formatPatterns.Patterns()
	eb.Footer.FilterPatterns = filterPatterns.Patterns()
	for _, p := range eb.Footer.InfoPatterns {
		eb.Footer.InfoBitmaps = append(eb.Footer.InfoBitmaps, Bitmap(p, infoKeySpace))
	}
	for _, p := range eb.Footer.FormatPatterns {
		eb.Footer.FormatBitmaps = append(eb.Footer.FormatBitmaps, Bitmap(p, formatKeySpace))
	}
	for _, p := range eb.Footer.FilterPatterns {
		eb.Footer.FilterBitmaps = append(eb.Footer.FilterBitmaps, Bitmap(p, filterKeySpace))
	}

	return eb, nil
}

// distinctPatternKeys returns the sorted union of every key used across a
// pattern dictionary's patterns, the local key space FILTER bitmaps are
// rendered over.
func distinctPatternKeys(d *PatternDict) []uint32 {
	seen := map[uint32]bool{}
	for _, p := range d.Patterns() {
		for _, k := range p.Keys {
			seen[k] = true
		}
	}
	return sortedUint32Keys(seen)
}
