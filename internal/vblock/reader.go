package vblock

import (
	"github.com/tachyon-genomics/tachyon/internal/block"
	"github.com/tachyon-genomics/tachyon/internal/genotype"
	"github.com/tachyon-genomics/tachyon/internal/schema"
)

// Decode inverts Builder.Finalize: it decompresses every container in eb
// and reconstructs the block's records in on-disk order, per spec.md §4.2's
// read path. nSamples comes from the archive schema, not eb, since a block
// footer carries no sample count of its own.
func Decode(eb *EncodedBlock, nSamples int) ([]schema.Record, error) {
	mgr := block.NewManager(0)
	for _, c := range eb.Base {
		if err := mgr.Decompress(c); err != nil {
			return nil, err
		}
	}
	for _, c := range eb.Info {
		if err := mgr.Decompress(c); err != nil {
			return nil, err
		}
	}
	for _, c := range eb.Format {
		if err := mgr.Decompress(c); err != nil {
			return nil, err
		}
	}

	n := eb.NVariants
	contigVals := decodeStride1Ints(eb.Base[ColContig], n)
	positionVals := decodeStride1Ints(eb.Base[ColPosition], n)
	refAltVals := decodeStride1Ints(eb.Base[ColRefAlt], n)
	controllerVals := decodeStride1Ints(eb.Base[ColController], n)
	qualityVals := decodeStride1Floats(eb.Base[ColQuality], n)
	namesVals := decodeStride1Bytes(eb.Base[ColNames], n)
	allelesVals := decodeVarStrideBytes(eb.Base[ColAlleles], n)
	idFilterVals := decodeStride1Ints(eb.Base[ColIDFilter], n)
	idInfoVals := decodeStride1Ints(eb.Base[ColIDInfo], n)
	idFormatVals := decodeStride1Ints(eb.Base[ColIDFormat], n)
	gtPloidyVals := decodeStride1Ints(eb.Base[ColGTPloidy], n)
	gtSupportVals := decodeStride1Ints(eb.Base[ColGTSupport], n)

	infoKeySpace := make([]uint32, len(eb.Footer.InfoKeyOffsets))
	for _, ko := range eb.Footer.InfoKeyOffsets {
		infoKeySpace[ko.LocalOffset] = ko.GlobalKey
	}
	formatKeySpace := make([]uint32, len(eb.Footer.FormatKeyOffsets))
	for _, ko := range eb.Footer.FormatKeyOffsets {
		formatKeySpace[ko.LocalOffset] = ko.GlobalKey
	}

	infoDecoded := make([][]schema.TypedValue, len(eb.Info))
	infoCursor := make([]int, len(eb.Info))
	for i, c := range eb.Info {
		infoDecoded[i] = decodeFieldContainer(c)
	}
	formatDecoded := make([][]schema.TypedValue, len(eb.Format))
	formatCursor := make([]int, len(eb.Format))
	for i, c := range eb.Format {
		formatDecoded[i] = decodeFieldContainer(c)
	}

	rawGTCursor := map[BaseColumn]int{}

	records := make([]schema.Record, n)
	for i := 0; i < n; i++ {
		r := &records[i]
		r.ContigID = uint32(contigVals[i])
		r.Position = uint32(positionVals[i])

		ctrl := controllerBits(controllerVals[i])
		r.HasQuality = ctrl.hasQuality()
		if r.HasQuality {
			r.Quality = float32(qualityVals[i])
		}
		r.HasName = ctrl.hasName()
		if r.HasName {
			r.Name = string(namesVals[i])
		}
		r.Alleles = allelesVals[i]

		filterPatID := int(idFilterVals[i])
		if filterPatID < len(eb.Footer.FilterPatterns) {
			r.FilterKeys = append([]uint32(nil), eb.Footer.FilterPatterns[filterPatID].Keys...)
		}

		infoPatID := int(idInfoVals[i])
		r.Info = map[uint32]schema.TypedValue{}
		if infoPatID < len(eb.Footer.InfoBitmaps) {
			for _, k := range BitmapKeys(eb.Footer.InfoBitmaps[infoPatID], infoKeySpace) {
				idx := indexOfKey(k, infoKeySpace)
				r.Info[k] = infoDecoded[idx][infoCursor[idx]]
				infoCursor[idx]++
			}
		}

		formatPatID := int(idFormatVals[i])
		r.Format = map[uint32][]schema.TypedValue{}
		if formatPatID < len(eb.Footer.FormatBitmaps) {
			for _, k := range BitmapKeys(eb.Footer.FormatBitmaps[formatPatID], formatKeySpace) {
				idx := indexOfKey(k, formatKeySpace)
				tv := formatDecoded[idx][formatCursor[idx]]
				formatCursor[idx]++
				r.Format[k] = splitPerSample(tv, nSamples)
			}
		}

		ploidy := int(gtPloidyVals[i])
		if ploidy > 0 {
			family := genotype.Family(ctrl.family())
			width := genotype.Width(ctrl.width())
			col := gtColumnFor(family, width)
			buf := eb.Base[col].Data()
			entrySize := gtEntrySize(family, width, ploidy)
			numRuns := int(gtSupportVals[i])
			off := rawGTCursor[col]
			recordLen := numRuns * entrySize
			recordBuf := buf[off : off+recordLen]
			rawGTCursor[col] = off + recordLen

			permuted, err := genotype.DecodeRecord(family, width, recordBuf, numRuns, ploidy, len(r.Alleles), nSamples)
			if err != nil {
				return nil, err
			}
			calls := make([][]int, nSamples)
			phased := make([]bool, nSamples)
			if eb.PPA != nil {
				for permIdx, sampleIdx := range eb.PPA {
					calls[sampleIdx] = permuted[permIdx].Alleles
					phased[sampleIdx] = permuted[permIdx].Phased
				}
			} else {
				for s := 0; s < nSamples; s++ {
					calls[s] = permuted[s].Alleles
					phased[s] = permuted[s].Phased
				}
			}
			r.Genotypes = &schema.GenotypeRow{Ploidy: ploidy, Calls: calls, Phased: phased}
		}
	}
	return records, nil
}

func indexOfKey(k uint32, space []uint32) int {
	for i, v := range space {
		if v == k {
			return i
		}
	}
	return -1
}

func splitPerSample(tv schema.TypedValue, nSamples int) []schema.TypedValue {
	out := make([]schema.TypedValue, nSamples)
	switch tv.Kind {
	case schema.KindInt:
		for s := 0; s < nSamples && s < len(tv.Ints); s++ {
			out[s] = schema.TypedValue{Kind: schema.KindInt, Ints: []int64{tv.Ints[s]}}
		}
	case schema.KindFloat:
		for s := 0; s < nSamples && s < len(tv.Floats); s++ {
			out[s] = schema.TypedValue{Kind: schema.KindFloat, Floats: []float64{tv.Floats[s]}}
		}
	case schema.KindString:
		for s := 0; s < nSamples && s < len(tv.Strings); s++ {
			out[s] = schema.TypedValue{Kind: schema.KindString, Strings: [][]byte{tv.Strings[s]}}
		}
	default:
		for s := 0; s < nSamples; s++ {
			out[s] = schema.TypedValue{Kind: schema.KindFlag, Flag: true}
		}
	}
	return out
}

func gtColumnFor(family genotype.Family, width genotype.Width) BaseColumn {
	switch family {
	case genotype.FamilyRLEDiploidBiallelic:
		return gtBiallelicCol(int(width))
	case genotype.FamilyRLEDiploidNAllelic:
		return gtNAllelicCol(int(width))
	default:
		return gtNPloidCol(int(width))
	}
}

func gtEntrySize(family genotype.Family, width genotype.Width, ploidy int) int {
	if family == genotype.FamilyRLENPloid {
		return width.Bytes() + ploidy
	}
	return width.Bytes()
}

// decodeStride1Ints decodes a container known to hold exactly one integer
// per record (the common base-column case), replicating the single window
// across every record if the container collapsed via FinalizeUniformity.
func decodeStride1Ints(c *block.Container, nRecords int) []int64 {
	if c == nil {
		return make([]int64, nRecords)
	}
	vals := c.DecodeInts()
	if c.Uniform() {
		out := make([]int64, nRecords)
		v := vals[0]
		for i := range out {
			out[i] = v
		}
		return out
	}
	return vals
}

func decodeStride1Floats(c *block.Container, nRecords int) []float64 {
	if c == nil {
		return make([]float64, nRecords)
	}
	vals := c.DecodeFloats()
	if c.Uniform() {
		out := make([]float64, nRecords)
		v := vals[0]
		for i := range out {
			out[i] = v
		}
		return out
	}
	return vals
}

func decodeStride1Bytes(c *block.Container, nRecords int) [][]byte {
	if c == nil {
		return make([][]byte, nRecords)
	}
	vals := c.DecodeByteStrings()
	if c.Uniform() {
		out := make([][]byte, nRecords)
		for i := range out {
			out[i] = vals[0]
		}
		return out
	}
	return vals
}

// decodeVarStrideBytes decodes a container whose per-record element count
// varies (ALLELES), grouping the flat decoded byte strings back into their
// per-record windows.
func decodeVarStrideBytes(c *block.Container, nRecords int) [][][]byte {
	out := make([][][]byte, nRecords)
	if c == nil {
		return out
	}
	flat := c.DecodeByteStrings()
	if c.Uniform() {
		for i := range out {
			out[i] = flat
		}
		return out
	}
	strides := c.DecodeStrides(nRecords)
	off := 0
	for i, s := range strides {
		out[i] = flat[off : off+s]
		off += s
	}
	return out
}

// decodeFieldContainer decodes an INFO/FORMAT container into one TypedValue
// per appearance (c.NumRecords() of them, in the record order they were
// appended), handling the FinalizeUniformity collapse the same way the
// stride-1 base-column decoders do.
func decodeFieldContainer(c *block.Container) []schema.TypedValue {
	n := c.NumRecords()
	out := make([]schema.TypedValue, n)

	switch {
	case c.Primitive() == block.PrimitiveBytes:
		flat := c.DecodeByteStrings()
		if c.Uniform() {
			for i := range out {
				out[i] = schema.TypedValue{Kind: schema.KindString, Strings: flat}
			}
			return out
		}
		strides := c.DecodeStrides(n)
		off := 0
		for i, s := range strides {
			out[i] = schema.TypedValue{Kind: schema.KindString, Strings: flat[off : off+s]}
			off += s
		}
	case c.Primitive() == block.PrimitiveBool:
		for i := range out {
			out[i] = schema.TypedValue{Kind: schema.KindFlag, Flag: true}
		}
	case c.Primitive() == block.PrimitiveF32 || c.Primitive() == block.PrimitiveF64:
		flat := c.DecodeFloats()
		if c.Uniform() {
			for i := range out {
				out[i] = schema.TypedValue{Kind: schema.KindFloat, Floats: flat}
			}
			return out
		}
		strides := c.DecodeStrides(n)
		off := 0
		for i, s := range strides {
			out[i] = schema.TypedValue{Kind: schema.KindFloat, Floats: flat[off : off+s]}
			off += s
		}
	default:
		flat := c.DecodeInts()
		if c.Uniform() {
			for i := range out {
				out[i] = schema.TypedValue{Kind: schema.KindInt, Ints: flat}
			}
			return out
		}
		strides := c.DecodeStrides(n)
		off := 0
		for i, s := range strides {
			out[i] = schema.TypedValue{Kind: schema.KindInt, Ints: flat[off : off+s]}
			off += s
		}
	}
	return out
}
