package tachyon

import "github.com/tachyon-genomics/tachyon/internal/schema"

// Record is the producer/consumer contract record type of spec.md §6.
type Record = schema.Record

// TypedValue is a single INFO or FORMAT value, tagged with its kind.
type TypedValue = schema.TypedValue

// ValueKind names TypedValue's payload type.
type ValueKind = schema.ValueKind

const (
	KindInt    = schema.KindInt
	KindFloat  = schema.KindFloat
	KindString = schema.KindString
	KindFlag   = schema.KindFlag
)

// GenotypeRow is one record's per-sample genotype calls.
type GenotypeRow = schema.GenotypeRow
