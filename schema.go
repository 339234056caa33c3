package tachyon

import "github.com/tachyon-genomics/tachyon/internal/schema"

// Schema describes an archive's samples, contigs, and INFO/FORMAT/FILTER
// field definitions, per spec.md §6's `schema()` producer contract.
type Schema = schema.Schema

// ContigInfo names one contig and its length in base pairs.
type ContigInfo = schema.ContigInfo

// FieldDef describes one INFO or FORMAT field: its global key, name,
// value kind, and arity.
type FieldDef = schema.FieldDef

// Producer is the external collaborator spec.md §6 names as the core's
// input: a schema plus a forward-only stream of records.
type Producer interface {
	Schema() *Schema
	Next() (Record, bool, error)
}
