// Package tachyonerr defines the closed set of error kinds that every
// fallible Tachyon operation reports, and the plumbing to classify a wrapped
// error back into one of them.
package tachyonerr

import (
	"github.com/cockroachdb/errors"
)

// Kind is one of the error kinds named in spec.md §7. The set is closed:
// callers that need to branch on failure type should only ever see one of
// these, never a bare io/fmt error escaping the core.
type Kind int

const (
	// Unknown is returned by Classify when err is nil or not a Tachyon error.
	Unknown Kind = iota
	// Io covers failures reading from or writing to the underlying file.
	Io
	// FormatMagicMismatch is returned when the leading magic bytes of an
	// archive do not match.
	FormatMagicMismatch
	// FormatUnsupported is returned for an unrecognized encoder id, an
	// unsupported major version, or a block whose anyEncrypted bit is set
	// (Tachyon has no decryption support).
	FormatUnsupported
	// FormatIncompatible is returned when archive schema (e.g. contig
	// length) disagrees with what the caller expects.
	FormatIncompatible
	// ChecksumMismatch is returned when a container's recorded checksum
	// does not match its decompressed bytes.
	ChecksumMismatch
	// BlockSentinelMismatch is returned when a block's trailing sentinel
	// does not match the expected constant.
	BlockSentinelMismatch
	// GenotypeStreamCorrupt is returned when decoded genotype run lengths
	// do not sum to n_samples, or the decoded PPA is not a bijection.
	GenotypeStreamCorrupt
	// IndexRangeEmpty is not an error: it is the classification of a
	// successful query over an out-of-range contig or non-overlapping
	// interval. Callers should treat it as "empty result", not failure.
	IndexRangeEmpty
	// ResourceExhausted covers allocation failures and the ploidy/allele
	// packing limit (ploidy * ceil(log2(n_alleles+2)) > 64).
	ResourceExhausted
	// Cancelled is returned when a caller-supplied context is cancelled at
	// a queue or I/O suspension point.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "Io"
	case FormatMagicMismatch:
		return "FormatMagicMismatch"
	case FormatUnsupported:
		return "FormatUnsupported"
	case FormatIncompatible:
		return "FormatIncompatible"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case BlockSentinelMismatch:
		return "BlockSentinelMismatch"
	case GenotypeStreamCorrupt:
		return "GenotypeStreamCorrupt"
	case IndexRangeEmpty:
		return "IndexRangeEmpty"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

type kindMark struct {
	kind Kind
}

func (m *kindMark) Error() string { return m.kind.String() }

// New creates an error carrying kind k, formatted with format/args (passed
// straight to errors.Newf), markable and recoverable with Classify.
func New(k Kind, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), &kindMark{kind: k})
}

// Wrap wraps err with additional context, preserving its Kind for Classify.
func Wrap(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Classify recovers the Kind an error was constructed with via New. Errors
// not constructed through this package classify as Unknown, not as a panic
// or a silently-swallowed default.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	for _, k := range allKinds {
		if errors.Is(err, &kindMark{kind: k}) {
			return k
		}
	}
	return Unknown
}

var allKinds = []Kind{
	Io, FormatMagicMismatch, FormatUnsupported, FormatIncompatible,
	ChecksumMismatch, BlockSentinelMismatch, GenotypeStreamCorrupt,
	IndexRangeEmpty, ResourceExhausted, Cancelled,
}

// ExitCode maps a Kind to the CLI exit codes named in spec.md §6. Callers
// should only consult this for a non-nil error; Classify(nil) also reports
// Unknown, but a nil error means the caller should exit 0 directly rather
// than route through here.
func ExitCode(k Kind) int {
	switch k {
	case Unknown:
		return 1
	case Io:
		return 2
	case FormatMagicMismatch, FormatUnsupported, FormatIncompatible:
		return 3
	case ChecksumMismatch, BlockSentinelMismatch, GenotypeStreamCorrupt:
		return 4
	default:
		return 1
	}
}
