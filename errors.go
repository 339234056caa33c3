package tachyon

import "github.com/tachyon-genomics/tachyon/internal/tachyonerr"

// ErrorKind is the closed set of failure categories spec.md §7 defines;
// callers that need to branch on failure type (notably cmd/tachyon's
// exit-code mapping) should only ever see one of these.
type ErrorKind = tachyonerr.Kind

const (
	ErrUnknown               = tachyonerr.Unknown
	ErrIO                    = tachyonerr.Io
	ErrFormatMagicMismatch   = tachyonerr.FormatMagicMismatch
	ErrFormatUnsupported     = tachyonerr.FormatUnsupported
	ErrFormatIncompatible    = tachyonerr.FormatIncompatible
	ErrChecksumMismatch      = tachyonerr.ChecksumMismatch
	ErrBlockSentinelMismatch = tachyonerr.BlockSentinelMismatch
	ErrGenotypeStreamCorrupt = tachyonerr.GenotypeStreamCorrupt
	ErrIndexRangeEmpty       = tachyonerr.IndexRangeEmpty
	ErrResourceExhausted     = tachyonerr.ResourceExhausted
	ErrCancelled             = tachyonerr.Cancelled
)

// Classify recovers the ErrorKind an error was constructed with inside
// the core. Errors from outside the core (a Producer's own I/O error, for
// instance) classify as ErrUnknown.
func Classify(err error) ErrorKind { return tachyonerr.Classify(err) }

// ExitCode maps an ErrorKind to the CLI exit codes spec.md §6 defines.
func ExitCode(k ErrorKind) int { return tachyonerr.ExitCode(k) }

// wrapIOErr classifies an error from the standard library's os/bufio
// layer as ErrIO, since everything below the core's own format/checksum
// checks is, by spec.md §7's taxonomy, a plain I/O failure.
func wrapIOErr(err error) error {
	if err == nil {
		return nil
	}
	return tachyonerr.New(tachyonerr.Io, "tachyon: %v", err)
}
