package tachyon

import (
	"fmt"
	"os"

	"github.com/cockroachdb/redact"
)

// Logger receives Import/view progress and error messages. The format
// string and args are treated as redact.SafeFormatter-aware, so a
// consumer pointed at a log-redaction pipeline can mark path/sample
// arguments as sensitive without Tachyon itself making that call.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DefaultLogger writes redactable-formatted messages to stderr.
var DefaultLogger Logger = stderrLogger{}

type stderrLogger struct{}

func (stderrLogger) Infof(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, redact.Sprintf(format, args...).StripMarkers())
}

func (stderrLogger) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, redact.Sprintf("error: "+format, args...).StripMarkers())
}

// discardLogger drops every message and backs DiscardLogger. EnsureDefaults
// does not select it: an unset Options.Logger becomes DefaultLogger.
type discardLogger struct{}

func (discardLogger) Infof(string, ...interface{})  {}
func (discardLogger) Errorf(string, ...interface{}) {}

// DiscardLogger is a Logger that drops every message.
var DiscardLogger Logger = discardLogger{}
