package pipeline

import (
	"io"
	"log"
)

// Level selects how much of the pipeline's logging reaches the writer.
type Level int

const (
	// LevelOps logs collaborator failures and lost sink writes only.
	LevelOps Level = iota
	// LevelDiag adds per-frame summaries and skipped candidates.
	LevelDiag
	// LevelTrace adds one line per plate candidate.
	LevelTrace
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters routes the ops, diag and trace streams. A nil writer
// disables that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger("[pipeline] ", ops)
	diagLogger = newLogger("[pipeline] ", diag)
	traceLogger = newLogger("[pipeline] trace ", trace)
}

// SetLogLevel sends every stream up to level to w and disables the rest.
func SetLogLevel(w io.Writer, level Level) {
	var diag, trace io.Writer
	if level >= LevelDiag {
		diag = w
	}
	if level >= LevelTrace {
		trace = w
	}
	SetLogWriters(w, diag, trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
