// Package logx is a thin wrapper over the standard logger that keeps a
// "LEVEL.dotted.key: details" line convention (e.g. "TRACE
// fallback.buffer.full: ...") consistent across the whole module instead
// of every package reinventing it.
package logx

import (
	"fmt"
	"log"
)

func Trace(key, format string, args ...any) {
	log.Printf("TRACE %s: %s", key, fmt.Sprintf(format, args...))
}

func Info(key, format string, args ...any) {
	log.Printf("INFO %s: %s", key, fmt.Sprintf(format, args...))
}

func Warn(key, format string, args ...any) {
	log.Printf("WARN %s: %s", key, fmt.Sprintf(format, args...))
}

func Error(key, format string, args ...any) {
	log.Printf("ERROR %s: %s", key, fmt.Sprintf(format, args...))
}
