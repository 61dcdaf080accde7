// Package logging is the supervisor's plain-log helper, mirroring the
// teacher's pkg/lib/log.go: a package-level Debug toggle gating a thin
// log.Printf wrapper, rather than a structured logging framework.
package logging

import "log"

// Debug enables verbose logging across the supervisor. Off by default.
var Debug = false

// Debugf logs a message if Debug is set to true.
func Debugf(format string, v ...interface{}) {
	if Debug {
		log.Printf(format, v...)
	}
}
