package u2f

import log "github.com/sirupsen/logrus"

// debug gates diagnostic tracing inside the parse/verify core. It is a
// process-wide read-only observer: it must never alter a return value or a
// resource's lifetime, only what gets logged.
var debug = false

// SetDebug turns on verbose logrus.Debug tracing of the binary parser and
// the two verifiers. Off by default.
func SetDebug(on bool) {
	debug = on
	if on {
		log.SetLevel(log.DebugLevel)
	}
}
