package version

import (
	"runtime"
	"time"
)

// Name is the service name reported to tracing and in the UI footer.
const Name = "marktrabit"

var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version()               // go version
)

// String returns a one-line build description.
func String() string {
	return Name + " " + Version + " (commit=" + Commit + ", built=" + BuildDate + ", go=" + GoVersion + ")"
}
