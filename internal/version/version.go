package version

import (
	"runtime"
	"time"
)

// Populated at build time via -ldflags.
var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // fallback when not injected
	GoVersion = runtime.Version()
)
