package deps

import (
	"time"

	"github.com/arborsync/arbor/internal/analyzer"
	"github.com/arborsync/arbor/internal/importer"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/tree"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access mutating endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Tree     *tree.Service      // managed subtree service
	Meta     *metadata.Store    // metadata overlay store
	Importer *importer.Engine   // import engine
	Enricher *analyzer.Enricher // AI enrichment pass (nil = enrichment disabled)
}
