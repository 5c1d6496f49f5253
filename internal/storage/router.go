package storage

import (
	"strings"
	"time"

	"github.com/jittakal/onebrc/pkg/storage"
)

// Ensure implementation satisfies interface.
var _ storage.Router = (*DefaultRouter)(nil)

// DefaultRouter implements Hive-style date partitioning of result paths.
type DefaultRouter struct {
	protocol string
	bucket   string
	basePath string
}

// NewRouter creates a new storage router. Empty bucket or basePath segments
// are left out of routed paths.
func NewRouter(protocol, bucket, basePath string) *DefaultRouter {
	return &DefaultRouter{
		protocol: protocol,
		bucket:   bucket,
		basePath: strings.Trim(basePath, "/"),
	}
}

// Route returns protocol://bucket/basePath/inputName/dt=YYYY-MM-DD/ for the
// UTC date of runTime.
func (r *DefaultRouter) Route(inputName string, runTime time.Time) string {
	segments := make([]string, 0, 4)
	for _, s := range []string{r.bucket, r.basePath, inputName} {
		if s != "" {
			segments = append(segments, s)
		}
	}
	segments = append(segments, "dt="+runTime.UTC().Format("2006-01-02"))

	return r.protocol + "://" + strings.Join(segments, "/") + "/"
}

// InputName turns an input file path into a routing segment: the base name
// without extension.
func InputName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.IndexByte(path, '.'); i > 0 {
		path = path[:i]
	}
	if path == "" {
		return "input"
	}
	return path
}
