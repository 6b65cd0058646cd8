// Package loader discovers date-named classification rasters in a directory
// and fills the sample store the accumulation pipeline runs over.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wetlandtools/hydroperiod/internal/hydroperiod"
	"github.com/wetlandtools/hydroperiod/pkg/config"
	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

// Loader scans one directory level for rasters whose filename stem is an
// acquisition date. Files that are not rasters, do not carry a parseable
// date, or fail to read are skipped with a log line; they never abort the
// scan.
type Loader struct {
	dateLayout string
	extensions map[string]bool
	logger     *zap.SugaredLogger
}

// New creates a loader. Empty dateLayout and extensions fall back to the
// 2006_01_02 filename convention and the .tif/.tiff/.bil set.
func New(dateLayout string, extensions []string, logger *zap.SugaredLogger) *Loader {
	if dateLayout == "" {
		dateLayout = config.DefaultDateLayout
	}
	if len(extensions) == 0 {
		extensions = config.DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Loader{
		dateLayout: dateLayout,
		extensions: exts,
		logger:     logger,
	}
}

// Scan loads every dated raster directly under dir into a fresh store and
// returns, alongside it, the georeference of the first raster that carried
// one; output writers copy that reference onto the final product.
func (l *Loader) Scan(dir string) (*hydroperiod.Store, *raster.GeoRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	store := hydroperiod.NewStore()
	var ref *raster.GeoRef

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !l.extensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		// the date is the part of the filename before the first dot
		stem := strings.SplitN(name, ".", 2)[0]
		date, err := time.ParseInLocation(l.dateLayout, stem, time.UTC)
		if err != nil {
			l.logger.Infof("ignored file %s due to invalid date format", name)
			continue
		}

		g, err := raster.ReadFile(filepath.Join(dir, name))
		if err != nil {
			l.logger.Warnf("skipping unreadable raster %s: %v", name, err)
			continue
		}

		store.Add(date, g)
		if ref == nil && g.GeoRef != nil {
			ref = g.GeoRef
		}
	}

	l.logger.Infof("loaded %d dated rasters from %s", store.Len(), dir)
	return store, ref, nil
}
