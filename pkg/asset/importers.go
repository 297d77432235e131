package asset

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/midgard-assets/pkg/scene"
	"github.com/Faultbox/midgard-assets/pkg/scene/gltfimport"
	"github.com/Faultbox/midgard-assets/pkg/scene/rsmimport"
)

var importers = map[string]scene.Importer{
	".gltf": gltfimport.Importer{},
	".glb":  gltfimport.Importer{},
	".rsm":  rsmimport.Importer{},
	".rsm2": rsmimport.Importer{},
}

// RegisterImporter makes imp the importer for files with extension ext
// (including the dot). It is not safe to call concurrently with Load.
func RegisterImporter(ext string, imp scene.Importer) {
	importers[strings.ToLower(ext)] = imp
}

// ImporterFor returns the importer registered for the extension of p.
func ImporterFor(p string) (scene.Importer, error) {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p, `\`, "/")))
	imp, ok := importers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return imp, nil
}

// Extensions returns the registered file extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(importers))
	for ext := range importers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
