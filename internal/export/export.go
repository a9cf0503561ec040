// Package export bundles the current artifact set into a downloadable
// archive.
package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"

	"github.com/koopa0/atelier/internal/artifact"
)

// DefaultBaseName names archive entries when no entry symbol resolved.
const DefaultBaseName = "component"

// ErrNothingToExport indicates every artifact kind is a sentinel.
var ErrNothingToExport = errors.New("nothing to export")

// extensions maps artifact kinds to file extensions.
var extensions = map[artifact.Kind]string{
	artifact.KindComponent:  ".go",
	artifact.KindStylesheet: ".css",
	artifact.KindMarkup:     ".html",
}

// Archive bundles each non-sentinel artifact into a zip, naming files
// after the entry symbol when given, else DefaultBaseName.
func Archive(set artifact.Set, entry string) ([]byte, error) {
	base := entry
	if base == "" {
		base = DefaultBaseName
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	wrote := false
	for _, kind := range []artifact.Kind{artifact.KindComponent, artifact.KindStylesheet, artifact.KindMarkup} {
		if set.Sentinel(kind) {
			continue
		}
		f, err := w.Create(base + extensions[kind])
		if err != nil {
			return nil, fmt.Errorf("creating archive entry for %s: %w", kind, err)
		}
		if _, err := f.Write([]byte(set.Get(kind))); err != nil {
			return nil, fmt.Errorf("writing %s artifact: %w", kind, err)
		}
		wrote = true
	}

	if !wrote {
		return nil, ErrNothingToExport
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}
