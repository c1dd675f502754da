// Package artifact derives per-repetition output file names.
package artifact

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/perfgo/benchcamp/model"
)

// DefaultExtension is used when no extension is given.
const DefaultExtension = "csv"

// Name returns "<identity>_<rep>.<ext>".
func Name(r model.Record, rep int, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("%s_%d.%s", r.Identity(), rep, ext)
}

// Path returns "<dir>/<identity>_<rep>.<ext>". The same record and repetition
// always map to the same path.
func Path(dir string, r model.Record, rep int, ext string) string {
	return filepath.Join(dir, Name(r, rep, ext))
}

// ValidExtension reports whether ext can be parsed back out of a path.
func ValidExtension(ext string) error {
	if strings.ContainsAny(ext, "_/\\ \t") || strings.HasPrefix(ext, ".") || strings.HasSuffix(ext, ".") {
		return fmt.Errorf("invalid artifact extension %q", ext)
	}
	return nil
}

// Parse splits an artifact path back into record identity, repetition and
// extension. The repetition is taken after the last underscore and the
// extension after the first dot that follows it, so identities may contain
// dots and extensions may have several parts (e.g. "click.log").
func Parse(path string) (identity string, rep int, ext string, err error) {
	base := filepath.Base(path)
	us := strings.LastIndex(base, "_")
	if us < 0 {
		return "", 0, "", fmt.Errorf("failed to parse artifact name %q: no repetition", base)
	}
	identity, rest := base[:us], base[us+1:]
	repStr, ext, ok := strings.Cut(rest, ".")
	if !ok || ext == "" {
		return "", 0, "", fmt.Errorf("failed to parse artifact name %q: no extension", base)
	}
	rep, err = strconv.Atoi(repStr)
	if err != nil || rep < 0 {
		return "", 0, "", fmt.Errorf("failed to parse artifact name %q: bad repetition %q", base, repStr)
	}
	return identity, rep, ext, nil
}
