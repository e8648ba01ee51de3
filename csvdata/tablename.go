package csvdata

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// SanitizeTableName derives a SQL table name from a file path: take the
// leaf (base) name, strip everything from the first '.' onward (so
// "people.csv" becomes "people" and "archive.tar.gz" becomes "archive"),
// and replace spaces with underscores. If that leaves nothing usable (a
// dotfile like ".hidden.csv" strips to an empty string), fall back to a
// random hex name instead of producing an empty or colliding table name.
func SanitizeTableName(path string) string {
	base := filepath.Base(path)

	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	base = strings.ReplaceAll(base, " ", "_")

	if base == "" {
		return RandomTableName()
	}
	return base
}

// RandomTableName generates a synthetic table name, used as the sanitize
// fallback when a path yields an empty name.
func RandomTableName() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is not something this engine can recover
		// from meaningfully; fall back to a fixed, clearly-synthetic name
		// rather than propagating the error through every call site.
		return "table_fallback"
	}
	return "table_" + hex.EncodeToString(buf)
}
