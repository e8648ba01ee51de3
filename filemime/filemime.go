// Package filemime sniffs the MIME type of a file from its leading bytes.
// The retrieved corpus carries no dedicated magic-byte detection library
// (no gabriel-vasile/mimetype, no h2non/filetype; see DESIGN.md), so this
// is a small stdlib-only sniffer scoped to exactly what the query engine
// needs to distinguish: gzip-wrapped content versus everything else.
package filemime

import (
	"fmt"
	"net/http"
	"os"
)

// MIME string constants recognized by the rest of the module.
const (
	CSV  = "text/csv"
	Gzip = "application/gzip"
)

// UnsupportedError is returned when a file's sniffed MIME type isn't one
// maybe_load_file knows how to ingest.
type UnsupportedError struct {
	Path string
	MIME string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported file type %q", e.Path, e.MIME)
}

var gzipMagic = []byte{0x1f, 0x8b}

// Detect sniffs the MIME type of the file at path by reading its leading
// bytes. Gzip is identified by its two-byte magic number; everything else
// falls back to net/http's content sniffer, with any text-flavored result
// normalized to CSV (the only non-gzip content this engine ever loads).
func Detect(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	buf = buf[:n]

	if len(buf) >= 2 && buf[0] == gzipMagic[0] && buf[1] == gzipMagic[1] {
		return Gzip, nil
	}

	sniffed := http.DetectContentType(buf)
	if isTextLike(sniffed) {
		return CSV, nil
	}
	return sniffed, nil
}

func isTextLike(mime string) bool {
	switch {
	case mime == "text/plain; charset=utf-8":
		return true
	case mime == "text/plain; charset=utf-16be":
		return true
	case mime == "text/plain; charset=utf-16le":
		return true
	case len(mime) >= len("text/") && mime[:len("text/")] == "text/":
		return true
	default:
		return false
	}
}
