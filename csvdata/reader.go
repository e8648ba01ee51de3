// Package csvdata reads CSV (optionally gzip-compressed) files, infers a
// CellType per column, and derives the sanitized table name a file is
// loaded under.
package csvdata

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/csvql/qsv/filemime"
)

// bufferSize is the read buffer placed in front of every CSV source,
// matching the original implementation's buffer_capacity.
const bufferSize = 16 * 1024

// gzipReadCloser closes both the gzip.Reader and the underlying file.
type gzipReadCloser struct {
	f  *os.File
	gz *gzip.Reader
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

// openRaw opens path and transparently wraps it in a gzip reader when the
// file is gzip-compressed, detected by MIME sniffing rather than by file
// extension.
func openRaw(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	mime, err := filemime.Detect(path)
	if err != nil {
		f.Close()
		return nil, &IOError{Path: path, Err: err}
	}

	if mime != filemime.Gzip {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &FormatError{Path: path, Err: err}
	}
	return &gzipReadCloser{f: f, gz: gz}, nil
}

func newCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	cr := csv.NewReader(bufio.NewReaderSize(r, bufferSize))
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func trimRow(row []string) {
	for i, field := range row {
		row[i] = strings.TrimSpace(field)
	}
}

// Document is a fully materialized CSV file: every row held in memory.
type Document struct {
	Headers []string
	Rows    [][]string
}

// ReadDocument reads the entire file at path into memory.
func ReadDocument(path string, delimiter rune, trim bool) (*Document, error) {
	rc, err := openRaw(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := newCSVReader(rc, delimiter)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, &FormatError{Path: path, Err: err}
	}
	if trim {
		trimRow(header)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Path: path, Err: err}
		}
		if trim {
			trimRow(row)
		}
		rows = append(rows, row)
	}

	return &Document{Headers: header, Rows: rows}, nil
}
