package csvdata

import (
	"errors"
	"io"
)

// Stream reads a CSV file one row at a time and can be rewound to the
// first data row (after the header), which the statistics engine uses to
// make one pass per column instead of holding the whole file in memory.
// Rewinding re-opens the underlying file from scratch rather than seeking,
// since the source may be gzip-compressed and gzip.Reader cannot seek
// backwards.
type Stream struct {
	path      string
	delimiter rune
	trim      bool

	rc      io.ReadCloser
	r       csvReader
	Headers []string
}

// csvReader is the subset of *encoding/csv.Reader that Stream needs; kept
// as an interface only so tests can swap in a stub without real files.
type csvReader interface {
	Read() ([]string, error)
}

// OpenStream opens path for row-at-a-time reading and reads its header row.
func OpenStream(path string, delimiter rune, trim bool) (*Stream, error) {
	s := &Stream{path: path, delimiter: delimiter, trim: trim}
	if err := s.reopen(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stream) reopen() error {
	if s.rc != nil {
		s.rc.Close()
	}
	rc, err := openRaw(s.path)
	if err != nil {
		return err
	}
	s.rc = rc

	r := newCSVReader(rc, s.delimiter)
	s.r = r

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.Headers = nil
			return nil
		}
		return &FormatError{Path: s.path, Err: err}
	}
	if s.trim {
		trimRow(header)
	}
	s.Headers = header
	return nil
}

// Next returns the next data row, or io.EOF once the file is exhausted.
func (s *Stream) Next() ([]string, error) {
	row, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &FormatError{Path: s.path, Err: err}
	}
	if s.trim {
		trimRow(row)
	}
	return row, nil
}

// Rewind resets the stream to the first data row.
func (s *Stream) Rewind() error {
	return s.reopen()
}

// Close releases the underlying file.
func (s *Stream) Close() error {
	if s.rc == nil {
		return nil
	}
	return s.rc.Close()
}
