package orchestrate

import (
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/csvql/qsv/csvdata"
	"github.com/csvql/qsv/filemime"
	"github.com/csvql/qsv/stats"
)

// ExecuteStatistics computes per-column statistics for filename: a first
// streaming pass infers each column's type, then one rewind per column
// accumulates mean/stddev/min-max/frequencies appropriate to that column's
// type.
func ExecuteStatistics(log *zap.SugaredLogger, filename string, opts Options) ([]stats.Statistic, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, &csvdata.IOError{Path: filename, Err: err}
	}

	mime, err := filemime.Detect(filename)
	if err != nil {
		return nil, &csvdata.IOError{Path: filename, Err: err}
	}
	if mime != filemime.CSV && mime != filemime.Gzip {
		return nil, &filemime.UnsupportedError{Path: filename, MIME: mime}
	}

	inferStream, err := csvdata.OpenStream(filename, opts.Delimiter, opts.Trim)
	if err != nil {
		return nil, err
	}

	var inf *csvdata.Inference
	if opts.TextOnly {
		inf = csvdata.DefaultInference(inferStream.Headers)
	} else {
		inf, err = csvdata.InferFromStream(inferStream)
	}
	closeErr := inferStream.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	accStream, err := csvdata.OpenStream(filename, opts.Delimiter, opts.Trim)
	if err != nil {
		return nil, err
	}
	defer accStream.Close()

	results := make([]stats.Statistic, 0, len(inf.Columns))
	for i, col := range inf.Columns {
		if err := accStream.Rewind(); err != nil {
			return nil, err
		}

		colType, _ := inf.TypeOf(col)
		log.Debugw("accumulating column", "column", col, "type", colType.String())

		switch colType {
		case csvdata.Integer:
			acc := stats.NewIntAccumulator(col)
			if err := accumulate(accStream, i, func(raw string) error {
				acc.Push(csvdata.ParseCell(raw).Int)
				return nil
			}); err != nil {
				return nil, err
			}
			results = append(results, acc.Statistic())
		case csvdata.Float:
			acc := stats.NewFloatAccumulator(col)
			if err := accumulate(accStream, i, func(raw string) error {
				c := csvdata.ParseCell(raw)
				if c.Type == csvdata.Integer {
					acc.Push(float64(c.Int))
				} else {
					acc.Push(c.Float)
				}
				return nil
			}); err != nil {
				return nil, err
			}
			results = append(results, acc.Statistic())
		default:
			acc := stats.NewTextAccumulator(col)
			if err := accumulate(accStream, i, func(raw string) error {
				acc.Push(raw)
				return nil
			}); err != nil {
				return nil, err
			}
			results = append(results, acc.Statistic())
		}
	}
	return results, nil
}

func accumulate(s *csvdata.Stream, col int, push func(raw string) error) error {
	for {
		row, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if col >= len(row) {
			continue
		}
		if err := push(row[col]); err != nil {
			return err
		}
	}
}
