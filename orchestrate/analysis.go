package orchestrate

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/csvql/qsv/csvdata"
	"github.com/csvql/qsv/filemime"
	"github.com/csvql/qsv/identifiers"
)

// ExecuteAnalysis reports the inferred column types for every file query
// references, without loading any of them into a store or executing
// anything. Inference runs in stream mode, matching the "analyze"
// subcommand's job of being a cheap, read-only look at a file's shape.
func ExecuteAnalysis(log *zap.SugaredLogger, query string, opts Options) (string, error) {
	stmt, err := parseSingleStatement(query)
	if err != nil {
		return "", err
	}

	idents, err := identifiers.Collect(stmt)
	if err != nil {
		return "", err
	}

	type named struct {
		table string
		inf   *csvdata.Inference
	}
	var inferences []named

	for _, ident := range idents {
		if _, err := os.Stat(ident); err != nil {
			if os.IsNotExist(err) {
				log.Debugw("identifier does not name an existing file, skipping", "identifier", ident)
				continue
			}
			return "", &csvdata.IOError{Path: ident, Err: err}
		}

		mime, err := filemime.Detect(ident)
		if err != nil {
			return "", &csvdata.IOError{Path: ident, Err: err}
		}
		if mime != filemime.CSV && mime != filemime.Gzip {
			return "", &filemime.UnsupportedError{Path: ident, MIME: mime}
		}

		s, err := csvdata.OpenStream(ident, opts.Delimiter, opts.Trim)
		if err != nil {
			return "", err
		}

		var inf *csvdata.Inference
		if opts.TextOnly {
			inf = csvdata.DefaultInference(s.Headers)
		} else {
			inf, err = csvdata.InferFromStream(s)
		}
		closeErr := s.Close()
		if err != nil {
			return "", err
		}
		if closeErr != nil {
			return "", closeErr
		}

		inferences = append(inferences, named{table: csvdata.SanitizeTableName(ident), inf: inf})
	}

	var b strings.Builder
	multi := len(inferences) > 1
	for _, n := range inferences {
		if multi {
			fmt.Fprintf(&b, "%s:\n", n.table)
			for _, col := range n.inf.Columns {
				t, _ := n.inf.TypeOf(col)
				fmt.Fprintf(&b, "\t%s -> %s\n", col, t)
			}
			continue
		}
		b.WriteString(n.inf.String())
	}
	return b.String(), nil
}
