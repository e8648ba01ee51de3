package orchestrate

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/csvql/qsv/csvdata"
	"github.com/csvql/qsv/filemime"
	"github.com/csvql/qsv/identifiers"
	sqlfront "github.com/csvql/qsv/sql"
	"github.com/csvql/qsv/sql/ast"
	"github.com/csvql/qsv/store"
)

// Result is the rendered output of a successful query: one header row
// plus the data rows, each cell already formatted as a string.
type Result struct {
	Headers []string
	Rows    [][]string
}

// parseSingleStatement parses query and requires it to contain exactly one
// statement (spec.md's exactly-one-statement rule; a single trailing
// semicolon is tolerated since it produces no extra parsed statement).
func parseSingleStatement(query string) (ast.Statement, error) {
	stmts, err := sqlfront.ParseAll(query)
	if err != nil {
		return nil, &ParseError{Query: query, Err: err}
	}
	if len(stmts) != 1 {
		return nil, &ParseError{Query: query, Err: errNotExactlyOne}
	}
	return stmts[0], nil
}

// ExecuteQuery parses query, loads every file it references into a fresh
// in-memory store, rewrites the query to use the tables those files were
// loaded under, and executes it.
func ExecuteQuery(ctx context.Context, log *zap.SugaredLogger, query string, opts Options) (*Result, error) {
	stmt, err := parseSingleStatement(query)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	idMap, err := loadIdentifiers(ctx, log, stmt, st, opts)
	if err != nil {
		return nil, err
	}

	if err := identifiers.Rewrite(stmt, idMap); err != nil {
		return nil, err
	}
	rendered := sqlfront.String(stmt)
	log.Debugw("executing rewritten query", "sql", rendered)

	headers, rows, err := st.Select(ctx, rendered)
	if err != nil {
		return nil, err
	}
	return &Result{Headers: headers, Rows: rows}, nil
}

// loadIdentifiers collects every table identifier stmt references, loads
// each referenced file into st, and returns the map from identifier to
// the table name it was loaded under.
func loadIdentifiers(ctx context.Context, log *zap.SugaredLogger, stmt ast.Statement, st *store.Store, opts Options) (*identifiers.Map, error) {
	idMap := identifiers.NewMap()

	idents, err := identifiers.Collect(stmt)
	if err != nil {
		return nil, err
	}

	for _, ident := range idents {
		if err := maybeLoadFile(ctx, log, ident, st, idMap, opts); err != nil {
			return nil, err
		}
	}
	return idMap, nil
}

// maybeLoadFile loads the file named by identifier into st, recording the
// table name it ends up under in idMap. A file that doesn't exist is a
// normal control-flow branch, not an error: the identifier is simply left
// unmapped and the rewritten query will fail naturally as an unknown table
// if it's actually needed.
func maybeLoadFile(ctx context.Context, log *zap.SugaredLogger, identifier string, st *store.Store, idMap *identifiers.Map, opts Options) error {
	if _, ok := idMap.TableName(identifier); ok {
		// Same identifier seen again (duplicate FROM/JOIN reference, or a
		// second statement in the same query reusing it): it already
		// resolves to a table, so there's nothing left to load.
		return nil
	}

	if _, err := os.Stat(identifier); err != nil {
		if os.IsNotExist(err) {
			log.Debugw("identifier does not name an existing file, skipping", "identifier", identifier)
			return nil
		}
		return &csvdata.IOError{Path: identifier, Err: err}
	}

	mime, err := filemime.Detect(identifier)
	if err != nil {
		return &csvdata.IOError{Path: identifier, Err: err}
	}
	if mime != filemime.CSV && mime != filemime.Gzip {
		return &filemime.UnsupportedError{Path: identifier, MIME: mime}
	}

	tableName := csvdata.SanitizeTableName(identifier)
	if _, ok := idMap.IdentifierForTable(tableName); ok {
		// A different identifier (the identical-identifier case already
		// returned above) already claimed this sanitized table name, e.g.
		// two distinct paths both named "data.csv". Map this identifier
		// onto the table that's already loaded under that name instead of
		// loading a second, separate copy of the file: both identifiers
		// then resolve to the same table in the rewritten SQL.
		idMap.Set(identifier, tableName)
		return nil
	}

	doc, err := csvdata.ReadDocument(identifier, opts.Delimiter, opts.Trim)
	if err != nil {
		return err
	}

	var inf *csvdata.Inference
	if opts.TextOnly {
		inf = csvdata.DefaultInference(doc.Headers)
	} else {
		inf = csvdata.InferFromDocument(doc)
	}

	if err := st.CreateTable(ctx, tableName, inf); err != nil {
		return err
	}
	if err := st.Insert(ctx, tableName, inf, doc.Rows); err != nil {
		return err
	}

	log.Debugw("loaded file", "identifier", identifier, "table", tableName, "rows", len(doc.Rows))
	idMap.Set(identifier, tableName)
	return nil
}
