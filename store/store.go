// Package store is the embedded relational engine every query runs
// against: one in-memory modernc.org/sqlite database per invocation,
// opened with durability pragmas relaxed since nothing here survives past
// process exit, plus the md5/sqrt/mean/stddev functions queries can call.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/csvql/qsv/csvdata"

	_ "modernc.org/sqlite"
)

// pragmas relax durability and journaling for an ephemeral, single-writer,
// in-memory database: nothing here needs to survive a crash, and nothing
// else ever opens the same database file.
var pragmas = []string{
	"PRAGMA journal_mode = OFF",
	"PRAGMA synchronous = OFF",
	"PRAGMA cache_size = -16000",
	"PRAGMA read_uncommitted = true",
	"PRAGMA wal_autocheckpoint = 0",
	"PRAGMA mmap_size = 0",
	"PRAGMA threads = 8",
}

// Store is one in-memory database, good for exactly one invocation of the
// query engine.
type Store struct {
	db *sql.DB
}

// Open creates a fresh in-memory database with the engine's pragmas
// applied and the UDF library registered.
func Open(ctx context.Context) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, &EngineError{Op: "open", Err: err}
	}
	// A single pooled connection keeps every statement on one SQLite
	// connection, which is what lets a single BEGIN/COMMIT around a bulk
	// insert behave as one transaction instead of racing across conns.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, &EngineError{Op: "pragma", Err: err}
		}
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTable issues a CREATE TABLE statement whose columns match inf,
// with Integer columns stored as sqlite INTEGER, Float columns as REAL,
// and Text columns as TEXT.
func (s *Store) CreateTable(ctx context.Context, tableName string, inf *csvdata.Inference) error {
	cols := make([]string, len(inf.Columns))
	for i, name := range inf.Columns {
		t, _ := inf.TypeOf(name)
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(name), sqlTypeFor(t))
	}
	ddl := fmt.Sprintf("create table %s (%s)", quoteIdent(tableName), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return &EngineError{Op: "create_table " + tableName, Err: err}
	}
	return nil
}

// Insert bulk-loads rows into tableName in a single transaction, coercing
// each cell to the column's inferred type.
func (s *Store) Insert(ctx context.Context, tableName string, inf *csvdata.Inference, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	colNames := make([]string, len(inf.Columns))
	placeholders := make([]string, len(inf.Columns))
	for i, name := range inf.Columns {
		colNames[i] = quoteIdent(name)
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"insert into %s (%s) values (%s)",
		quoteIdent(tableName),
		strings.Join(colNames, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &EngineError{Op: "begin", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return &EngineError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	args := make([]any, len(inf.Columns))
	for _, row := range rows {
		for i, name := range inf.Columns {
			t, _ := inf.TypeOf(name)
			var raw string
			if i < len(row) {
				raw = row[i]
			}
			args[i] = cellValue(raw, t)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return &EngineError{Op: "insert into " + tableName, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &EngineError{Op: "commit", Err: err}
	}
	return nil
}

// Select runs an arbitrary query and returns its column names and rows,
// each cell already formatted per the engine's output rules: NULL maps to
// the literal string "null", integers render as plain decimal, floats use
// Go's shortest round-tripping representation, text passes through as-is,
// and blobs are decoded as UTF-8 with invalid sequences replaced.
func (s *Store) Select(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, &EngineError{Op: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, &EngineError{Op: "columns", Err: err}
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, &EngineError{Op: "scan", Err: err}
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &EngineError{Op: "rows", Err: err}
	}
	return cols, out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlTypeFor(t csvdata.CellType) string {
	switch t {
	case csvdata.Integer:
		return "integer"
	case csvdata.Float:
		return "real"
	default:
		return "text"
	}
}

func cellValue(raw string, t csvdata.CellType) any {
	switch t {
	case csvdata.Integer:
		v, _ := strconv.ParseInt(raw, 10, 64)
		return v
	case csvdata.Float:
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	default:
		return raw
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case []byte:
		return strings.ToValidUTF8(string(t), "�")
	default:
		return fmt.Sprintf("%v", t)
	}
}
