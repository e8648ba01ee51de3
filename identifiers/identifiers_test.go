package identifiers_test

import (
	"reflect"
	"testing"

	sql "github.com/csvql/qsv/sql"
	"github.com/csvql/qsv/identifiers"
	"github.com/csvql/qsv/sql/ast"
)

func TestCollectNestedSubquery(t *testing.T) {
	stmt, err := sql.Parse(`SELECT * FROM (SELECT * FROM ./testdata/people.csv) AS inner_query`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := identifiers.Collect(stmt)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"./testdata/people.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollectCTEAndJoin(t *testing.T) {
	stmt, err := sql.Parse(`WITH some_cte (age) AS (SELECT DISTINCT (age) FROM ./testdata/people.csv)
		SELECT * FROM ./testdata/occupations.csv AS occupation
		JOIN ./testdata/foo.csv AS foo ON (occupation.minimum_age = foo.age)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := identifiers.Collect(stmt)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{
		"./testdata/people.csv",
		"./testdata/occupations.csv",
		"./testdata/foo.csv",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollectUnion(t *testing.T) {
	stmt, err := sql.Parse(`SELECT * FROM ./testdata/a.csv UNION SELECT * FROM ./testdata/b.csv`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := identifiers.Collect(stmt)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"./testdata/a.csv", "./testdata/b.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollectIgnoresWhereSubquery(t *testing.T) {
	stmt, err := sql.Parse(`SELECT * FROM ./testdata/people.csv WHERE age IN (SELECT age FROM ./testdata/occupations.csv)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := identifiers.Collect(stmt)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"./testdata/people.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v (expected WHERE subquery identifier to be skipped), want %v", got, want)
	}
}

func TestRewriteCTEAndJoin(t *testing.T) {
	stmt, err := sql.Parse(`WITH some_cte (age) AS (SELECT DISTINCT (age) FROM ./testdata/people.csv)
		SELECT * FROM ./testdata/occupations.csv AS occupation
		JOIN ./testdata/foo.csv AS foo ON (occupation.minimum_age = foo.age)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	m := identifiers.NewMap()
	m.Set("./testdata/people.csv", "people_table")
	m.Set("./testdata/occupations.csv", "occupations_table")
	m.Set("./testdata/foo.csv", "foo")

	if err := identifiers.Rewrite(stmt, m); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := identifiers.Collect(stmt)
	if err != nil {
		t.Fatalf("collect after rewrite: %v", err)
	}
	want := []string{"people_table", "occupations_table", "foo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRewriteLeavesUnmappedIdentifiers(t *testing.T) {
	stmt, err := sql.Parse(`SELECT * FROM ./testdata/people.csv`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := identifiers.NewMap()
	if err := identifiers.Rewrite(stmt, m); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err := identifiers.Collect(stmt)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"./testdata/people.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMapReverseLookupForDedup(t *testing.T) {
	m := identifiers.NewMap()
	m.Set("./testdata/people.csv", "people_table")

	if name, ok := m.TableName("./testdata/people.csv"); !ok || name != "people_table" {
		t.Fatalf("TableName: got (%q, %v)", name, ok)
	}
	if ident, ok := m.IdentifierForTable("people_table"); !ok || ident != "./testdata/people.csv" {
		t.Fatalf("IdentifierForTable: got (%q, %v)", ident, ok)
	}
	if _, ok := m.IdentifierForTable("nonexistent"); ok {
		t.Fatalf("IdentifierForTable: expected no match for unmapped table")
	}
}

func TestCollectUnrecognizedStatement(t *testing.T) {
	// The parser has no INSERT grammar, so a non-query statement cannot
	// come from sql.Parse; a bare VALUES list is built directly instead.
	if _, err := sql.Parse(`INSERT INTO ./testdata/people.csv (age) VALUES (1)`); err == nil {
		t.Fatalf("parse: expected INSERT to be rejected")
	}
	stmt := &ast.ValuesStmt{}
	if _, err := identifiers.Collect(stmt); err == nil {
		t.Fatalf("expected error for non-SELECT statement")
	}
}
