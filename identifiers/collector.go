package identifiers

import (
	"fmt"
	"strings"

	"github.com/csvql/qsv/sql/ast"
)

// ErrUnrecognizedStatement is returned when Collect or Rewrite is handed a
// top-level statement that isn't a SELECT or a set operation over SELECTs.
// Table identifiers only ever appear in query shapes; there's nothing to
// collect from an INSERT/UPDATE/DELETE/DDL statement.
type ErrUnrecognizedStatement struct {
	Stmt ast.Statement
}

func (e *ErrUnrecognizedStatement) Error() string {
	return fmt.Sprintf("unrecognized statement for identifier collection: %T", e.Stmt)
}

// Collect walks stmt and returns every table identifier referenced in its
// FROM clauses, CTEs, joins, derived subqueries, and set-operation branches,
// in the order encountered. It does not descend into WHERE, HAVING, the
// column list, or ORDER BY, so identifiers used only in scalar subqueries
// there are never collected.
func Collect(stmt ast.Statement) ([]string, error) {
	c := &collector{}
	if err := c.recurseQuery(stmt); err != nil {
		return nil, err
	}
	return c.identifiers, nil
}

type collector struct {
	identifiers []string
	seen        map[string]bool
}

func (c *collector) add(name string) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.identifiers = append(c.identifiers, name)
}

func (c *collector) recurseQuery(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return c.recurseSelect(s)
	case *ast.SetOp:
		if err := c.recurseSetOpSide(s.Left); err != nil {
			return err
		}
		return c.recurseSetOpSide(s.Right)
	default:
		return &ErrUnrecognizedStatement{Stmt: stmt}
	}
}

// recurseSetOpSide accepts the looser shapes a UNION/INTERSECT/EXCEPT side
// can take: another SELECT, a nested set operation, or (rarely) a
// parenthesized query represented the same way the parser builds them.
func (c *collector) recurseSetOpSide(stmt ast.Statement) error {
	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOp:
		return c.recurseQuery(stmt)
	default:
		// VALUES and other non-SELECT branches of a set operation carry no
		// table identifiers.
		return nil
	}
}

func (c *collector) recurseSelect(s *ast.SelectStmt) error {
	if s.With != nil {
		for _, cte := range s.With.CTEs {
			if err := c.recurseQuery(cte.Query); err != nil {
				return err
			}
		}
	}
	if s.From != nil {
		c.recurseTableExpr(s.From)
	}
	return nil
}

func (c *collector) recurseTableExpr(t ast.TableExpr) {
	switch e := t.(type) {
	case *ast.TableName:
		c.add(tableNameIdentifier(e))
	case *ast.AliasedTableExpr:
		c.recurseTableExpr(e.Expr)
	case *ast.JoinExpr:
		c.recurseTableExpr(e.Left)
		c.recurseTableExpr(e.Right)
	case *ast.ParenTableExpr:
		c.recurseTableExpr(e.Expr)
	case *ast.Subquery:
		if e.Select != nil {
			_ = c.recurseSelect(e.Select)
		}
	case *ast.TableList:
		for _, sub := range e.Tables {
			c.recurseTableExpr(sub)
		}
	default:
		// ValuesStmt and anything else offers no table identifier.
	}
}

// tableNameIdentifier reconstructs the original identifier text from a
// TableName node's dot-separated parts. The CSV dialect's lexer already
// folds path-like names ("./data/foo.csv") into a single part, so this is
// almost always Parts[0]; the join only matters for conventionally
// qualified names that never reached this front end as a path.
func tableNameIdentifier(t *ast.TableName) string {
	return strings.Join(t.Parts, ".")
}
