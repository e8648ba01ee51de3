package identifiers

import "github.com/csvql/qsv/sql/ast"

// Rewrite walks stmt with the same scope as Collect and substitutes every
// table identifier found in m, in place. Identifiers with no entry in m are
// left untouched. The AST is mutated directly; callers that need the
// original should parse a fresh copy first.
func Rewrite(stmt ast.Statement, m *Map) error {
	r := &rewriter{m: m}
	return r.recurseQuery(stmt)
}

type rewriter struct {
	m *Map
}

func (r *rewriter) recurseQuery(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return r.recurseSelect(s)
	case *ast.SetOp:
		if err := r.recurseSetOpSide(s.Left); err != nil {
			return err
		}
		return r.recurseSetOpSide(s.Right)
	default:
		return &ErrUnrecognizedStatement{Stmt: stmt}
	}
}

func (r *rewriter) recurseSetOpSide(stmt ast.Statement) error {
	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOp:
		return r.recurseQuery(stmt)
	default:
		return nil
	}
}

func (r *rewriter) recurseSelect(s *ast.SelectStmt) error {
	if s.With != nil {
		for _, cte := range s.With.CTEs {
			if err := r.recurseQuery(cte.Query); err != nil {
				return err
			}
		}
	}
	if s.From != nil {
		r.recurseTableExpr(s.From)
	}
	return nil
}

func (r *rewriter) recurseTableExpr(t ast.TableExpr) {
	switch e := t.(type) {
	case *ast.TableName:
		identifier := tableNameIdentifier(e)
		if tableName, ok := r.m.TableName(identifier); ok {
			e.Parts = []string{tableName}
		}
	case *ast.AliasedTableExpr:
		r.recurseTableExpr(e.Expr)
	case *ast.JoinExpr:
		r.recurseTableExpr(e.Left)
		r.recurseTableExpr(e.Right)
	case *ast.ParenTableExpr:
		r.recurseTableExpr(e.Expr)
	case *ast.Subquery:
		if e.Select != nil {
			_ = r.recurseSelect(e.Select)
		}
	case *ast.TableList:
		for _, sub := range e.Tables {
			r.recurseTableExpr(sub)
		}
	default:
	}
}
