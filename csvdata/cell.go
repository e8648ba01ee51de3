package csvdata

import "strconv"

// CellType is the inferred SQL-ish type of a CSV column, ordered by the
// lattice join Integer < Float < Text: joining two types always returns
// the more general of the two, and Text absorbs everything.
type CellType int

const (
	Integer CellType = iota
	Float
	Text
)

func (t CellType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Text:
		return "text"
	default:
		return "text"
	}
}

// Join returns the least upper bound of a and b in the Integer < Float <
// Text lattice.
func Join(a, b CellType) CellType {
	if a == b {
		return a
	}
	if a == Text || b == Text {
		return Text
	}
	// One of a, b is Integer and the other Float (in either order).
	return Float
}

// Cell is a single parsed CSV value, tagged by the branch of the parse
// ladder that accepted it.
type Cell struct {
	Type  CellType
	Int   int64
	Float float64
	Text  string
}

// ParseCell runs the single parse ladder shared by column type inference
// and statistics accumulation: try int64, then float64, and fall back to
// the raw text. This is the one place string-to-typed-value parsing
// happens, so inference and execution can never disagree about a value's
// type.
func ParseCell(s string) Cell {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Cell{Type: Integer, Int: i, Text: s}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Cell{Type: Float, Float: f, Text: s}
	}
	return Cell{Type: Text, Text: s}
}
