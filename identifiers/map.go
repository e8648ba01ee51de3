// Package identifiers collects and rewrites the table identifiers that
// appear in a FROM clause (including CTEs, joins, and set operations)
// without descending into WHERE, HAVING, or column-expression subqueries.
package identifiers

// Map associates each source identifier (as it appeared in the query, e.g.
// a file path like "./testdata/people.csv") with the sanitized table name
// it was loaded under. Two distinct identifiers may map to the same table
// name: when a second path sanitizes to a name already loaded, the
// orchestrator finds it through the reverse table-name -> identifier index
// and maps the second identifier onto that table instead of loading it
// again. The reverse index holds the identifier most recently Set for
// each table name.
type Map struct {
	toTable map[string]string
	byTable map[string]string
	order   []string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{
		toTable: make(map[string]string),
		byTable: make(map[string]string),
	}
}

// Set records that identifier resolves to tableName. Calling Set twice for
// the same identifier overwrites the previous mapping.
func (m *Map) Set(identifier, tableName string) {
	if _, exists := m.toTable[identifier]; !exists {
		m.order = append(m.order, identifier)
	}
	m.toTable[identifier] = tableName
	m.byTable[tableName] = identifier
}

// TableName returns the table name identifier was mapped to, if any.
func (m *Map) TableName(identifier string) (string, bool) {
	name, ok := m.toTable[identifier]
	return name, ok
}

// IdentifierForTable is the reverse lookup: given a table name already in
// use, returns the identifier it was derived from. The orchestrator uses
// this to detect that a newly derived table name collides with one already
// loaded, so it can reuse the existing mapping instead of inserting the
// same file's rows twice.
func (m *Map) IdentifierForTable(tableName string) (string, bool) {
	identifier, ok := m.byTable[tableName]
	return identifier, ok
}

// Identifiers returns the distinct identifiers in first-seen order.
func (m *Map) Identifiers() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of distinct identifiers recorded.
func (m *Map) Len() int {
	return len(m.order)
}
