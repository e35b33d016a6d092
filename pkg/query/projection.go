// Package query builds parameterized PostgreSQL queries over a projection of
// view property names onto table columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view property names to alias-qualified columns of one
// table. Only mapped properties may appear in ORDER BY.
type ProjectionMap struct {
	from    string
	alias   string
	columns map[string]string
	order   []string
}

// NewProjectionMap creates a ProjectionMap for schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		from:    fmt.Sprintf("%s.%s %s", schema, table, alias),
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps viewName to column. Columns are selected in Project order.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	p.order = append(p.order, qualified)
	return p
}

// From returns the table reference with its alias, e.g. "public.letters l".
func (p *ProjectionMap) From() string {
	return p.from
}

// Column returns the qualified column for viewName, or viewName unchanged if
// it is not mapped.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.columns[viewName]; ok {
		return col
	}
	return viewName
}

// Has reports whether viewName is mapped.
func (p *ProjectionMap) Has(viewName string) bool {
	_, ok := p.columns[viewName]
	return ok
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}
