// Package query provides SQL query building utilities with projection mapping.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view property names to qualified column references (alias.column).
// Selected columns are listed in projection order; expressions registered with
// JSONPath are addressable by name but never selected.
type ProjectionMap struct {
	schema     string
	table      string
	alias      string
	columns    map[string]string
	columnList []string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:     schema,
		table:      table,
		alias:      alias,
		columns:    make(map[string]string),
		columnList: make([]string, 0),
	}
}

// Project adds a selected column mapping from database column to view property name.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := fmt.Sprintf("%s.%s", p.alias, column)
	p.columns[viewName] = qualified
	p.columnList = append(p.columnList, qualified)
	return p
}

// JSONPath maps viewName to the text value at path inside a JSONB column,
// e.g. JSONPath("ExporterContactID", "export_data", "exporterDetails", "contactId")
// resolves to d.export_data #>> '{exporterDetails,contactId}'.
func (p *ProjectionMap) JSONPath(viewName, column string, path ...string) *ProjectionMap {
	p.columns[viewName] = fmt.Sprintf(
		"%s.%s #>> '{%s}'",
		p.alias,
		column,
		strings.Join(path, ","),
	)
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Name returns the unaliased schema-qualified table name, for INSERT/UPDATE/DELETE statements.
func (p *ProjectionMap) Name() string {
	return fmt.Sprintf("%s.%s", p.schema, p.table)
}

// Table returns the fully qualified table reference with alias (schema.table alias).
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Column returns the qualified column for a view property name, or the input if not mapped.
// Only pass names fixed in code; client-supplied names go through Lookup.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.columns[viewName]; ok {
		return col
	}
	return viewName
}

// Lookup returns the qualified column for a view property name and whether
// the name is mapped.
func (p *ProjectionMap) Lookup(viewName string) (string, bool) {
	col, ok := p.columns[viewName]
	return col, ok
}

// Columns returns all selected columns as a comma-separated string.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}

// Returning returns the selected columns without the alias qualifier,
// suitable for a RETURNING clause on an unaliased statement.
func (p *ProjectionMap) Returning() string {
	prefix := p.alias + "."
	cols := make([]string, len(p.columnList))
	for i, c := range p.columnList {
		cols[i] = strings.TrimPrefix(c, prefix)
	}
	return strings.Join(cols, ", ")
}

// ColumnList returns all selected columns as a slice.
func (p *ProjectionMap) ColumnList() []string {
	return p.columnList
}
