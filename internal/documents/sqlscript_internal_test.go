package documents

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
)

// statement is one query or exec the store sent, with converted args.
type statement struct {
	sql  string
	args []any
}

// result is the rows a scripted query answers with. A nil result is an
// empty row set.
type result struct {
	columns []string
	rows    [][]driver.Value
}

// scriptedDB is a database/sql driver that answers every statement from
// respond and records what it was sent.
type scriptedDB struct {
	mu         sync.Mutex
	respond    func(sql string, args []any) (*result, error)
	statements []statement
}

func openScripted(respond func(sql string, args []any) (*result, error)) (*sql.DB, *scriptedDB) {
	s := &scriptedDB{respond: respond}
	return sql.OpenDB(s), s
}

func (s *scriptedDB) Connect(context.Context) (driver.Conn, error) { return &scriptedConn{db: s}, nil }
func (s *scriptedDB) Driver() driver.Driver                         { return scriptedDriver{} }

// sent returns the recorded statements whose text contains fragment.
func (s *scriptedDB) sent(fragment string) []statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []statement
	for _, st := range s.statements {
		if strings.Contains(st.sql, fragment) {
			out = append(out, st)
		}
	}
	return out
}

func (s *scriptedDB) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statements)
}

func (s *scriptedDB) run(query string, named []driver.NamedValue) (*result, error) {
	args := make([]any, len(named))
	for i, nv := range named {
		args[i] = nv.Value
	}
	s.mu.Lock()
	s.statements = append(s.statements, statement{sql: query, args: args})
	s.mu.Unlock()
	return s.respond(query, args)
}

type scriptedDriver struct{}

func (scriptedDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("scripted driver opens through a connector")
}

type scriptedConn struct {
	db *scriptedDB
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not scripted")
}

func (c *scriptedConn) Close() error              { return nil }
func (c *scriptedConn) Begin() (driver.Tx, error) { return scriptedTx{}, nil }

func (c *scriptedConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res, err := c.db.run(query, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &result{}
	}
	return &scriptedRows{result: res}, nil
}

func (c *scriptedConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	res, err := c.db.run(query, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return driver.RowsAffected(0), nil
	}
	return driver.RowsAffected(len(res.rows)), nil
}

type scriptedTx struct{}

func (scriptedTx) Commit() error   { return nil }
func (scriptedTx) Rollback() error { return nil }

type scriptedRows struct {
	*result
	next int
}

func (r *scriptedRows) Columns() []string {
	if r.columns != nil {
		return r.columns
	}
	if len(r.rows) > 0 {
		cols := make([]string, len(r.rows[0]))
		for i := range cols {
			cols[i] = "c"
		}
		return cols
	}
	return []string{}
}

func (r *scriptedRows) Close() error { return nil }

func (r *scriptedRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

// single is a one-row result. Echoing a statement's args back makes an
// INSERT ... RETURNING answer with what was written.
func single(values ...any) *result {
	row := make([]driver.Value, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &result{rows: [][]driver.Value{row}}
}

func countOf(n int) *result {
	return single(int64(n))
}
