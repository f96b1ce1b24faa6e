// Package fakedb is an in-memory stand-in for a Vertica or PostgreSQL
// database, good enough to drive the load protocol in unit tests.
//
// It understands the handful of statements vload issues (CREATE TABLE,
// INSERT, TRUNCATE, the marker lookup and COPY FROM STDIN) and models
// transactions: work is buffered per session and applied on Commit,
// discarded on Reset. On the Vertica dialect DDL commits implicitly and a
// failed statement leaves the transaction usable; on PostgreSQL a failed
// statement poisons the session until Reset.
package fakedb

import (
	"context"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	vertigo "github.com/vertica/vertica-sql-go"
	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/pkg/vload"
)

// Table is a committed or pending table image. NULL fields are nil,
// everything else is a string.
type Table struct {
	Columns []string
	Rows    [][]any

	// Keyed tables reject a second row with the same first column.
	Keyed bool
}

func (t *Table) clone() *Table {
	c := &Table{Columns: slices.Clone(t.Columns), Rows: make([][]any, len(t.Rows)), Keyed: t.Keyed}
	for i, r := range t.Rows {
		c.Rows[i] = slices.Clone(r)
	}
	return c
}

type op func(tables map[string]*Table)

// DB is the shared database all sessions of a connector see.
type DB struct {
	dialect vload.Dialect

	mu         sync.Mutex
	tables     map[string]*Table
	statements []string
	opened     int
	closed     int

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error

	// FailOn is consulted before every statement; a non-nil return fails it.
	FailOn func(sql string) error
}

// New creates an empty database speaking dialect.
func New(dialect vload.DialectName) *DB {
	d, err := db.DialectFor(dialect)
	if err != nil {
		panic(err)
	}
	return &DB{dialect: d, tables: make(map[string]*Table)}
}

// Connect implements vload.Connector.
func (d *DB) Connect(ctx context.Context) (vload.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	d.opened++
	return &Session{db: d}, nil
}

// CreateTable adds a committed table.
func (d *DB) CreateTable(name string, columns ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = &Table{Columns: columns}
}

// HasTable reports whether name exists in committed state.
func (d *DB) HasTable(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tables[name]
	return ok
}

// Rows returns the committed rows of name, nil if the table does not exist.
func (d *DB) Rows(name string) [][]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[name]
	if !ok {
		return nil
	}
	return t.clone().Rows
}

// Statements returns every statement issued so far, in order.
func (d *DB) Statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.statements)
}

// OpenSessions returns the number of sessions not yet closed.
func (d *DB) OpenSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened - d.closed
}

// SessionsOpened returns how many sessions were ever opened.
func (d *DB) SessionsOpened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Session is one fake connection. Not safe for concurrent use.
type Session struct {
	db      *DB
	state   vload.TxState
	pending []op

	Commits int
	Resets  int
}

var _ vload.Session = (*Session)(nil)

var (
	createPattern   = regexp.MustCompile(`(?is)^CREATE TABLE\s+(\S+)\s*\((.*)\)\s*$`)
	insertPattern   = regexp.MustCompile(`(?is)^INSERT INTO\s+(\S+)\s*\(([^)]*)\)\s*VALUES`)
	truncatePattern = regexp.MustCompile(`(?is)^TRUNCATE TABLE\s+(\S+)`)
	lookupPattern    = regexp.MustCompile(`(?is)^SELECT 1 FROM\s+(\S+)\s+WHERE update_id = \S+ LIMIT 1$`)
	copyPattern     = regexp.MustCompile(`(?is)^COPY\s+(\S+)\s*\(([^)]*)\)\s*FROM STDIN.*DELIMITER '((?:''|[^'])+)'`)
)

func (s *Session) State() vload.TxState { return s.state }

func (s *Session) Dialect() vload.Dialect { return s.db.dialect }

func (s *Session) ready() error {
	switch s.state {
	case vload.TxPoisoned:
		return vload.ErrTransactionPoisoned
	case vload.TxClosed:
		return vload.ErrSessionClosed
	}
	return nil
}

// fail classifies err the way a real session does and applies poisoning.
func (s *Session) fail(err error) error {
	err = db.Classify(err)
	if s.db.dialect.PoisonsTransaction() {
		s.state = vload.TxPoisoned
	}
	return err
}

// begin records the statement and runs the FailOn hook. Caller holds db.mu.
func (s *Session) begin(sql string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.db.statements = append(s.db.statements, sql)
	if s.db.FailOn != nil {
		if err := s.db.FailOn(sql); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

// view returns committed state with this session's pending work applied.
// Caller holds db.mu.
func (s *Session) view() map[string]*Table {
	v := make(map[string]*Table, len(s.db.tables))
	for k, t := range s.db.tables {
		v[k] = t.clone()
	}
	for _, o := range s.pending {
		o(v)
	}
	return v
}

func (s *Session) missing(table string) error {
	if s.db.dialect.Name() == vload.DialectPostgres {
		return &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	return verticaError("42V01", fmt.Sprintf("Relation %q does not exist", table))
}

func (s *Session) duplicate(table string) error {
	if s.db.dialect.Name() == vload.DialectPostgres {
		return &pgconn.PgError{Code: "42P07", Message: fmt.Sprintf("relation %q already exists", table)}
	}
	return verticaError("42710", fmt.Sprintf("Object %q already exists", table))
}

func (s *Session) duplicateKey(table string) error {
	if s.db.dialect.Name() == vload.DialectPostgres {
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	return verticaError("23505", fmt.Sprintf("Duplicate key values: 'update_id' -- violates constraint '%s'", table))
}

func verticaError(state, msg string) *vertigo.VError {
	return &vertigo.VError{Severity: "ERROR", SQLState: state, Message: msg}
}

// Exec implements vload.Session.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.begin(sql); err != nil {
		return err
	}
	view := s.view()

	switch {
	case createPattern.MatchString(sql):
		m := createPattern.FindStringSubmatch(sql)
		name := m[1]
		if _, ok := view[name]; ok {
			return s.fail(s.duplicate(name))
		}
		cols := columnNames(m[2])
		keyed := s.enforcesKey(m[2])
		s.pending = append(s.pending, func(t map[string]*Table) {
			t[name] = &Table{Columns: cols, Keyed: keyed}
		})
		// Vertica DDL commits the transaction it runs in.
		if s.db.dialect.Name() == vload.DialectVertica {
			s.commitLocked()
		}

	case insertPattern.MatchString(sql):
		m := insertPattern.FindStringSubmatch(sql)
		name := m[1]
		t, ok := view[name]
		if !ok {
			return s.fail(s.missing(name))
		}
		if t.Keyed && len(args) > 0 {
			for _, r := range t.Rows {
				if len(r) > 0 && r[0] == render(args[0]) {
					return s.fail(s.duplicateKey(name))
				}
			}
		}
		row := make([]any, len(args))
		for i, a := range args {
			row[i] = render(a)
		}
		s.pending = append(s.pending, func(t map[string]*Table) {
			t[name].Rows = append(t[name].Rows, row)
		})

	case truncatePattern.MatchString(sql):
		name := truncatePattern.FindStringSubmatch(sql)[1]
		if _, ok := view[name]; !ok {
			return s.fail(s.missing(name))
		}
		s.pending = append(s.pending, func(t map[string]*Table) {
			t[name].Rows = nil
		})
	}
	return nil
}

// enforcesKey reports whether the column list declares a primary key on its
// first column that the dialect checks on insert. Vertica only checks
// constraints declared ENABLED.
func (s *Session) enforcesKey(defs string) bool {
	first := strings.ToUpper(strings.SplitN(defs, ",", 2)[0])
	if !strings.Contains(first, "PRIMARY KEY") {
		return false
	}
	return s.db.dialect.Name() == vload.DialectPostgres || strings.Contains(first, "ENABLED")
}

// QueryRow implements vload.Session. Only the marker lookup is understood.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) vload.Row {
	if err := ctx.Err(); err != nil {
		return row{err: err}
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.begin(sql); err != nil {
		return row{err: err}
	}

	m := lookupPattern.FindStringSubmatch(sql)
	if m == nil {
		return row{err: fmt.Errorf("fakedb: unsupported query %q", sql)}
	}
	t, ok := s.view()[m[1]]
	if !ok {
		return row{err: s.fail(s.missing(m[1]))}
	}
	for _, r := range t.Rows {
		if len(args) > 0 && len(r) > 0 && r[0] == render(args[0]) {
			return row{values: []any{1}}
		}
	}
	return row{err: vload.ErrNoRows}
}

// CopyFrom implements vload.Session. Fields are unescaped with the text COPY
// rules; an empty field is NULL.
func (s *Session) CopyFrom(ctx context.Context, sql string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.begin(sql); err != nil {
		return 0, err
	}

	m := copyPattern.FindStringSubmatch(sql)
	if m == nil {
		return 0, s.fail(fmt.Errorf("fakedb: unsupported copy %q", sql))
	}
	name := m[1]
	width := len(strings.Split(m[2], ","))
	sep := strings.ReplaceAll(m[3], "''", "'")

	if _, ok := s.view()[name]; !ok {
		return 0, s.fail(s.missing(name))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, s.fail(err)
	}
	rows := parseCopyText(data, sep[0])
	for _, fields := range rows {
		if len(fields) != width {
			return 0, s.fail(verticaError("22V04", fmt.Sprintf("COPY: row has %d fields, expected %d", len(fields), width)))
		}
	}

	s.pending = append(s.pending, func(t map[string]*Table) {
		t[name].Rows = append(t[name].Rows, rows...)
	})
	return int64(len(rows)), nil
}

// Commit implements vload.Session.
func (s *Session) Commit(ctx context.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.commitLocked()
	return nil
}

func (s *Session) commitLocked() {
	for _, o := range s.pending {
		o(s.db.tables)
	}
	s.pending = nil
	s.Commits++
}

// Reset implements vload.Session.
func (s *Session) Reset(ctx context.Context) error {
	if s.state == vload.TxClosed {
		return vload.ErrSessionClosed
	}
	s.pending = nil
	s.state = vload.TxActive
	s.Resets++
	return nil
}

// Close implements vload.Session. Pending work is discarded.
func (s *Session) Close(ctx context.Context) error {
	if s.state == vload.TxClosed {
		return nil
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.pending = nil
	s.state = vload.TxClosed
	s.db.closed++
	return nil
}

type row struct {
	values []any
	err    error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if p, ok := dest[i].(*int); ok && i < len(r.values) {
			*p = r.values[i].(int)
		}
	}
	return nil
}

// columnNames extracts names from a CREATE TABLE column list, ignoring
// commas nested in type parameters such as NUMERIC(10,2).
func columnNames(defs string) []string {
	var names []string
	depth, start := 0, 0
	emit := func(part string) {
		if f := strings.Fields(part); len(f) > 0 {
			names = append(names, f[0])
		}
	}
	for i, c := range defs {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				emit(defs[start:i])
				start = i + 1
			}
		}
	}
	emit(defs[start:])
	return names
}

// parseCopyText splits COPY text input into records on unescaped newlines
// and fields on unescaped sep. A backslash makes the next byte literal.
func parseCopyText(data []byte, sep byte) [][]any {
	var rows [][]any
	var fields []any
	var cur []byte
	escaped := false
	for _, c := range data {
		switch {
		case escaped:
			cur = append(cur, c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == sep:
			fields = append(fields, field(string(cur)))
			cur = cur[:0]
		case c == '\n':
			rows = append(rows, append(fields, field(string(cur))))
			fields, cur = nil, cur[:0]
		default:
			cur = append(cur, c)
		}
	}
	if len(cur) > 0 || len(fields) > 0 {
		rows = append(rows, append(fields, field(string(cur))))
	}
	return rows
}

func field(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func render(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// TableNames returns the committed table names, sorted.
func (d *DB) TableNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.tables))
}
