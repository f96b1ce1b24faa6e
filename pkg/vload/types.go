package vload

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DialectName identifies the database flavor a connection speaks.
type DialectName string

const (
	DialectVertica  DialectName = "vertica"
	DialectPostgres DialectName = "postgres"
)

// IsValid returns true if the DialectName is a supported dialect.
func (d DialectName) IsValid() bool {
	return d == DialectVertica || d == DialectPostgres
}

// DefaultPort returns the client port the dialect listens on by default.
func (d DialectName) DefaultPort() int {
	if d == DialectPostgres {
		return DefaultPostgresPort
	}
	return DefaultVerticaPort
}

// ParseDialectName maps user input ("vertica", "postgresql", "pg", ...) to a DialectName.
func ParseDialectName(s string) (DialectName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vertica":
		return DialectVertica, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (expected vertica or postgres): %w", s, ErrInvalidConfig)
	}
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Dialect  DialectName
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// TLSMode is passed to the driver: tlsmode for Vertica, sslmode for PostgreSQL.
	TLSMode string

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string
}

// Address returns host:port, bracketing IPv6 literals.
func (c *ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks if the ConnectionConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if !c.Dialect.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported dialect %q: %w", c.Dialect, ErrInvalidConfig))
	}
	if c.Host == "" {
		errs = append(errs, fmt.Errorf("Host is required: %w", ErrInvalidConfig))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range: %w", c.Port, ErrInvalidConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("Database is required: %w", ErrInvalidConfig))
	}
	if c.Username == "" {
		errs = append(errs, fmt.Errorf("Username is required: %w", ErrInvalidConfig))
	}
	if c.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("connect timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// SplitHostPort splits a host string that may carry an embedded port
// ("db1:5433", "[::1]:5433"). When no port is embedded, defaultPort is returned.
func SplitHostPort(hostport string, defaultPort int) (string, int, error) {
	if hostport == "" {
		return "", defaultPort, nil
	}

	// Bare IPv6 literal without brackets or port
	if strings.Count(hostport, ":") > 1 && !strings.HasPrefix(hostport, "[") {
		return hostport, defaultPort, nil
	}
	if !strings.Contains(hostport, ":") {
		return hostport, defaultPort, nil
	}
	if strings.HasPrefix(hostport, "[") && strings.HasSuffix(hostport, "]") {
		return strings.Trim(hostport, "[]"), defaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, fmt.Errorf("invalid host %q: %v: %w", hostport, err, ErrInvalidConfig)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in host %q: %w", hostport, ErrInvalidConfig)
	}
	return host, port, nil
}

// MarkerConfig configures the marker table and staging area.
// The zero value is not usable; start from DefaultMarkerConfig.
type MarkerConfig struct {
	// Table is the marker table name. Default: table_updates.
	Table string

	// UseDBTimestamps makes the database fill the inserted column via DEFAULT NOW().
	// When false, the client supplies the timestamp on insert.
	UseDBTimestamps bool

	// StagingDir is the directory holding staged row files. Empty means the OS temp dir.
	StagingDir string
}

// DefaultMarkerConfig returns the documented defaults: marker table
// "table_updates", database-side timestamps, OS temp dir for staging.
func DefaultMarkerConfig() MarkerConfig {
	return MarkerConfig{
		Table:           DefaultMarkerTable,
		UseDBTimestamps: true,
	}
}

// Validate checks the marker configuration.
func (c MarkerConfig) Validate() error {
	if strings.TrimSpace(c.Table) == "" {
		return fmt.Errorf("marker table name is required: %w", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Table, " ;'\"\n\t") {
		return fmt.Errorf("marker table name %q contains invalid characters: %w", c.Table, ErrInvalidConfig)
	}
	return nil
}

// Column is a target table column. Type is optional and only used when the
// loader has to create the table itself.
type Column struct {
	Name string
	Type string
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// ParseColumns normalizes a column specification. Accepted shapes:
//   - []string: flat list of column names
//   - [][]string: (name, type) pairs, every entry exactly two elements
//   - [][2]string: (name, type) pairs
//   - []Column
//
// Any other shape, an empty list, or an empty name returns ErrInvalidConfig.
func ParseColumns(spec any) ([]Column, error) {
	var cols []Column

	switch s := spec.(type) {
	case []Column:
		cols = append(cols, s...)
	case []string:
		for _, name := range s {
			cols = append(cols, Column{Name: name})
		}
	case [][2]string:
		for _, pair := range s {
			cols = append(cols, Column{Name: pair[0], Type: pair[1]})
		}
	case [][]string:
		for i, pair := range s {
			if len(pair) != 2 {
				return nil, fmt.Errorf("columns must consist of column strings or (column, type) pairs (entry %d was %q): %w",
					i, pair, ErrInvalidConfig)
			}
			cols = append(cols, Column{Name: pair[0], Type: pair[1]})
		}
	case []any:
		return parseAnyColumns(s)
	default:
		return nil, fmt.Errorf("columns must consist of column strings or (column, type) pairs (was %T): %w", spec, ErrInvalidConfig)
	}

	return cols, validateColumns(cols)
}

// parseAnyColumns handles heterogeneous input, e.g. decoded from YAML or JSON.
// All entries must share one shape, decided by the first entry.
func parseAnyColumns(s []any) ([]Column, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("columns need to be specified: %w", ErrInvalidConfig)
	}

	_, flat := s[0].(string)
	cols := make([]Column, 0, len(s))
	for i, entry := range s {
		if flat {
			name, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("column %d is %T, expected a column string: %w", i, entry, ErrInvalidConfig)
			}
			cols = append(cols, Column{Name: name})
			continue
		}

		pair, ok := toStringPair(entry)
		if !ok {
			return nil, fmt.Errorf("columns must consist of column strings or (column, type) pairs (entry %d was %v): %w",
				i, entry, ErrInvalidConfig)
		}
		cols = append(cols, Column{Name: pair[0], Type: pair[1]})
	}
	return cols, validateColumns(cols)
}

func toStringPair(v any) ([2]string, bool) {
	switch p := v.(type) {
	case [2]string:
		return p, true
	case []string:
		if len(p) == 2 {
			return [2]string{p[0], p[1]}, true
		}
	case []any:
		if len(p) == 2 {
			name, ok1 := p[0].(string)
			typ, ok2 := p[1].(string)
			if ok1 && ok2 {
				return [2]string{name, typ}, true
			}
		}
	}
	return [2]string{}, false
}

func validateColumns(cols []Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("columns need to be specified: %w", ErrInvalidConfig)
	}
	for i, c := range cols {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("column %d has an empty name: %w", i, ErrInvalidConfig)
		}
	}
	return nil
}

// TxState is the transaction state of a Session.
type TxState int

const (
	// TxActive: statements may be issued.
	TxActive TxState = iota
	// TxPoisoned: a statement failed and the driver refuses further statements until Reset.
	TxPoisoned
	// TxClosed: the session was closed.
	TxClosed
)

// String returns a human-readable string representation of the TxState.
func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxPoisoned:
		return "poisoned"
	case TxClosed:
		return "closed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}
