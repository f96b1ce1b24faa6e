package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vvka-141/vload/pkg/vload"
)

// DialectFor returns the Dialect for name.
func DialectFor(name vload.DialectName) (vload.Dialect, error) {
	switch name {
	case vload.DialectVertica:
		return verticaDialect{}, nil
	case vload.DialectPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q: %w", name, vload.ErrInvalidConfig)
	}
}

// verticaDialect renders Vertica SQL. A failed statement only rolls back
// itself, the enclosing transaction stays usable.
type verticaDialect struct{}

func (verticaDialect) Name() vload.DialectName { return vload.DialectVertica }

func (verticaDialect) Placeholder(int) string { return "?" }

// CopyStatement uses NO COMMIT: Vertica's COPY otherwise commits the current
// transaction, which would commit the data ahead of its marker row.
func (verticaDialect) CopyStatement(table string, columns []string, separator string) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN DELIMITER %s NO COMMIT",
		table, strings.Join(columns, ","), quoteLiteral(separator))
}

func (verticaDialect) PoisonsTransaction() bool { return false }

// MarkerTableDDL declares the key ENABLED: Vertica accepts duplicate keys
// for constraints that are not enabled.
func (verticaDialect) MarkerTableDDL(table string, dbTimestamps bool) string {
	return markerTableDDL(table, "PRIMARY KEY ENABLED", dbTimestamps)
}

// postgresDialect renders PostgreSQL SQL. A failed statement aborts the
// transaction until ROLLBACK.
type postgresDialect struct{}

func (postgresDialect) Name() vload.DialectName { return vload.DialectPostgres }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// CopyStatement sets NULL '' so empty fields load as NULL, matching Vertica's default.
func (postgresDialect) CopyStatement(table string, columns []string, separator string) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT text, DELIMITER %s, NULL '')",
		table, strings.Join(columns, ","), quoteLiteral(separator))
}

func (postgresDialect) PoisonsTransaction() bool { return true }

func (postgresDialect) MarkerTableDDL(table string, dbTimestamps bool) string {
	return markerTableDDL(table, "PRIMARY KEY", dbTimestamps)
}

func markerTableDDL(table, key string, dbTimestamps bool) string {
	inserted := "inserted TIMESTAMP"
	if dbTimestamps {
		inserted = "inserted TIMESTAMP DEFAULT NOW()"
	}
	return fmt.Sprintf("CREATE TABLE %s (update_id VARCHAR(4096) %s, target_table VARCHAR(4096), %s)",
		table, key, inserted)
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
