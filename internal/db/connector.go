package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vvka-141/vload/pkg/vload"
)

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's Dialect. Connection attempts are never
// retried: an unreachable endpoint or rejected credentials fail the unit of work.
func NewConnector(config *vload.ConnectionConfig) (vload.Connector, error) {
	if config == nil {
		return nil, fmt.Errorf("connection config is required: %w", vload.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Dialect {
	case vload.DialectVertica:
		return NewVerticaConnector(config), nil
	case vload.DialectPostgres:
		return NewPostgresConnector(config), nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q: %w", config.Dialect, vload.ErrInvalidConfig)
	}
}

func withConnectTimeout(ctx context.Context, config *vload.ConnectionConfig) (context.Context, context.CancelFunc) {
	if config.ConnectTimeout > 0 {
		return context.WithTimeout(ctx, config.ConnectTimeout)
	}
	return context.WithCancel(ctx)
}

// wrapConnectionError wraps raw driver connection errors with actionable guidance.
// The result always matches vload.ErrConnection.
func wrapConnectionError(err error, config *vload.ConnectionConfig) error {
	if errors.Is(err, vload.ErrConnection) {
		return err
	}

	errStr := strings.ToLower(err.Error())
	addr := config.Address()
	host := config.Host
	database := config.Database
	product := "Vertica"
	if config.Dialect == vload.DialectPostgres {
		product = "PostgreSQL"
	}

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - %s is not running or not listening on port %d
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, vload.ErrConnection, addr, product, config.Port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, vload.ErrConnection, host, err)

	case strings.Contains(errStr, "password authentication failed") ||
		strings.Contains(errStr, "invalid username or password") ||
		strings.Contains(errStr, "authentication failed"):
		return fmt.Errorf(`%w: authentication failed for database "%s"

Possible causes:
  - Wrong password (check $VLOAD_PASSWORD)
  - Wrong username
  - User does not have access to the database

Original error: %w`, vload.ErrConnection, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: database "%s" does not exist

Original error: %w`, vload.ErrConnection, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, vload.ErrConnection, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: TLS connection error

Possible causes:
  - Server requires TLS but the TLS mode is wrong
  - Certificate verification failed

Original error: %w`, vload.ErrConnection, err)

	default:
		return fmt.Errorf("%w: failed to connect to %s at %s: %w", vload.ErrConnection, product, addr, err)
	}
}
