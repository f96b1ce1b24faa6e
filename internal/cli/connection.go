package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/vvka-141/vload/internal/config"
	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/pkg/vload"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection string
	dialect    string
	host       string
	port       int
	username   string
	database   string
	tlsMode    string
	noPassword bool
}

// passwordPrompt reads a password for the given user and address. Tests replace it.
var passwordPrompt = promptPassword

// resolveConnection resolves connection parameters from flags, environment and
// vload.yaml, then prompts for a missing password when stdin is a terminal.
func resolveConnection(
	flags connectionFlags,
	projectCfg *config.ProjectConfig,
	verbose bool,
) (*vload.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Dialect:  flags.dialect,
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		TLSMode:  flags.tlsMode,
	}

	connConfig, err := db.ResolveConnectionParams(flags.connection, granularFlags, db.LoadFromEnvironment(), projectCfg)
	if err != nil {
		return nil, err
	}

	if connConfig.Database == "" {
		return nil, fmt.Errorf("database name is required\n"+
			"Provide via:\n"+
			"  1. --database/-d flag: vload copy -d vmart ...\n"+
			"  2. Connection string: vload copy --connection \"vertica://dbadmin@host/vmart\" ...\n"+
			"  3. Environment variable: export VLOAD_DATABASE=vmart: %w", vload.ErrInvalidConfig)
	}
	if connConfig.AppName == "" {
		connConfig.AppName = "vload"
	}

	if connConfig.Password == "" && !flags.noPassword {
		password, err := passwordPrompt(connConfig)
		if err != nil {
			return nil, err
		}
		connConfig.Password = password
	}

	if verbose {
		logConnectionVerbose(connConfig)
	}
	return connConfig, nil
}

// promptPassword asks on the controlling terminal. Non-interactive runs get an
// empty password, which is valid for trust-authenticated databases.
func promptPassword(cfg *vload.ConnectionConfig) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", cfg.Username, cfg.Address())
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(connConfig *vload.ConnectionConfig) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  Dialect: %s\n", connConfig.Dialect)
	fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	if connConfig.TLSMode != "" {
		fmt.Fprintf(os.Stderr, "  TLS Mode: %s\n", connConfig.TLSMode)
	}
}
