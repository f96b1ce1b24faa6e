package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/vload/internal/config"
	"github.com/vvka-141/vload/pkg/vload"
)

// GranularConnFlags represents connection parameters from CLI flags.
//
// Note: Password is NOT included as a CLI flag for security reasons.
// Use one of these methods instead:
//  1. $VLOAD_PASSWORD environment variable
//  2. Connection string with embedded password
//  3. Interactive prompt
type GranularConnFlags struct {
	Dialect  string
	Host     string
	Port     int
	Username string
	Database string
	TLSMode  string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Dialect and Database are excluded: both may refine a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.TLSMode == ""
}

// EnvVars represents the vload connection environment variables.
type EnvVars struct {
	VLOAD_CONNECTION_STRING string
	VLOAD_DIALECT           string
	VLOAD_HOST              string
	VLOAD_PORT              string
	VLOAD_USER              string
	VLOAD_PASSWORD          string
	VLOAD_DATABASE          string
	VLOAD_TLSMODE           string
}

// LoadFromEnvironment loads vload environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		VLOAD_CONNECTION_STRING: os.Getenv("VLOAD_CONNECTION_STRING"),
		VLOAD_DIALECT:           os.Getenv("VLOAD_DIALECT"),
		VLOAD_HOST:              os.Getenv("VLOAD_HOST"),
		VLOAD_PORT:              os.Getenv("VLOAD_PORT"),
		VLOAD_USER:              os.Getenv("VLOAD_USER"),
		VLOAD_PASSWORD:          os.Getenv("VLOAD_PASSWORD"),
		VLOAD_DATABASE:          os.Getenv("VLOAD_DATABASE"),
		VLOAD_TLSMODE:           os.Getenv("VLOAD_TLSMODE"),
	}
}

// ResolveConnectionParams resolves connection parameters using this precedence:
//
//  1. Connection string flag (--connection), else $VLOAD_CONNECTION_STRING
//  2. Granular flags (-h, -p, -U, -d, --tls-mode)
//  3. Environment variables (VLOAD_HOST, VLOAD_PORT, ...)
//  4. vload.yaml connection section
//  5. Defaults (localhost, dialect default port)
//
// A host carrying an embedded port ("db1:5433") is split; an explicit port
// flag still wins over the embedded one.
//
// Conflict Detection:
// Returns error if BOTH --connection flag AND granular flags are provided.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*vload.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	if projectConfig == nil {
		projectConfig = &config.ProjectConfig{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"vertica://dbadmin@localhost:5433/vmart\"\n"+
				"  2. Granular flags: -h localhost -p 5433 -U dbadmin -d vmart\n"+
				"  3. Environment variables: export VLOAD_HOST=localhost VLOAD_USER=dbadmin: %w",
			vload.ErrInvalidConfig,
		)
	}

	connString := connStringFlag
	if connString == "" && granularFlags.IsEmpty() {
		connString = envVars.VLOAD_CONNECTION_STRING
	}

	var cfg *vload.ConnectionConfig
	var err error
	if connString != "" {
		cfg, err = ParseConnectionString(connString)
		if err != nil {
			return nil, err
		}
		if granularFlags.Database != "" {
			cfg.Database = granularFlags.Database
		}
	} else {
		cfg, err = resolveGranular(granularFlags, envVars, &projectConfig.Connection)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Password == "" {
		cfg.Password = envVars.VLOAD_PASSWORD
	}
	if cfg.AdditionalParams == nil {
		cfg.AdditionalParams = make(map[string]string)
	}
	return cfg, nil
}

func resolveGranular(flags *GranularConnFlags, env *EnvVars, file *config.ConnectionConfig) (*vload.ConnectionConfig, error) {
	dialect, err := vload.ParseDialectName(firstNonEmpty(flags.Dialect, env.VLOAD_DIALECT, file.Dialect))
	if err != nil {
		return nil, err
	}

	host, embeddedPort, err := vload.SplitHostPort(
		firstNonEmpty(flags.Host, env.VLOAD_HOST, file.Host, vload.DefaultHost), 0)
	if err != nil {
		return nil, err
	}

	port := flags.Port
	if port == 0 {
		port = embeddedPort
	}
	if port == 0 && env.VLOAD_PORT != "" {
		port, err = strconv.Atoi(env.VLOAD_PORT)
		if err != nil {
			return nil, fmt.Errorf("invalid VLOAD_PORT %q: %w", env.VLOAD_PORT, vload.ErrInvalidConfig)
		}
	}
	if port == 0 {
		port = file.Port
	}
	if port == 0 {
		port = dialect.DefaultPort()
	}

	return &vload.ConnectionConfig{
		Dialect:          dialect,
		Host:             host,
		Port:             port,
		Username:         firstNonEmpty(flags.Username, env.VLOAD_USER, file.Username),
		Database:         firstNonEmpty(flags.Database, env.VLOAD_DATABASE, file.Database),
		TLSMode:          firstNonEmpty(flags.TLSMode, env.VLOAD_TLSMODE, file.TLSMode),
		AdditionalParams: make(map[string]string),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
