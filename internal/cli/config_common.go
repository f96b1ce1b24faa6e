package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/vload/internal/config"
	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/internal/loader"
	"github.com/vvka-141/vload/internal/logging"
	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/internal/query"
	"github.com/vvka-141/vload/internal/services"
	"github.com/vvka-141/vload/pkg/vload"
)

// newConnector builds the database connector. Tests replace it with an in-memory database.
var newConnector = db.NewConnector

// stagingFs is the filesystem staged rows are written to.
var stagingFs = afero.NewOsFs()

// loadProjectConfig loads .env and vload.yaml from dir.
// Returns nil config if vload.yaml does not exist (not an error).
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %v: %w", config.ConfigFileName, err, vload.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring vload.yaml if flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		parsed, err := time.ParseDuration(projectCfg.Timeout)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout in %s: %v: %w", config.ConfigFileName, err, vload.ErrInvalidConfig)
		}
		return parsed, nil
	}
	return flagTimeout, nil
}

// resolveMarkerSettings layers the marker flags over vload.yaml over the defaults.
func resolveMarkerSettings(cmd *cobra.Command, projectCfg *config.ProjectConfig, flags globalFlagValues) vload.MarkerConfig {
	settings := projectCfg.MarkerSettings()
	if flags.markerTable != "" {
		settings.Table = flags.markerTable
	}
	if cmd.Flags().Changed("client-timestamps") {
		settings.UseDBTimestamps = !flags.clientTimestamps
	}
	if flags.stagingDir != "" {
		settings.StagingDir = flags.stagingDir
	}
	return settings
}

// app is the wired load pipeline for one CLI invocation.
type app struct {
	conn     *vload.ConnectionConfig
	project  *config.ProjectConfig
	logger   vload.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collectors
	copy     *services.CopyService
	query    *services.QueryService
	status   *services.StatusService
	timeout  time.Duration
}

// newApp resolves configuration and wires the services the same way for every command.
func newApp(cmd *cobra.Command) (*app, error) {
	verbose := getVerboseFlag(cmd)

	projectCfg, err := loadProjectConfig(globalFlags.configDir)
	if err != nil {
		return nil, err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, globalFlags.timeout)
	if err != nil {
		return nil, err
	}

	connConfig, err := resolveConnection(globalFlags.connection, projectCfg, verbose)
	if err != nil {
		return nil, err
	}

	connector, err := newConnector(connConfig)
	if err != nil {
		return nil, err
	}

	logger := logging.NewConsoleLogger(verbose)
	markerConfig := resolveMarkerSettings(cmd, projectCfg, globalFlags)
	store, err := marker.NewStore(connector, markerConfig, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collectors := metrics.New(registry)
	l := loader.New(store, stagingFs, markerConfig.StagingDir, logger, collectors)

	return &app{
		conn:     connConfig,
		project:  projectCfg,
		logger:   logger,
		registry: registry,
		metrics:  collectors,
		copy:     services.NewCopyService(connector, store, l, logger, collectors),
		query:    services.NewQueryService(connector, store, query.NewRunner(store, logger, collectors), logger, collectors),
		status:   services.NewStatusService(store),
		timeout:  timeout,
	}, nil
}

// run executes fn under the command timeout, cancelling on SIGINT/SIGTERM,
// and exports metrics afterwards when --metrics-textfile is set.
func (a *app) run(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := fn(ctx)

	if globalFlags.metricsTextfile != "" {
		if writeErr := prometheus.WriteToTextfile(globalFlags.metricsTextfile, a.registry); writeErr != nil {
			a.logger.Error("Failed to write metrics to %s: %v", globalFlags.metricsTextfile, writeErr)
		}
	}
	return err
}

// saveConnectionToConfig saves connection config to vload.yaml in dir, merging with any existing config.
func saveConnectionToConfig(dir string, connConfig *vload.ConnectionConfig) (string, error) {
	configPath := filepath.Join(dir, config.ConfigFileName)

	cfg, err := config.Load(dir)
	if err != nil {
		cfg = &config.ProjectConfig{}
	}

	cfg.Connection = config.ConnectionConfig{
		Dialect:  string(connConfig.Dialect),
		Host:     connConfig.Host,
		Port:     connConfig.Port,
		Username: connConfig.Username,
		Database: connConfig.Database,
		TLSMode:  connConfig.TLSMode,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return configPath, os.WriteFile(configPath, data, 0644)
}

// unitFailed tags a failed copy or query with ErrExecutionFailed for the
// exit code. Configuration, connection and consistency failures keep their
// own codes because ExitCodeForError checks those first.
func unitFailed(kind string, err error) error {
	return fmt.Errorf("%s failed: %w: %w", kind, vload.ErrExecutionFailed, err)
}
