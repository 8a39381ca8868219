package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/sparketl/internal/config"
	"github.com/vvka-141/sparketl/internal/db"
	"github.com/vvka-141/sparketl/internal/services"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	authMethod     string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string
}

// addConnectionFlags registers the connection flags on cmd. Persistent flags
// are inherited by subcommands.
func addConnectionFlags(cmd *cobra.Command, f *connectionFlags, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}

	fs.StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username, --sslmode).\n"+
			"Alternative: $SPARKETL_CONNECTION_STRING or $DATABASE_URL.\n"+
			"Example: postgresql://student@localhost:5432/sparkifydb")

	// Precedence: flag > environment variable > sparketl.yaml > default
	fs.StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > sparketl.yaml > localhost")
	fs.IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > sparketl.yaml > 5432")
	fs.StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER)")
	fs.StringVarP(&f.database, "database", "d", "",
		"Target database (default: $PGDATABASE, sparketl.yaml or sparkifydb)\n"+
			"Overrides the database of a connection string")
	fs.StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	fs.StringVar(&f.authMethod, "auth-method", "",
		"Authentication method: standard|aws|google|azure\n"+
			"(default: standard, or azure when $AZURE_TENANT_ID/$AZURE_CLIENT_ID are set)")
	fs.StringVar(&f.awsRegion, "aws-region", "",
		"AWS region for RDS IAM authentication (overrides $AWS_REGION)")
	fs.StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
	fs.StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	fs.StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
}

// resolveConnectionFromFlags resolves connection configuration from flags,
// the environment and the project config.
func resolveConnectionFromFlags(
	flags connectionFlags,
	projectCfg *config.ProjectConfig,
	logger sparketl.Logger,
) (*sparketl.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
	}

	authFlags := &db.AuthFlags{
		Method:         flags.authMethod,
		AWSRegion:      flags.awsRegion,
		GoogleInstance: flags.googleInstance,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
	}

	connConfig, err := db.ResolveConnectionParams(
		flags.connection,
		granularFlags,
		authFlags,
		db.LoadFromEnvironment(),
		projectCfg,
	)
	if err != nil {
		return nil, err
	}

	logConnectionVerbose(logger, connConfig)
	return connConfig, nil
}

// logConnectionVerbose logs connection details. The password is never logged.
func logConnectionVerbose(logger sparketl.Logger, connConfig *sparketl.ConnectionConfig) {
	logger.Verbose("Connection resolved: host=%s port=%d user=%s database=%s sslmode=%s auth=%s",
		connConfig.Host,
		connConfig.Port,
		connConfig.Username,
		connConfig.Database,
		connConfig.SSLMode,
		connConfig.AuthMethod,
	)
}

// openSession connects with the connector matching the auth method.
func openSession(
	ctx context.Context,
	connConfig *sparketl.ConnectionConfig,
	runID uuid.UUID,
	logger sparketl.Logger,
) (*sparketl.Session, error) {
	manager := services.NewSessionManager(func(cfg *sparketl.ConnectionConfig) (sparketl.Connector, error) {
		return db.NewConnector(cfg, logger)
	}, logger)
	return manager.OpenSession(ctx, connConfig, runID)
}

// loadProjectConfig loads .env and the project configuration.
// Without --config, a missing sparketl.yaml is not an error and yields nil.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	if path := getConfigFlag(cmd); path != "" {
		projectCfg, err := config.LoadFile(path)
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", sparketl.ErrInvalidConfig, path, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		return projectCfg, nil
	}

	projectCfg, err := config.Load(".")
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectCfg, nil
}
