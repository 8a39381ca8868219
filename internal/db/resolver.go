package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/sparketl/internal/config"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// ConnectionStringEnvVar names the environment variable holding a full connection string.
const ConnectionStringEnvVar = "SPARKETL_CONNECTION_STRING"

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is deliberately absent. Use $PGPASSWORD, .pgpass or a
// connection string instead.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether no host-level flag was given.
// Database is excluded: -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// AuthFlags selects and parameterizes cloud authentication.
// Secrets never come from flags; AZURE_CLIENT_SECRET is read from the environment.
type AuthFlags struct {
	Method         string // standard, aws, google, azure
	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string // Overrides AZURE_TENANT_ID
	AzureClientID  string // Overrides AZURE_CLIENT_ID
}

// EnvVars represents PostgreSQL standard environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	SPARKETL_CONNECTION_STRING string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment snapshots the variables ResolveConnectionParams reads.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                     os.Getenv("PGHOST"),
		PGPORT:                     os.Getenv("PGPORT"),
		PGUSER:                     os.Getenv("PGUSER"),
		PGPASSWORD:                 os.Getenv("PGPASSWORD"),
		PGDATABASE:                 os.Getenv("PGDATABASE"),
		PGSSLMODE:                  os.Getenv("PGSSLMODE"),
		DATABASE_URL:               os.Getenv("DATABASE_URL"),
		SPARKETL_CONNECTION_STRING: os.Getenv(ConnectionStringEnvVar),
		AWS_REGION:                 os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:            os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:            os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:        os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// HasAzureCredentials returns true if Azure Entra ID environment variables are set.
func (e *EnvVars) HasAzureCredentials() bool {
	return e.AZURE_TENANT_ID != "" || e.AZURE_CLIENT_ID != ""
}

// ResolveConnectionParams resolves connection parameters with this precedence:
//
//  1. --connection flag
//  2. $SPARKETL_CONNECTION_STRING, then $DATABASE_URL, when no granular flag is set
//  3. per field: granular flag > PG* variable > sparketl.yaml > default
//
// A -d flag overrides the database of any connection string.
// Giving both --connection and host-level granular flags is an error.
//
// The auth method comes from the flag, then sparketl.yaml, and switches to
// Azure Entra ID on its own when Azure credentials are present.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	authFlags *AuthFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*sparketl.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if authFlags == nil {
		authFlags = &AuthFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://student@localhost:5432/sparkifydb\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U student -d sparkifydb\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=student: %w",
			sparketl.ErrInvalidConfig,
		)
	}

	var cfg *sparketl.ConnectionConfig
	var err error

	switch connStr := pickConnectionString(connStringFlag, granularFlags, envVars); {
	case connStr != "":
		cfg, err = resolveFromConnectionString(connStr, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, projectConfig)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}

	if err := applyAuth(cfg, authFlags, envVars, projectConfig); err != nil {
		return nil, err
	}

	return cfg, nil
}

func pickConnectionString(flag string, granular *GranularConnFlags, env *EnvVars) string {
	if flag != "" {
		return flag
	}
	if !granular.IsEmpty() {
		return ""
	}
	if env.SPARKETL_CONNECTION_STRING != "" {
		return env.SPARKETL_CONNECTION_STRING
	}
	return env.DATABASE_URL
}

// applyAuth sets the auth method and its parameters. Flags beat the environment,
// which beats sparketl.yaml.
func applyAuth(cfg *sparketl.ConnectionConfig, flags *AuthFlags, env *EnvVars, projectConfig *config.ProjectConfig) error {
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	method := firstNonEmpty(flags.Method, pc.AuthMethod)
	authMethod, err := sparketl.ParseAuthMethod(method)
	if err != nil {
		return err
	}

	tenantID := firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	clientID := firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)

	if method == "" && (flags.AzureTenantID != "" || flags.AzureClientID != "" || env.HasAzureCredentials()) {
		authMethod = sparketl.AuthMethodAzureEntraID
	}

	cfg.AuthMethod = authMethod
	switch authMethod {
	case sparketl.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case sparketl.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	case sparketl.AuthMethodAzureEntraID:
		cfg.AzureTenantID = tenantID
		cfg.AzureClientID = clientID
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	}
	return nil
}

// resolveFromConnectionString parses connStr. PGSSLMODE fills in a missing
// sslmode, following libpq.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*sparketl.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	if cfg.SSLMode == "" {
		cfg.SSLMode = firstNonEmpty(envVars.PGSSLMODE, "prefer")
	}

	return cfg, nil
}

// resolveFromGranularParams builds the config field by field:
// flag > environment variable > sparketl.yaml > default.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*sparketl.ConnectionConfig, error) {
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	cfg := &sparketl.ConnectionConfig{
		Host:             firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost"),
		Username:         firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME")),
		Password:         envVars.PGPASSWORD,
		Database:         firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database, sparketl.DefaultDatabase),
		SSLMode:          firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer"),
		AuthMethod:       sparketl.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, sparketl.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
