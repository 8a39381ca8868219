package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vvka-141/sparketl/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or drop the sparkify tables",
	Long: `Schema manages the songplays, songs, artists, users and time tables
with embedded, versioned migrations.

  up     create the tables (already applied migrations are skipped)
  down   drop the tables and every loaded row
  reset  drop, then create the tables again`,
}

type schemaFlagValues struct {
	conn    connectionFlags
	timeout time.Duration
}

var schemaFlags schemaFlagValues

// schemaAction runs one migrator operation and names it for the log line.
type schemaAction struct {
	name  string
	short string
	past  string
	run   func(*schema.Migrator) error
}

var (
	schemaUp = schemaAction{
		name:  "up",
		short: "Create the tables",
		past:  "created",
		run:   (*schema.Migrator).Up,
	}
	schemaDown = schemaAction{
		name:  "down",
		short: "Drop the tables",
		past:  "dropped",
		run:   (*schema.Migrator).Down,
	}
	schemaReset = schemaAction{
		name:  "reset",
		short: "Drop and recreate the tables",
		past:  "reset",
		run:   (*schema.Migrator).Reset,
	}
)

func init() {
	rootCmd.AddCommand(schemaCmd)

	addConnectionFlags(schemaCmd, &schemaFlags.conn, true)
	schemaCmd.PersistentFlags().DurationVar(&schemaFlags.timeout, "timeout", 5*time.Minute,
		"Timeout for the schema change\n"+
			"Examples: 30s, 5m")

	for _, action := range []schemaAction{schemaUp, schemaDown, schemaReset} {
		schemaCmd.AddCommand(newSchemaActionCmd(action))
	}
}

func newSchemaActionCmd(action schemaAction) *cobra.Command {
	return &cobra.Command{
		Use:   action.name,
		Short: action.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, action)
		},
	}
}

func runSchema(cmd *cobra.Command, action schemaAction) error {
	verbose := getVerboseFlag(cmd)
	logger := newLogger(cmd, verbose)

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, schemaFlags.timeout)
	if err != nil {
		return err
	}

	connConfig, err := resolveConnectionFromFlags(schemaFlags.conn, projectCfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := newRunContext(timeout, cmd.ErrOrStderr(), "schema "+action.name)
	defer cancel()

	session, err := openSession(ctx, connConfig, uuid.New(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Error("failed to close session: %v", closeErr)
		}
	}()

	migrator, err := schema.NewMigrator(session.Pool())
	if err != nil {
		return fmt.Errorf("schema %s failed: %w", action.name, err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Verbose("failed to close migrator: %v", closeErr)
		}
	}()

	if err := action.run(migrator); err != nil {
		return fmt.Errorf("schema %s failed: %w", action.name, err)
	}

	applied, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("schema %s failed: %w", action.name, err)
	}
	if dirty {
		logger.Error("Schema version %d is dirty; run 'sparketl schema reset'", applied)
	}
	logger.Info("Tables %s in %s (schema version %d)", action.past, connConfig.Database, applied)
	return nil
}
