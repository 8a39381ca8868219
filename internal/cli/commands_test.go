package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/sparketl/internal/config"
	"github.com/vvka-141/sparketl/internal/logging"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

const (
	testSong  = `{"song_id":"S1","title":"T","artist_id":"A1","year":2000,"duration":180.5,"artist_name":"N","artist_location":"L","artist_latitude":1.0,"artist_longitude":2.0}`
	testEvent = `{"page":"NextSong","ts":1541121934796,"userId":"U1","firstName":"F","lastName":"L","gender":"M","level":"free","song":"T","artist":"N","length":180.5,"sessionId":7,"location":"X","userAgent":"UA"}`
)

func resetLoadFlags() {
	loadFlags = loadFlagValues{
		lookupCacheSize: sparketl.DefaultLookupCacheSize,
		timeout:         sparketl.DefaultTimeout,
	}
}

func clearConnectionEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
		"DATABASE_URL", "SPARKETL_CONNECTION_STRING", "AWS_REGION",
		"AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
	} {
		t.Setenv(name, "")
	}
}

func captureOutput(t *testing.T, cmd *cobra.Command) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	return stdout, stderr
}

// setLoadFlag sets a load flag as if it were typed on the command line.
func setLoadFlag(t *testing.T, name, value string) {
	t.Helper()
	require.NoError(t, loadCmd.Flags().Set(name, value))
	t.Cleanup(func() {
		loadCmd.Flags().Lookup(name).Changed = false
		resetLoadFlags()
	})
}

func writeDataFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadCmd_RejectsPositionalArgs(t *testing.T) {
	err := loadCmd.Args(loadCmd, []string{"data"})
	require.Error(t, err)
	assert.Equal(t, sparketl.ExitUsageError, sparketl.ExitCodeForError(err))
}

func TestSchemaCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range schemaCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down", "reset"}, names)
}

func TestRootCmd_HostShorthandIsFree(t *testing.T) {
	flag := loadCmd.Flags().ShorthandLookup("h")
	require.NotNil(t, flag)
	assert.Equal(t, "host", flag.Name)
}

func TestBuildLoadConfig_Defaults(t *testing.T) {
	resetLoadFlags()

	cfg, err := buildLoadConfig(loadCmd, nil, true)
	require.NoError(t, err)

	assert.Equal(t, sparketl.DefaultSongDataPath, cfg.SongDataPath)
	assert.Equal(t, sparketl.DefaultLogDataPath, cfg.LogDataPath)
	assert.Equal(t, []sparketl.Pass{sparketl.PassSongs, sparketl.PassLogs}, cfg.Passes)
	assert.Equal(t, sparketl.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, sparketl.DefaultLookupCacheSize, cfg.LookupCacheSize)
	assert.Zero(t, cfg.LookupCacheTTL)
	assert.False(t, cfg.StrictLookup)
	assert.True(t, cfg.Verbose)
	assert.NotZero(t, cfg.RunID)
	require.NoError(t, cfg.Validate())
}

func TestBuildLoadConfig_ProjectConfig(t *testing.T) {
	resetLoadFlags()
	projectCfg := &config.ProjectConfig{
		Paths:   config.PathsConfig{SongData: "yaml/songs", LogData: "yaml/logs"},
		Lookup:  config.LookupConfig{CacheTTL: "10m", CacheSize: 50, Strict: true},
		Timeout: "5m",
	}

	cfg, err := buildLoadConfig(loadCmd, projectCfg, false)
	require.NoError(t, err)

	assert.Equal(t, "yaml/songs", cfg.SongDataPath)
	assert.Equal(t, "yaml/logs", cfg.LogDataPath)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.LookupCacheTTL)
	assert.Equal(t, 50, cfg.LookupCacheSize)
	assert.True(t, cfg.StrictLookup)
}

func TestBuildLoadConfig_FlagsBeatProjectConfig(t *testing.T) {
	resetLoadFlags()
	loadFlags.songData = "flag/songs"
	loadFlags.only = "logs"
	projectCfg := &config.ProjectConfig{
		Paths: config.PathsConfig{SongData: "yaml/songs", LogData: "yaml/logs"},
	}

	cfg, err := buildLoadConfig(loadCmd, projectCfg, false)
	require.NoError(t, err)

	assert.Equal(t, "flag/songs", cfg.SongDataPath)
	assert.Equal(t, "yaml/logs", cfg.LogDataPath)
	assert.Equal(t, []sparketl.Pass{sparketl.PassLogs}, cfg.Passes)
}

func TestBuildLoadConfig_StrictLookupFlagOverridesProjectConfig(t *testing.T) {
	resetLoadFlags()
	projectCfg := &config.ProjectConfig{Lookup: config.LookupConfig{Strict: true}}

	cfg, err := buildLoadConfig(loadCmd, projectCfg, false)
	require.NoError(t, err)
	assert.True(t, cfg.StrictLookup)

	setLoadFlag(t, "strict-lookup", "false")
	cfg, err = buildLoadConfig(loadCmd, projectCfg, false)
	require.NoError(t, err)
	assert.False(t, cfg.StrictLookup)
}

func TestBuildLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name       string
		only       string
		projectCfg *config.ProjectConfig
	}{
		{"unknown pass", "events", nil},
		{"bad yaml timeout", "", &config.ProjectConfig{Timeout: "soon"}},
		{"bad yaml cache ttl", "", &config.ProjectConfig{Lookup: config.LookupConfig{CacheTTL: "often"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLoadFlags()
			loadFlags.only = tt.only

			_, err := buildLoadConfig(loadCmd, tt.projectCfg, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, sparketl.ErrInvalidConfig)
			assert.Equal(t, sparketl.ExitConfigError, sparketl.ExitCodeForError(err))
		})
	}
}

func TestRunLoad_DryRun(t *testing.T) {
	resetLoadFlags()
	root := t.TempDir()
	writeDataFile(t, root, "song_data/A/A/S1.json", testSong)
	writeDataFile(t, root, "log_data/2018/11/2018-11-01-events.json", testEvent+"\n")

	loadFlags.songData = filepath.Join(root, "song_data")
	loadFlags.logData = filepath.Join(root, "log_data")
	loadFlags.dryRun = true
	stdout, stderr := captureOutput(t, loadCmd)

	require.NoError(t, runLoad(loadCmd, nil))

	assert.Contains(t, stderr.String(), "Dry run")
	assert.Contains(t, stderr.String(), "1 files found in "+loadFlags.songData)
	assert.Contains(t, stderr.String(), "1/1 files processed.")

	out := stdout.String()
	assert.Contains(t, out, "Run ")
	assert.Contains(t, out, "songs")
	assert.Contains(t, out, "logs")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "Lookup hits")
}

func TestRunLoad_DryRunParseError(t *testing.T) {
	resetLoadFlags()
	root := t.TempDir()
	writeDataFile(t, root, "song_data/S1.json", `{"song_id":`)

	loadFlags.songData = filepath.Join(root, "song_data")
	loadFlags.only = "songs"
	loadFlags.dryRun = true
	captureOutput(t, loadCmd)

	err := runLoad(loadCmd, nil)
	require.Error(t, err)
	assert.Equal(t, sparketl.ExitParseError, sparketl.ExitCodeForError(err))
}

func TestRunLoad_MissingDataDirectory(t *testing.T) {
	resetLoadFlags()
	loadFlags.songData = filepath.Join(t.TempDir(), "nope")
	loadFlags.only = "songs"
	loadFlags.dryRun = true
	stdout, _ := captureOutput(t, loadCmd)

	err := runLoad(loadCmd, nil)
	require.Error(t, err)
	assert.Equal(t, sparketl.ExitFilesystemError, sparketl.ExitCodeForError(err))
	assert.Contains(t, stdout.String(), "0/0", "the failed pass is still summarized")
}

func TestRunLoad_ConnectionAndGranularFlagsConflict(t *testing.T) {
	resetLoadFlags()
	clearConnectionEnv(t)
	loadFlags.conn.connection = "postgresql://localhost/sparkifydb"
	loadFlags.conn.host = "otherhost"
	captureOutput(t, loadCmd)

	err := runLoad(loadCmd, nil)
	require.Error(t, err)
	assert.Equal(t, sparketl.ExitConfigError, sparketl.ExitCodeForError(err))
}

func TestResolveConnectionFromFlags(t *testing.T) {
	clearConnectionEnv(t)
	out := &bytes.Buffer{}
	logger := logging.NewConsoleLoggerTo(out, true, logging.WithoutTimestamps())

	flags := connectionFlags{
		host:     "db.example.com",
		port:     6543,
		username: "student",
		database: "sparkifydb",
		sslMode:  "require",
	}

	cfg, err := resolveConnectionFromFlags(flags, nil, logger)
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "student", cfg.Username)
	assert.Equal(t, "sparkifydb", cfg.Database)
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, sparketl.AuthMethodStandard, cfg.AuthMethod)
	assert.Contains(t, out.String(), "host=db.example.com port=6543 user=student database=sparkifydb")
}

func TestResolveConnectionFromFlags_UnknownAuthMethod(t *testing.T) {
	clearConnectionEnv(t)

	_, err := resolveConnectionFromFlags(connectionFlags{authMethod: "kerberos"}, nil, logging.NewNullLogger())
	require.Error(t, err)
	assert.Equal(t, sparketl.ExitConfigError, sparketl.ExitCodeForError(err))
}

func newConfigCommand(path string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	if path != "" {
		_ = cmd.Flags().Set("config", path)
	}
	return cmd
}

func TestLoadProjectConfig_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  song_data: songs\ntimeout: 2m\n"), 0o644))

	projectCfg, err := loadProjectConfig(newConfigCommand(path))
	require.NoError(t, err)
	require.NotNil(t, projectCfg)
	assert.Equal(t, "songs", projectCfg.Paths.SongData)
	assert.Equal(t, "2m", projectCfg.Timeout)
}

func TestLoadProjectConfig_ExplicitFileMissing(t *testing.T) {
	_, err := loadProjectConfig(newConfigCommand(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.ErrorIs(t, err, sparketl.ErrInvalidConfig)
}

func TestLoadProjectConfig_NoFileInWorkingDirectory(t *testing.T) {
	t.Chdir(t.TempDir())

	projectCfg, err := loadProjectConfig(newConfigCommand(""))
	require.NoError(t, err)
	assert.Nil(t, projectCfg)
}
