package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vvka-141/sparketl/internal/logging"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

var rootCmd = &cobra.Command{
	Use:   "sparketl",
	Short: "Load the Sparkify song catalog and listening logs into PostgreSQL",
	Long: `sparketl walks a directory of song catalog files and a directory of
listening event logs, and loads them into a PostgreSQL star schema:
songplays facts with songs, artists, users and time dimensions.

Every file is loaded in its own transaction. The first failing file stops
the run; files committed before it stay committed.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - Data directory missing or unreadable
  13 - Malformed input file
  14 - Row rejected by the database`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(rootCmd)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h is --host, as in psql.
	rootCmd.PersistentFlags().Bool("help", false, "Help for sparketl")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", "",
		"Path to a sparketl.yaml project file\n"+
			"(default: sparketl.yaml in the working directory, if present)")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return ""
	}
	return path
}

// newLogger writes to the command's stderr. Colors are used only on a
// terminal and never when NO_COLOR is set.
func newLogger(cmd *cobra.Command, verbose bool) sparketl.Logger {
	w := cmd.ErrOrStderr()
	color := false
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		color = term.IsTerminal(int(f.Fd()))
	}
	return logging.NewConsoleLoggerTo(w, verbose, logging.WithColor(color))
}
