// Package cli implements the thingstore command-line interface: an
// operator tool that loads a schema, seeds an in-memory store, runs
// queries, and drives the persistence layer.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/internal/paths"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// session is what PersistentPreRunE prepares for subcommands.
type session struct {
	settings *settings
	dataDir  string
	log      *zap.SugaredLogger
}

var current = session{log: logging.Nop()}

// NewRootCmd creates the top-level "thingstore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "thingstore",
		Short: "A schema-driven in-memory entity store",
		Long: "thingstore loads entity schemas, seeds instances into an in-memory store,\n" +
			"queries them with filter and sort expressions, and saves or loads single\n" +
			"records through the configured persistence strategy.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: prepareSession,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.thingstore-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newPersistCmd())

	return root
}

// prepareSession resolves directories, reads config.yaml and builds the
// logger.
func prepareSession(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return errors.Wrap(err, "resolve config dir")
	}
	s, err := loadSettings(configDir)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, s.DataDir)
	if err != nil {
		return errors.Wrap(err, "resolve data dir")
	}
	if flags.verbose {
		s.Log.Level = "debug"
	}
	log, err := logging.New(s.Log)
	if err != nil {
		return errors.Wrap(err, "build logger")
	}

	current = session{settings: s, dataDir: dataDir, log: log}
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	_ = current.log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// userErrors are caller mistakes; anything else is a system failure.
var userErrors = []error{
	types.ErrSchemaDefinition,
	types.ErrUnknownEntity,
	types.ErrUnknownField,
	types.ErrUnknownRelationship,
	types.ErrNotFound,
	types.ErrNoPrimaryKey,
	types.ErrInvalidFieldValue,
	types.ErrMissingField,
	types.ErrReadOnlyField,
	types.ErrDuplicateKey,
	types.ErrUnsupportedFilterOperator,
	types.ErrIncomparable,
	types.ErrStrategyUnknown,
	types.ErrLocalDirEmpty,
	types.ErrLocalEngineUnknown,
	errUsage,
	errPersistence,
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.IsAny(err, userErrors...) {
		return exitUserError
	}
	return exitSysError
}

// CLI-level errors.
var (
	errUsage       = errors.New("usage error")
	errPersistence = errors.New("persistence call did not succeed")
)
