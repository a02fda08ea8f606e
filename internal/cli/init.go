package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/paths"
	"github.com/mesh-intelligence/thingstore/internal/persistence"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

type initFlags struct {
	strategy string
	engine   string
	bucket   string
}

func newInitCmd() *cobra.Command {
	var f initFlags
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and data directories",
		Long: "Create the configuration and data directories, record the chosen persistence\n" +
			"strategy in config.yaml, and check that its backend starts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "persistence strategy to record: none, local or cloud")
	cmd.Flags().StringVar(&f.engine, "engine", "", "local engine to record: file, sqlite or badger")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "cloud bucket to record")
	return cmd
}

func runInit(cmd *cobra.Command, f initFlags) error {
	s := *current.settings
	changed := false
	if f.strategy != "" {
		strategy, err := types.ParseStrategy(f.strategy)
		if err != nil {
			return err
		}
		s.Persistence.Strategy = strategy
		changed = true
	}
	if f.engine != "" {
		s.Persistence.Local.Engine = f.engine
		changed = true
	}
	if f.bucket != "" {
		s.Persistence.Cloud.Bucket = f.bucket
		changed = true
	}

	if err := os.MkdirAll(current.dataDir, 0o755); err != nil {
		return errors.Wrap(err, "create data directory")
	}
	if changed {
		configDir, err := paths.ResolveConfigDir(flags.configDir)
		if err != nil {
			return err
		}
		if err := writeConfig(filepath.Join(configDir, configFileExt), s); err != nil {
			return err
		}
	}

	cfg, err := persistenceConfig(s)
	if err != nil {
		return err
	}
	layer, err := persistence.New(cmd.Context(), cfg, persistence.WithLogger(current.log))
	if err != nil {
		return err
	}
	defer layer.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "thingstore initialized (data dir %s, persistence %s, auto-persist %t)\n",
		current.dataDir, cfg.GetStrategy(), layer.WillAutoPersist())
	return nil
}

// writeConfig replaces config.yaml with s.
func writeConfig(path string, s settings) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return os.WriteFile(path, data, 0o644)
}

// persistenceConfig fills in the local directory from the data directory.
func persistenceConfig(s settings) (types.PersistenceConfig, error) {
	cfg := s.Persistence
	if cfg.GetStrategy() == types.StrategyLocal {
		dir, err := paths.ResolveRecordsDir(current.dataDir, cfg.Local.Dir)
		if err != nil {
			return cfg, err
		}
		cfg.Local.Dir = dir
	}
	return cfg, cfg.Validate()
}
