package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "THINGSTORE"
)

// Config keys.
const (
	cfgKeyDataDir        = "data_dir"
	cfgKeyStrategy       = "persistence.strategy"
	cfgKeyLocalDir       = "persistence.local.dir"
	cfgKeyLocalEngine    = "persistence.local.engine"
	cfgKeyCloudBucket    = "persistence.cloud.bucket"
	cfgKeyCloudRegion    = "persistence.cloud.region"
	cfgKeyCloudPrefix    = "persistence.cloud.prefix"
	cfgKeyCloudEndpoint  = "persistence.cloud.endpoint"
	cfgKeyCloudAllowSave = "persistence.cloud.allow_save"
	cfgKeyCloudAllowLoad = "persistence.cloud.allow_load"
	cfgKeyLogJSON        = "log.json"
	cfgKeyLogLevel       = "log.level"
)

// settings is config.yaml after defaults and THINGSTORE_* overrides.
type settings struct {
	DataDir     string                  `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	Persistence types.PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	Log         logging.Config          `mapstructure:"log" yaml:"log"`
}

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# thingstore configuration

# Data directory (optional; overridable by --data-dir)
# data_dir:

persistence:
  # none, local or cloud
  strategy: none
  local:
    # defaults to <data_dir>/records
    # dir:
    # file, sqlite or badger
    engine: file
  cloud:
    bucket: ""
    region: ""
    prefix: ""
    endpoint: ""
    allow_save: false
    allow_load: false

log:
  json: false
  level: info
`

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run. THINGSTORE_* environment
// variables override file values (THINGSTORE_PERSISTENCE_STRATEGY, ...).
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "ensure config dir")
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, errors.Wrap(err, "ensure default config")
	}

	v := viper.New()
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyStrategy, string(types.StrategyNone))
	v.SetDefault(cfgKeyLocalDir, "")
	v.SetDefault(cfgKeyLocalEngine, types.EngineFile)
	v.SetDefault(cfgKeyCloudBucket, "")
	v.SetDefault(cfgKeyCloudRegion, "")
	v.SetDefault(cfgKeyCloudPrefix, "")
	v.SetDefault(cfgKeyCloudEndpoint, "")
	v.SetDefault(cfgKeyCloudAllowSave, false)
	v.SetDefault(cfgKeyCloudAllowLoad, false)
	v.SetDefault(cfgKeyLogJSON, false)
	v.SetDefault(cfgKeyLogLevel, "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	return v, nil
}

// loadSettings decodes the config into settings and normalizes the
// strategy name.
func loadSettings(configDir string) (*settings, error) {
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	strategy, err := types.ParseStrategy(string(s.Persistence.Strategy))
	if err != nil {
		return nil, err
	}
	s.Persistence.Strategy = strategy
	return &s, nil
}

// ensureDefaultConfigFile creates config.yaml if it does not exist.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat config file")
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
