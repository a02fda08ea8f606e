package types

import (
	"strings"

	"github.com/mesh-intelligence/thingstore/internal/errors"
)

// Strategy selects where persistence calls are routed.
type Strategy string

// Persistence strategies.
const (
	StrategyNone  Strategy = "none"
	StrategyLocal Strategy = "local"
	StrategyCloud Strategy = "cloud"
)

// Local storage engines for StrategyLocal.
const (
	EngineFile   = "file"
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
)

// ParseStrategy maps a strategy name, in any case, to its Strategy. The
// empty string maps to StrategyNone.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return StrategyNone, nil
	}
	if !knownStrategies[s] {
		return "", errors.Wrapf(ErrStrategyUnknown, "strategy %q", name)
	}
	return s, nil
}

// PersistenceConfig is passed explicitly to the persistence layer; nothing
// is read from the environment.
type PersistenceConfig struct {
	Strategy Strategy    `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Local    LocalConfig `json:"local" yaml:"local" mapstructure:"local"`
	Cloud    CloudConfig `json:"cloud" yaml:"cloud" mapstructure:"cloud"`
}

// LocalConfig configures the file-based backends.
type LocalConfig struct {
	Dir    string `json:"dir" yaml:"dir" mapstructure:"dir"`
	Engine string `json:"engine" yaml:"engine" mapstructure:"engine"`
}

// GetEngine returns the engine, defaulting to EngineFile.
func (c LocalConfig) GetEngine() string {
	if c.Engine == "" {
		return EngineFile
	}
	return c.Engine
}

// CloudConfig configures the object-storage backend. Save and load are
// disabled until explicitly allowed.
type CloudConfig struct {
	Bucket    string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	Region    string `json:"region" yaml:"region" mapstructure:"region"`
	Prefix    string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	Endpoint  string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	AllowSave bool   `json:"allow_save" yaml:"allow_save" mapstructure:"allow_save"`
	AllowLoad bool   `json:"allow_load" yaml:"allow_load" mapstructure:"allow_load"`
}

// Config validation errors.
var (
	ErrStrategyUnknown    = errors.New("unknown persistence strategy")
	ErrLocalDirEmpty      = errors.New("local persistence directory must not be empty")
	ErrLocalEngineUnknown = errors.New("unknown local persistence engine")
)

// knownStrategies lists the strategies that Validate accepts.
var knownStrategies = map[Strategy]bool{
	StrategyNone:  true,
	StrategyLocal: true,
	StrategyCloud: true,
}

// knownEngines lists the local engines that Validate accepts.
var knownEngines = map[string]bool{
	EngineFile:   true,
	EngineSQLite: true,
	EngineBadger: true,
}

// GetStrategy returns the strategy, defaulting to StrategyNone.
func (c PersistenceConfig) GetStrategy() Strategy {
	if c.Strategy == "" {
		return StrategyNone
	}
	return c.Strategy
}

// Validate checks that the config is well-formed and returns a sentinel
// from this package on failure. A cloud config without a bucket is valid
// here; the layer degrades to no persistence when the backend cannot start.
func (c PersistenceConfig) Validate() error {
	s := c.GetStrategy()
	if !knownStrategies[s] {
		return ErrStrategyUnknown
	}
	if s != StrategyLocal {
		return nil
	}
	if c.Local.Dir == "" {
		return ErrLocalDirEmpty
	}
	if !knownEngines[c.Local.GetEngine()] {
		return ErrLocalEngineUnknown
	}
	return nil
}
