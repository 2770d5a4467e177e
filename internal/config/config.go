package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ClientCaching is a build-time kill switch, overridable with
//
//	-ldflags "-X .../internal/config.ClientCaching=disabled"
//
// so CI and test builds can run against a caching layer that never touches
// disk. Anything other than "disabled" leaves caching on.
var ClientCaching = "enabled"

// Config is the persisted ~/.occache/config.toml.
type Config struct {
	// DataDir overrides where cache databases and logs live.
	DataDir string `toml:"data_dir"`
	// Principal is the default principal for tooling that is not told one.
	Principal string `toml:"principal"`
	// NoCache disables all caching for this profile. Reads become total
	// misses and writes no-ops; the app just runs straight off the network.
	NoCache bool `toml:"no_cache"`
}

// Load reads config from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// CachingDisabled resolves the two kill switches: the persisted per-profile
// flag and the build-time flag.
func (c *Config) CachingDisabled() bool {
	return c.NoCache || ClientCaching == "disabled"
}
