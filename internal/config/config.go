// Package config loads the optional workspace-local exclude
// configuration described in spec §4.1's "configured excludes": a
// `.gabb/config.hcl` file naming extra directories and globs to skip
// during indexing, beyond the hardcoded defaults. Grounded on
// agentic-research-mache's use of hashicorp/hcl/v2 for structured
// config, since the teacher itself has no configuration file of its
// own (canopy is driven entirely by CLI flags).
package config

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the decoded shape of .gabb/config.hcl.
type Config struct {
	ExcludeDirs  []string `hcl:"exclude_dirs,optional"`
	ExcludeGlobs []string `hcl:"exclude_globs,optional"`
}

// Load reads <workspaceRoot>/.gabb/config.hcl if present. A missing file
// is not an error: it returns a zero-value Config, meaning "no extra
// excludes beyond the defaults".
func Load(workspaceRoot string) (*Config, error) {
	path := filepath.Join(workspaceRoot, ".gabb", "config.hcl")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExcludesDir reports whether name (a bare directory name, not a path)
// is excluded by this config.
func (c *Config) ExcludesDir(name string) bool {
	if c == nil {
		return false
	}
	for _, d := range c.ExcludeDirs {
		if d == name {
			return true
		}
	}
	return false
}
