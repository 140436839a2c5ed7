package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML override file. It only carries routing
// tables; credentials and tuning stay in the environment.
type fileConfig struct {
	// Priorities maps tool names to ordered provider tag lists.
	Priorities map[string][]string `yaml:"priorities"`

	// Markets maps market tags to provider coverage lists.
	Markets map[string][]string `yaml:"markets"`
}

// applyFile merges the YAML file into the routing maps. Environment
// variables applied afterwards override these values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	for tool, list := range fc.Priorities {
		c.SourcePriorities[toolKey(tool)] = list
	}
	for mkt, list := range fc.Markets {
		c.MarketSources[marketKey(mkt)] = list
	}
	return nil
}
