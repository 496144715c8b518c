package redis

import (
	"fmt"
)

// DefaultPrefix namespaces every key written by the session tool.
const DefaultPrefix = "t8n-repl:"

type Config struct {
	// Address is host:port or a redis:// URL.
	Address string `yaml:"address"`
	Prefix  string `yaml:"prefix"`
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}

	return nil
}
