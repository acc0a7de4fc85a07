// Package config loads relayd configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/danmuck/relayctl/internal/relay"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Duration parses TOML strings like "30s" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Entry is one seeded record. Sign attaches the digest clients verify.
type Entry struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
	Sign  bool   `toml:"sign"`
}

// RecordSet seeds the store for one FQDN at startup.
type RecordSet struct {
	FQDN    string  `toml:"fqdn"`
	Entries []Entry `toml:"entries"`
}

// Relayd is the full relayd configuration.
type Relayd struct {
	Node        string      `toml:"node"`
	Listen      string      `toml:"listen"`
	AdminListen string      `toml:"admin_listen"`
	CORSOrigins []string    `toml:"cors_origins"`
	IdleTimeout Duration    `toml:"idle_timeout"`
	Records     []RecordSet `toml:"records"`
}

// Default returns a runnable development configuration.
func Default() Relayd {
	return Relayd{
		Node:        "relayd",
		Listen:      "127.0.0.1:4150",
		AdminListen: "127.0.0.1:4151",
		IdleTimeout: Duration(30 * time.Second),
	}
}

// Load reads path and layers it over Default.
func Load(path string) (Relayd, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Relayd{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Relayd{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Relayd{}, err
	}
	return cfg, nil
}

// Validate checks the configuration before the relay starts.
func (c Relayd) Validate() error {
	if c.Node == "" {
		return fmt.Errorf("%w: node must be set", ErrInvalidConfig)
	}
	if _, err := relay.ParseAddress(c.Listen); err != nil {
		return fmt.Errorf("%w: listen: %v", ErrInvalidConfig, err)
	}
	if c.AdminListen != "" {
		if _, err := relay.ParseAddress(c.AdminListen); err != nil {
			return fmt.Errorf("%w: admin_listen: %v", ErrInvalidConfig, err)
		}
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("%w: idle_timeout must not be negative", ErrInvalidConfig)
	}
	for _, set := range c.Records {
		if _, err := relay.ParseFQDN(set.FQDN); err != nil {
			return fmt.Errorf("%w: records fqdn %q: %v", ErrInvalidConfig, set.FQDN, err)
		}
		for _, entry := range set.Entries {
			if entry.Key == "" {
				return fmt.Errorf("%w: records for %q: entry missing key", ErrInvalidConfig, set.FQDN)
			}
		}
	}
	return nil
}
