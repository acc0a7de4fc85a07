package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/danmuck/relayctl/internal/client"
	"github.com/danmuck/relayctl/internal/session"
)

// fileConfig is the optional relayctl config file. Flags on the command line
// win over anything set here.
type fileConfig struct {
	Server      string `toml:"server"`
	Attempts    int    `toml:"attempts"`
	Timeout     string `toml:"timeout"`
	TLS         bool   `toml:"tls"`
	InsecureTLS bool   `toml:"insecure_tls"`
	CAFile      string `toml:"ca_file"`

	AllowDuplicateKeys bool `toml:"allow_duplicate_keys"`
}

// buildClientConfig layers defaults, then the config file, then flags.
func buildClientConfig(cmd *cobra.Command) (client.Config, error) {
	cfg := client.Config{
		Session: session.DefaultConfig(),
		Retry:   client.DefaultRetryPolicy(),
	}

	if configPath != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(configPath, &raw)
		if err != nil {
			return client.Config{}, fmt.Errorf("load config: %w", err)
		}

		if meta.IsDefined("server") && serverAddr == "" {
			serverAddr = strings.TrimSpace(raw.Server)
		}
		if meta.IsDefined("attempts") && raw.Attempts > 0 {
			cfg.Retry.MaxAttempts = raw.Attempts
		}
		if meta.IsDefined("timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
			if err != nil {
				return client.Config{}, fmt.Errorf("parse timeout: %w", err)
			}
			cfg.Session.ReadTimeout = d
			cfg.Session.WriteTimeout = d
		}
		if meta.IsDefined("tls") {
			cfg.Session.TLS.Enabled = raw.TLS
		}
		if meta.IsDefined("insecure_tls") {
			cfg.Session.TLS.InsecureSkipVerify = raw.InsecureTLS
		}
		if meta.IsDefined("ca_file") {
			cfg.Session.TLS.CAFile = strings.TrimSpace(raw.CAFile)
		}
		if meta.IsDefined("allow_duplicate_keys") {
			cfg.Validate.AllowDuplicateKeys = raw.AllowDuplicateKeys
		}
	}

	if cmd.Flags().Changed("attempts") && attempts > 0 {
		cfg.Retry.MaxAttempts = attempts
	}
	if cmd.Flags().Changed("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(timeout))
		if err != nil {
			return client.Config{}, fmt.Errorf("parse --timeout: %w", err)
		}
		cfg.Session.ReadTimeout = d
		cfg.Session.WriteTimeout = d
	}
	if cmd.Flags().Changed("tls") {
		cfg.Session.TLS.Enabled = useTLS
	}
	if cmd.Flags().Changed("insecure-tls") {
		cfg.Session.TLS.InsecureSkipVerify = insecure
	}
	if cmd.Flags().Changed("ca") {
		cfg.Session.TLS.CAFile = strings.TrimSpace(caFile)
	}
	if cfg.Session.TLS.InsecureSkipVerify {
		cfg.Session.SecurityMode = session.SecurityModeDevelopment
	}

	return cfg, nil
}
