package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/relayctl/internal/config"
	"github.com/danmuck/relayctl/internal/logging"
	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/relay"
	"github.com/danmuck/relayctl/internal/relayd"
)

func main() {
	configPath := flag.String("config", "", "path to relayd config file (TOML)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "relayd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logging.InitLogger(cfg.Node)
	observability.RegisterMetrics()

	store := relayd.NewStore()
	if err := seedStore(store, cfg.Records); err != nil {
		return err
	}

	if cfg.AdminListen != "" {
		admin := relayd.NewAdmin(cfg.Node, store, cfg.CORSOrigins)
		go func() {
			if err := admin.Serve(cfg.AdminListen); err != nil {
				log.Error().Err(err).Str("addr", cfg.AdminListen).Msg("admin listener failed")
			}
		}()
	}

	srv := relayd.NewServer(cfg.Node, store, relayd.ServerConfig{
		IdleTimeout: cfg.IdleTimeout.Std(),
	})
	return srv.ListenAndServe(cfg.Listen)
}

func seedStore(store *relayd.Store, sets []config.RecordSet) error {
	for _, set := range sets {
		fqdn, err := relay.ParseFQDN(set.FQDN)
		if err != nil {
			return fmt.Errorf("seed %q: %w", set.FQDN, err)
		}
		records := make([]relay.Record, 0, len(set.Entries))
		for _, entry := range set.Entries {
			rec := relay.Record{Key: entry.Key, Value: []byte(entry.Value)}
			if entry.Sign {
				rec = relayd.SignRecord(rec)
			}
			records = append(records, rec)
		}
		store.Put(fqdn, records)
		log.Info().Str("fqdn", fqdn.String()).Int("records", len(records)).Msg("store seeded")
	}
	return nil
}
