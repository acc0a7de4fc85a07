package commands

import (
	"github.com/spf13/cobra"

	"github.com/danmuck/relayctl/internal/client"
	"github.com/danmuck/relayctl/internal/logging"
)

var (
	configPath string
	serverAddr string
	fqdnName   string
	attempts   int
	timeout    string
	insecure   bool
	caFile     string
	useTLS     bool

	clientCfg client.Config
)

func Execute() error {
	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Fetch relay-held record sets by FQDN",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			cfg, err := buildClientConfig(cmd)
			if err != nil {
				return err
			}
			clientCfg = cfg
			return nil
		},
	}

	addRootFlags(root)
	root.AddCommand(indexCmd())
	return root.Execute()
}

func addRootFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to relayctl config file (TOML)")
	root.PersistentFlags().StringVar(&serverAddr, "server", "", "relay endpoint as host:port")
	root.PersistentFlags().StringVar(&fqdnName, "fqdn", "", "name to fetch records for")
	root.PersistentFlags().IntVar(&attempts, "attempts", 0, "total attempt budget per fetch")
	root.PersistentFlags().StringVar(&timeout, "timeout", "", "per-exchange timeout (e.g. 10s)")
	root.PersistentFlags().BoolVar(&useTLS, "tls", false, "wrap the relay connection in TLS")
	root.PersistentFlags().BoolVar(&insecure, "insecure-tls", false, "skip TLS certificate verification")
	root.PersistentFlags().StringVar(&caFile, "ca", "", "CA bundle for verifying the relay certificate")
}
