package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/relayctl/internal/client"
	"github.com/danmuck/relayctl/internal/relay"
)

// index: fetch the validated record set a relay holds for an FQDN.
func indexCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "index [fqdn]",
		Short: "Fetch the record set the relay holds for an FQDN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverAddr == "" {
				return fmt.Errorf("--server required (host:port)")
			}
			addr, err := relay.ParseAddress(serverAddr)
			if err != nil {
				return err
			}
			fqdn, err := resolveFQDN(fqdnName, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			records, err := client.New(clientCfg).Index(ctx, addr, fqdn)
			if err != nil {
				return err
			}
			return printRecords(cmd, fqdn, records, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit records as JSON")
	return cmd
}

// resolveFQDN accepts the name from --fqdn or as the positional argument;
// both at once must agree.
func resolveFQDN(flagValue string, args []string) (relay.FQDN, error) {
	if flagValue == "" && len(args) == 0 {
		return relay.FQDN{}, fmt.Errorf("fqdn required (--fqdn or positional)")
	}
	if flagValue != "" && len(args) > 0 && flagValue != args[0] {
		return relay.FQDN{}, fmt.Errorf("conflicting fqdn: --fqdn %q vs argument %q", flagValue, args[0])
	}
	name := flagValue
	if name == "" {
		name = args[0]
	}
	return relay.ParseFQDN(name)
}

func printRecords(cmd *cobra.Command, fqdn relay.FQDN, records []relay.Record, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			FQDN    string         `json:"fqdn"`
			Records []relay.Record `json:"records"`
		}{FQDN: fqdn.String(), Records: records})
	}

	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no records\n", fqdn)
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.Key, rec.Value)
	}
	return nil
}
