package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/roryl/zsx/fixture"
	"github.com/roryl/zsx/observability"
)

func newServeCmd() *cobra.Command {
	var addr, manifest string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fixture site until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if cmd.Flags().Changed("addr") {
				cfg.Fixture.Addr = addr
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Fixture.Manifest = manifest
			}

			m, err := fixture.LoadManifest(cfg.Fixture.Manifest)
			if err != nil {
				return err
			}
			site, err := fixture.NewSite(m, fixture.WithSiteLogger(observability.GetLogger()))
			if err != nil {
				return err
			}
			return site.Serve(cmd.Context(), cfg.Fixture.Addr, func(a net.Addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "serving %q on http://%s\n", m.Title, a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides fixture.addr)")
	cmd.Flags().StringVar(&manifest, "manifest", "", "site manifest (overrides fixture.manifest)")
	return cmd
}
