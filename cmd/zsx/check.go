package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/roryl/zsx/fixture"
	"github.com/roryl/zsx/observability"
	"github.com/roryl/zsx/zsx"
)

type checkOptions struct {
	baseURL   string
	manifest  string
	scenarios []string
	timeout   time.Duration
	json      bool
}

func newCheckCmd() *cobra.Command {
	var o checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run manifest scenarios and report which pass",
		Long: `Runs the scenarios of the site manifest. Without --base-url the
manifest's own site is served on a loopback port for the duration of the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.baseURL, "base-url", "", "site to run against (default serves the manifest in process)")
	cmd.Flags().StringVar(&o.manifest, "manifest", "", "site manifest (overrides fixture.manifest)")
	cmd.Flags().StringArrayVar(&o.scenarios, "scenario", nil, "run only the named scenario (repeatable)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Second, "per-scenario timeout")
	cmd.Flags().BoolVar(&o.json, "json", false, "print results as JSON")
	return cmd
}

func runCheck(cmd *cobra.Command, o checkOptions) error {
	cfg := configFrom(cmd)
	logger := observability.GetLogger()
	if cmd.Flags().Changed("manifest") {
		cfg.Fixture.Manifest = o.manifest
	}
	m, err := fixture.LoadManifest(cfg.Fixture.Manifest)
	if err != nil {
		return err
	}
	scenarios, err := selectScenarios(m, o.scenarios)
	if err != nil {
		return err
	}

	baseURL := o.baseURL
	if baseURL == "" {
		site, err := fixture.NewSite(m, fixture.WithSiteLogger(logger))
		if err != nil {
			return err
		}
		addr, stop, err := serveLoopback(cmd.Context(), site)
		if err != nil {
			return err
		}
		defer stop()
		baseURL = "http://" + addr.String()
	}

	runner := fixture.NewRunner(baseURL,
		fixture.WithRunnerLogger(logger),
		fixture.WithClientOptions(clientOptions(cfg)...),
		fixture.WithEngineOptions(zsx.WithConfig(cfg)),
	)
	runner.Timeout = o.timeout

	out := cmd.OutOrStdout()
	for _, sc := range scenarios {
		res := runner.Run(cmd.Context(), sc)
		if !o.json {
			printResult(cmd, res)
		}
	}

	passed, failed, skipped := runner.Summary()
	if o.json {
		data, err := runner.ExportJSON()
		if err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintf(out, "\nSummary: %d passed, %d failed, %d skipped\n", passed, failed, skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}

func selectScenarios(m *fixture.Manifest, names []string) ([]fixture.Scenario, error) {
	if len(names) == 0 {
		return m.Scenarios, nil
	}
	out := make([]fixture.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := m.Scenario(name)
		if !ok {
			return nil, fmt.Errorf("no scenario named %q", name)
		}
		out = append(out, sc)
	}
	return out, nil
}

// serveLoopback serves site on an ephemeral loopback port. stop shuts it
// down and waits for it to exit.
func serveLoopback(ctx context.Context, site *fixture.Site) (net.Addr, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	ready := make(chan net.Addr, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- site.Serve(ctx, "127.0.0.1:0", func(a net.Addr) { ready <- a })
	}()

	select {
	case addr := <-ready:
		return addr, func() {
			cancel()
			<-errc
		}, nil
	case err := <-errc:
		cancel()
		return nil, nil, err
	}
}

func printResult(cmd *cobra.Command, res fixture.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s (%s, %.2fs)\n", res.Scenario, res.Status, res.Duration.Seconds())
	if res.Error != "" {
		fmt.Fprintf(out, "  ERROR: %s\n", res.Error)
	}
	for _, st := range res.Steps {
		fmt.Fprintf(out, "  %s %s\n", statusSymbol(st.Status), st.Action)
		if st.Message != "" && st.Status != fixture.StatusPass {
			fmt.Fprintf(out, "      %s\n", st.Message)
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  navigation error: %s\n", e)
	}
}

func statusSymbol(status fixture.Status) string {
	switch status {
	case fixture.StatusPass:
		return "✓"
	case fixture.StatusFail:
		return "✗"
	case fixture.StatusTimeout:
		return "⏱"
	case fixture.StatusError:
		return "!"
	case fixture.StatusSkip:
		return "-"
	default:
		return "?"
	}
}
