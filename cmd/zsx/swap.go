package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roryl/zsx/css"
	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/html"
	"github.com/roryl/zsx/js"
	"github.com/roryl/zsx/network"
	"github.com/roryl/zsx/observability"
	"github.com/roryl/zsx/storage"
	"github.com/roryl/zsx/zsx"
)

type swapOptions struct {
	click     string
	submit    string
	submitter string
	set       []string
	print     []string
}

func newSwapCmd() *cobra.Command {
	var o swapOptions

	cmd := &cobra.Command{
		Use:   "swap <url>",
		Short: "Load a page, fire one trigger and print the swapped result",
		Example: `  zsx swap http://127.0.0.1:8080/ --click '#to-about' --print '#main'
  zsx swap http://127.0.0.1:8080/ --submit '#echo' --set '#msg=hi' --submitter '#send'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwap(cmd, args[0], o)
		},
	}
	cmd.Flags().StringVar(&o.click, "click", "", "selector of the link to click")
	cmd.Flags().StringVar(&o.submit, "submit", "", "selector of the form to submit")
	cmd.Flags().StringVar(&o.submitter, "submitter", "", "selector of the submit button")
	cmd.Flags().StringArrayVar(&o.set, "set", nil, "selector=value assigned before submitting (repeatable)")
	cmd.Flags().StringArrayVar(&o.print, "print", nil, "selector whose outer HTML is printed (repeatable, default whole document)")
	return cmd
}

func runSwap(cmd *cobra.Command, pageURL string, o swapOptions) error {
	if (o.click == "") == (o.submit == "") {
		return errors.New("exactly one of --click and --submit is required")
	}
	cfg := configFrom(cmd)
	logger := observability.GetLogger()
	ctx := cmd.Context()

	jar, err := network.NewCookieJar()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, jar, logger)
	if err != nil {
		return err
	}
	resp, err := client.Get(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("load %s: %w", pageURL, err)
	}
	if !resp.OK() {
		return fmt.Errorf("load %s: status %d", pageURL, resp.StatusCode)
	}
	doc, err := html.ParseResponse(bytes.NewReader(resp.Body), resp.ContentType, resp.URL.String())
	if err != nil {
		return fmt.Errorf("parse %s: %w", pageURL, err)
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	cookies, err := js.NewDocumentCookies(jar, doc.URL())
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		navErrs []error
	)
	e, err := zsx.New(doc,
		zsx.WithConfig(cfg),
		zsx.WithLogger(logger),
		zsx.WithFetcher(client),
		zsx.WithCookies(cookies),
		zsx.WithStorage(storage.NewArea(store, originOf(resp.URL))),
		zsx.WithErrorHandler(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			navErrs = append(navErrs, err)
		}),
	)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.Init(ctx); err != nil {
		return err
	}

	if err := fire(doc, o); err != nil {
		return err
	}
	e.Wait()

	mu.Lock()
	err = errors.Join(navErrs...)
	mu.Unlock()
	if err != nil {
		return err
	}
	logger.Info("swap finished", zap.String("url", doc.URL()))
	return printSelected(cmd, doc, o.print)
}

// fire clicks or submits the element named by o.
func fire(doc *dom.Document, o swapOptions) error {
	if o.click != "" {
		el, err := findOne(doc, o.click)
		if err != nil {
			return err
		}
		el.Click()
		return nil
	}

	for _, kv := range o.set {
		sel, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set %q: want selector=value", kv)
		}
		field, err := findOne(doc, sel)
		if err != nil {
			return err
		}
		field.SetValue(value)
	}
	form, err := findOne(doc, o.submit)
	if err != nil {
		return err
	}
	var submitter *dom.Element
	if o.submitter != "" {
		if submitter, err = findOne(doc, o.submitter); err != nil {
			return err
		}
	}
	form.RequestSubmit(submitter)
	return nil
}

func findOne(doc *dom.Document, selector string) (*dom.Element, error) {
	el, err := css.Query(doc.AsNode(), selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	if el == nil {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return el, nil
}

func printSelected(cmd *cobra.Command, doc *dom.Document, selectors []string) error {
	out := cmd.OutOrStdout()
	if len(selectors) == 0 {
		if root := doc.DocumentElement(); root != nil {
			fmt.Fprintln(out, root.OuterHTML())
		}
		return nil
	}
	for _, sel := range selectors {
		els, err := css.QueryAll(doc.AsNode(), sel)
		if err != nil {
			return fmt.Errorf("selector %q: %w", sel, err)
		}
		for _, el := range els {
			fmt.Fprintln(out, el.OuterHTML())
		}
	}
	return nil
}

func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
