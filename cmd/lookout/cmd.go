package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cboone/lookout"
	"github.com/cboone/lookout/chromedpdriver"
)

// opener starts a browser session on url. release ends it.
type opener func(ctx context.Context, url string) (s lookout.Session, release func(), err error)

type app struct {
	open   opener
	logger func(verbose bool) (*zap.Logger, error)
}

func defaultApp() *app {
	return &app{open: openChrome, logger: newLogger}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.Encoding = "console"
	return cfg.Build()
}

// openChrome launches a headless Chrome through chromedp and loads url.
func openChrome(ctx context.Context, url string) (lookout.Session, func(), error) {
	actx, acancel := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	tab, tcancel := chromedp.NewContext(actx)
	release := func() {
		tcancel()
		acancel()
	}
	s, err := chromedpdriver.New(tab)
	if err != nil {
		release()
		return nil, nil, err
	}
	if err := s.Navigate(ctx, url); err != nil {
		release()
		return nil, nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	return s, release, nil
}

// flags shared by every subcommand.
type target struct {
	url        string
	css        string
	xpath      string
	timeout    time.Duration
	configPath string
	verbose    bool
}

func (t *target) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&t.url, "url", "", "page to open")
	f.StringVar(&t.css, "css", "", "CSS selector")
	f.StringVar(&t.xpath, "xpath", "", "XPath selector")
	f.DurationVar(&t.timeout, "timeout", 0, "override the wait timeout")
	f.StringVar(&t.configPath, "config", "", "YAML config file")
	f.BoolVarP(&t.verbose, "verbose", "v", false, "log every step")
	_ = cmd.MarkFlagRequired("url")
	cmd.MarkFlagsMutuallyExclusive("css", "xpath")
	cmd.MarkFlagsOneRequired("css", "xpath")
}

func (t *target) selector() lookout.Selector {
	if t.xpath != "" {
		return lookout.XPath(t.xpath)
	}
	return lookout.CSS(t.css)
}

// page opens the browser and builds a strict page over it.
func (a *app) page(ctx context.Context, t *target) (*lookout.Page, func(), error) {
	var opts []lookout.Option
	if t.configPath != "" {
		cfg, err := lookout.LoadConfig(t.configPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, lookout.WithConfig(cfg))
	}
	if t.timeout > 0 {
		opts = append(opts, lookout.WithTimeout(t.timeout), lookout.WithCollectionsTimeout(t.timeout))
	}
	logger, err := a.logger(t.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	opts = append(opts, lookout.WithLogger(logger), lookout.WithAssertionMode(lookout.Strict))

	s, release, err := a.open(ctx, t.url)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return lookout.New(s, opts...), func() {
		release()
		_ = logger.Sync()
	}, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lookout",
		Short:         "Wait for conditions on a live web page",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newWaitCmd(a), newCountCmd(a))
	return root
}

func newWaitCmd(a *app) *cobra.Command {
	var (
		t        target
		text     string
		exact    bool
		visible  bool
		hidden   bool
		attr     string
		attrWant string
	)
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until an element matches every given condition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conds, err := elementConditions(text, exact, visible, hidden, attr, attrWant)
			if err != nil {
				return err
			}
			page, done, err := a.page(cmd.Context(), &t)
			if err != nil {
				return err
			}
			defer done()

			el := page.Element(t.selector())
			if err := el.Should(cmd.Context(), conds...); err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), "%s: %s\n", el, describe(conds))
		},
	}
	t.register(cmd)
	f := cmd.Flags()
	f.StringVar(&text, "text", "", "expected text (substring, case-insensitive)")
	f.BoolVar(&exact, "exact", false, "require --text to match the whole text")
	f.BoolVar(&visible, "visible", false, "require the element to be visible")
	f.BoolVar(&hidden, "hidden", false, "require the element to be hidden or missing")
	f.StringVar(&attr, "attr", "", "require an attribute")
	f.StringVar(&attrWant, "attr-value", "", "expected value of --attr")
	cmd.MarkFlagsMutuallyExclusive("visible", "hidden")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var (
		t     target
		size  int
		texts []string
	)
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Wait until a collection has the given size or texts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var conds []lookout.CollectionCondition
			if cmd.Flags().Changed("size") {
				conds = append(conds, lookout.Size(size))
			}
			if len(texts) > 0 {
				conds = append(conds, lookout.Texts(texts...))
			}
			if len(conds) == 0 {
				return errors.New("count: give --size or --texts")
			}
			page, done, err := a.page(cmd.Context(), &t)
			if err != nil {
				return err
			}
			defer done()

			c := page.Elements(t.selector())
			if err := c.Should(cmd.Context(), conds...); err != nil {
				return err
			}
			n, err := c.Size(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), "%s: %d elements\n", c, n)
		},
	}
	t.register(cmd)
	f := cmd.Flags()
	f.IntVar(&size, "size", 0, "expected number of elements")
	f.StringSliceVar(&texts, "texts", nil, "expected texts, in order")
	return cmd
}

func elementConditions(text string, exact, visible, hidden bool, attr, attrWant string) ([]lookout.Condition, error) {
	var conds []lookout.Condition
	switch {
	case visible:
		conds = append(conds, lookout.Visible)
	case hidden:
		conds = append(conds, lookout.Hidden)
	}
	if text != "" {
		if exact {
			conds = append(conds, lookout.ExactText(text))
		} else {
			conds = append(conds, lookout.Text(text))
		}
	}
	if attrWant != "" && attr == "" {
		return nil, errors.New("wait: --attr-value needs --attr")
	}
	if attr != "" {
		if attrWant != "" {
			conds = append(conds, lookout.AttributeValue(attr, attrWant))
		} else {
			conds = append(conds, lookout.Attribute(attr))
		}
	}
	if len(conds) == 0 {
		conds = append(conds, lookout.Exist)
	}
	return conds, nil
}

func describe(conds []lookout.Condition) string {
	if len(conds) == 1 {
		return conds[0].String()
	}
	return lookout.And(conds...).String()
}

func report(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
