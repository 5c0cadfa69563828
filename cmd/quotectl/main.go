// Command quotectl drives the motor quote flow from a terminal. It runs the
// same engine and service the HTTP server uses, in-process, over an
// in-memory store and the mock providers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	catalogPath string
	logLevel    string
	jsonOutput  bool

	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Quote and bind motor insurance from the command line",
		Long: `quotectl runs the motor quote conversation locally.

Use "chat" for an interactive session that ends in a bound policy, or
"premium" to price a set of answers without a conversation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.logger = observability.NewLogger(opts.logLevel)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog to use instead of the built-in one")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print machine-readable JSON")

	root.AddCommand(newChatCmd(opts), newPremiumCmd(opts), newCatalogCmd(opts))
	return root
}

// engine builds an engine over the selected catalog.
func (o *options) engine() (*engine.Engine, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if o.catalogPath == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(o.catalogPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return engine.New(cat, o.logger), nil
}
