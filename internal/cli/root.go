// Package cli is the research command line: list sources, run one
// operation, manage the census cache, and start the API or worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/researchdata/internal/app"
	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets what --version prints. main sets it from ldflags.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

// CLI carries state shared by every command once the root has loaded the
// configuration.
type CLI struct {
	out    io.Writer
	cfg    *config.Config
	logger zerolog.Logger
	// opts are appended to every client the registry builds.
	opts []apiclient.Option
}

// Execute runs the research CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(os.Stdout).ExecuteContext(ctx)
}

func newRootCmd(out io.Writer, opts ...apiclient.Option) *cobra.Command {
	c := &CLI{out: out, opts: opts}
	var verbose bool

	root := &cobra.Command{
		Use:          "research",
		Short:        "Query public research data APIs",
		Long:         `research wraps public data APIs (Census, NOAA, PubMed, arXiv, Wikipedia and more) behind one command line, an HTTP facade and a background worker.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if verbose {
				cfg.LogLevel = zerolog.DebugLevel.String()
			}
			c.cfg = cfg
			c.logger = app.NewLogger(os.Stderr, cfg)
			cmd.SetContext(c.logger.WithContext(cmd.Context()))
			return nil
		},
	}
	root.SetOut(out)
	root.SetVersionTemplate(fmt.Sprintf("research %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.sourcesCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.workerCommand())

	return root
}

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.HTTPAddr = addr
			}
			return app.Serve(cmd.Context(), c.cfg, c.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default RESEARCH_HTTP_ADDR)")
	return cmd
}

func (c *CLI) workerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background capture and prefetch worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Work(cmd.Context(), c.cfg, c.logger)
		},
	}
}
