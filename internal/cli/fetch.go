package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/researchdata/cache"
	"github.com/briangreenhill/researchdata/internal/app"
	"github.com/briangreenhill/researchdata/internal/providers"
)

func (c *CLI) registry() *providers.Registry {
	return app.Registry(c.cfg, c.logger, nil, c.opts...)
}

func (c *CLI) sourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List data sources, their aliases and operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := c.registry()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tALIASES\tOPERATIONS")
			for _, name := range reg.List() {
				p, _ := reg.Get(name)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, strings.Join(reg.Aliases(name), ","), strings.Join(p.Operations(), ","))
			}
			return tw.Flush()
		},
	}
}

type fetchOutput struct {
	Source string         `json:"source"`
	Op     string         `json:"op"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

func (c *CLI) fetchCommand() *cobra.Command {
	var (
		metadataPath string
		compact      bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <source> <op> [key=value...]",
		Short: "Run one operation and print the result as JSON",
		Example: `  research fetch pubmed search query="crispr" max=5
  research fetch census population year=2021 geography=state
  research fetch wiki summary title="Go (programming language)"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, op := args[0], args[1]
			a, err := providers.ParseArgs(args[2:])
			if err != nil {
				return err
			}
			reg := c.registry()
			canon, _ := reg.Resolve(source)

			ctx := cmd.Context()
			var meta *cache.Metadata
			if canon == "census" && metadataPath != "" {
				meta = cache.NewMetadata()
				ctx = providers.WithCensusMetadata(ctx, meta)
			}

			res, err := reg.Run(ctx, source, op, a)
			if err != nil {
				return err
			}
			if meta != nil {
				if err := meta.Save(metadataPath); err != nil {
					return err
				}
				c.logger.Info().Str("path", metadataPath).Msg("saved collection metadata")
			}

			out := fetchOutput{Source: canon, Op: op, Kind: res.Kind(), Fields: res.Fields()}
			var body []byte
			if compact {
				body, err = json.Marshal(out)
			} else {
				body, err = json.MarshalIndent(out, "", "  ")
			}
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			_, err = fmt.Fprintln(c.out, string(body))
			return err
		},
	}
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "save census collection metadata to this JSON file")
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on one line")
	return cmd
}

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the census response cache",
	}
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [pattern]",
		Short: "Delete cached tables, optionally only those matching a glob",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}
			fc, err := cache.NewFileCache(c.cfg.CacheDir, cache.WithLogger(c.logger))
			if err != nil {
				return err
			}
			n, err := fc.Clear(pattern)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "Cleared %d cached entries from %s\n", n, fc.Dir())
			return err
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(c.out, c.cfg.CacheDir)
			return err
		},
	}
}
