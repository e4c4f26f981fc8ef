package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/devcontext/internal/config"
	"github.com/matheuskafuri/devcontext/internal/feed"
	"github.com/matheuskafuri/devcontext/internal/item"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List sources with their cache TTL and ranking half-life",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		reg, err := newRegistry(cfg, flagFixtures, time.Now(), zap.NewNop())
		if err != nil && !errors.Is(err, errNoSources) {
			return err
		}
		if reg == nil {
			reg = feed.NewRegistry()
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tFETCHER\tTTL\tHALF-LIFE")
		for _, src := range item.AllSources() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src, fetcherName(reg, src), formatDuration(cfg.TTL(src)), formatDuration(cfg.HalfLife(src)))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Derived, "correlator", "-", formatDuration(cfg.HalfLife(item.Derived)))
		return w.Flush()
	},
}

func init() {
	sourcesCmd.Flags().StringVar(&flagFixtures, "fixtures", "", "serve sources from a YAML fixture file")
}

func fetcherName(reg *feed.Registry, src item.Source) string {
	f, ok := reg.Get(src)
	if !ok {
		return "none"
	}
	switch f.(type) {
	case *feed.AtomFetcher:
		return "releases feed"
	case *feed.StaticFetcher:
		return "fixtures"
	}
	return "custom"
}

// formatDuration prints whole days, hours or minutes, whichever is largest.
func formatDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return d.String()
}
