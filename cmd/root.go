package cmd

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/devcontext/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagDomains  []string
	flagKeywords []string
	flagSince    string
	flagMaxChars int
	flagMaxItems int
	flagFixtures string
	flagRuns     int
	flagPlain    bool
	flagExplain  bool
	flagOpen     int
	flagCheck    bool
)

var rootCmd = &cobra.Command{
	Use:   "devcontext [query]",
	Short: "Assemble developer context from calendar, GitHub, Slack and Jira",
	Long: `devcontext answers a question like "anything I should know before the release review?"
by fetching the relevant sources, spotting cross-source coincidences, ranking everything
against the question and trimming the result to a size a language model can take.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssemble(cmd, args, flagPlain)
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt [query]",
	Short: "Print the assembled context as plain prompt text",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssemble(cmd, args, true)
	},
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagDomains, "domains", nil, "sources to query (calendar, github, slack, jira); default: inferred from the query")
	cmd.Flags().StringSliceVar(&flagKeywords, "keywords", nil, "extra keywords to rank by")
	cmd.Flags().StringVar(&flagSince, "since", "", "only consider items from the last duration (e.g., 7d, 24h)")
	cmd.Flags().IntVar(&flagMaxChars, "max-chars", 0, "character budget (default from config)")
	cmd.Flags().IntVar(&flagMaxItems, "max-items", -1, "item cap, 0 for none (default from config)")
	cmd.Flags().StringVar(&flagFixtures, "fixtures", "", "serve sources from a YAML fixture file")
	cmd.Flags().IntVar(&flagRuns, "runs", 1, "assemble repeatedly to show cache reuse")
	cmd.Flags().BoolVar(&flagExplain, "explain", false, "show the score breakdown of each item")
	cmd.Flags().IntVar(&flagOpen, "open", 0, "open the link of the n-th item in the browser")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	addQueryFlags(rootCmd)
	addQueryFlags(promptCmd)
	rootCmd.Flags().BoolVar(&flagPlain, "plain", false, "print plain prompt text instead of styled output")
	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "check for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(sourcesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "devcontext %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheck {
			return
		}
		if res := update.Check(cmd.Context(), version); res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "A newer version is available: %s (%s)\n", res.LatestVersion, res.URL)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "You are up to date.")
		}
	},
}

func Execute() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
