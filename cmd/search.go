package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/search"
)

// articleSearcher is the part of the searcher the one-shot command needs.
type articleSearcher interface {
	Search(ctx context.Context, req search.Request) *search.Result
}

var searchCMD = &cobra.Command{
	Use:   "search <query>",
	Short: "run one search and print the articles",
	Long: `Run a single search and print the result.

Example:
  wechat-article-search search 人工智能 --max 10 --filter week --json`,
	Args: cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		// stdout carries the results
		lvl, _ := cmd.Flags().GetString("log-level")
		if err := log.RedirectToStderr(logSDK.Level(lvl)); err != nil {
			logSDK.Shared.Panic("redirect logger", zap.Error(err))
		}

		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		maxResults, _ := cmd.Flags().GetInt("max")
		rawFilter, _ := cmd.Flags().GetString("filter")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter, ok := search.ParseTimeFilter(rawFilter)
		if !ok {
			return errors.Errorf("unknown time filter %q", rawFilter)
		}

		searcher, err := newSearcher(config.LoadSettings())
		if err != nil {
			return errors.WithStack(err)
		}
		defer searcher.Close(context.Background())

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		return runSearch(ctx, searcher, os.Stdout, search.Request{
			Query:      strings.Join(args, " "),
			MaxResults: maxResults,
			TimeFilter: filter,
		}, asJSON)
	},
}

func init() {
	rootCMD.AddCommand(searchCMD)
	searchCMD.Flags().Int("max", 5, "maximum number of articles, 1..50")
	searchCMD.Flags().String("filter", "", "time filter, one of day/week/month/year")
	searchCMD.Flags().Bool("json", false, "print the typed result as JSON")
}

// runSearch executes req and writes the result to out.
// A failed outcome is reported as an error after the result is printed.
func runSearch(ctx context.Context, searcher articleSearcher, out io.Writer, req search.Request, asJSON bool) error {
	res := searcher.Search(ctx, req)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return errors.Wrap(err, "encode result")
		}
	} else if _, err := fmt.Fprintln(out, search.RenderText(res.Query, res.Articles)); err != nil {
		return errors.Wrap(err, "write result")
	}

	if res.Outcome.Failed() {
		if res.Err != nil {
			return errors.Wrapf(res.Err, "search %s", res.Outcome)
		}
		return errors.Errorf("search %s", res.Outcome)
	}
	return nil
}
