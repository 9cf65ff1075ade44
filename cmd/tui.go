// Package cmd command line
package cmd

import (
	"context"
	"fmt"
	"os"

	errors "github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Laisky/wechat-article-search/cmd/tui"
	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/log"
)

var tuiCMD = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI",
	Long: `Launch an interactive Terminal User Interface (TUI) for wechat article search.

Type a query, pick a time filter and browse the articles found.
Logs are written to stderr, redirect it to keep the screen clean:
  wechat-article-search tui 2>tui.log

Keyboard shortcuts:
  Enter       Search
  Tab         Cycle time filter (any/day/week/month/year)
  ↑/↓         Navigate results
  Esc         New search
  q           Quit from the result list
  Ctrl+C      Quit`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		lvl, _ := cmd.Flags().GetString("log-level")
		if err := log.RedirectToStderr(logSDK.Level(lvl)); err != nil {
			logSDK.Shared.Panic("redirect logger", zap.Error(err))
		}

		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCMD.AddCommand(tuiCMD)
}

// runTUI starts the interactive Terminal User Interface and returns any start/run error.
func runTUI() error {
	searcher, err := newSearcher(config.LoadSettings())
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeBrowserTimeout)
		defer cancel()
		searcher.Close(ctx)
	}()

	p := tea.NewProgram(
		tui.NewModel(searcher),
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	_, err = p.Run()
	return errors.WithStack(err)
}
