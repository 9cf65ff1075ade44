package cmd

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/wechat-article-search/internal/mcp"
	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/log"
)

var mcpCMD = &cobra.Command{
	Use:   "mcp",
	Short: "serve MCP over stdio",
	Long: `Serve the search_wechat_articles tool over the stdio MCP transport.

Logs go to stderr, stdout carries JSON-RPC only.`,
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
		if err := runMCPStdio(config.LoadSettings()); err != nil {
			log.Logger.Panic("run mcp", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(mcpCMD)
}

func runMCPStdio(settings config.Settings) error {
	searcher, err := newSearcher(settings)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeBrowserTimeout)
		defer cancel()
		searcher.Close(ctx)
	}()

	server, err := mcp.NewServer(searcher, log.Logger.Named("mcp"))
	if err != nil {
		return errors.Wrap(err, "new mcp server")
	}

	log.Logger.Info("serving mcp over stdio",
		zap.String("server", mcp.ServerName),
		zap.Duration("navigation_timeout", settings.Search.NavigationTimeout.Round(time.Millisecond)))
	return server.ServeStdio()
}
