package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/wechat-article-search/internal/mcp"
	"github.com/Laisky/wechat-article-search/internal/web"
	"github.com/Laisky/wechat-article-search/internal/worker"
	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/jwt"
	"github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/throttle"
)

const closeBrowserTimeout = 30 * time.Second

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `HTTP API and streamable MCP endpoint for wechat article search`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx, config.LoadSettings(), gconfig.Shared.GetString("listen")); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// runAPI serves HTTP on listen until ctx is done, together with the
// optional browser keeper, and closes the browser on the way out.
func runAPI(ctx context.Context, settings config.Settings, listen string) error {
	logger := log.Logger.Named("api")

	searcher, err := newSearcher(settings)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeBrowserTimeout)
		defer cancel()
		searcher.Close(closeCtx)
		logger.Info("browser closed")
	}()

	mcpServer, err := mcp.NewServer(searcher, log.Logger.Named("mcp"))
	if err != nil {
		return errors.Wrap(err, "new mcp server")
	}

	opts := []web.Option{
		web.WithLogger(log.Logger.Named("web")),
		web.WithMCPHandler(mcpServer.Handler()),
	}
	if settings.Cache.Enabled {
		opts = append(opts, web.WithCache(web.NewResultCache(settings.Cache.Size, settings.Cache.TTL)))
	}
	if settings.RateLimit.PerMinute > 0 {
		limiter, err := throttle.NewKeyThrottle(throttle.KeyThrottleCfg{
			PerMinute: settings.RateLimit.PerMinute,
		})
		if err != nil {
			return errors.Wrap(err, "new rate limiter")
		}
		opts = append(opts, web.WithThrottle(limiter))
	}
	if settings.Admin.Secret != "" {
		verifier, err := jwt.NewVerifier([]byte(settings.Admin.Secret), gutils.Clock.GetUTCNow)
		if err != nil {
			return errors.Wrap(err, "new admin verifier")
		}
		opts = append(opts, web.WithAdminVerifier(verifier))
	} else {
		logger.Warn("settings.admin.secret is empty, admin endpoints are not protected")
	}

	server, err := web.NewServer(searcher, opts...)
	if err != nil {
		return errors.Wrap(err, "new web server")
	}

	if err := searcher.Warmup(ctx); err != nil {
		// searches relaunch the browser on demand
		logger.Warn("warm up browser", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, listen)
	})
	if settings.Keeper.Schedule != "" {
		keeper, err := worker.NewKeeper(searcher, settings.Keeper.Schedule, log.Logger.Named("keeper"))
		if err != nil {
			return errors.Wrap(err, "new browser keeper")
		}
		g.Go(func() error {
			return keeper.Run(gctx)
		})
	}

	return g.Wait()
}
