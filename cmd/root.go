package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/log"
)

var rootCMD = &cobra.Command{
	Use:   "wechat-article-search",
	Short: "wechat-article-search",
	Long:  `search WeChat official account articles through sogou with a headless browser`,
	Args:  gcmd.NoExtraArgs,
}

func initialize(ctx context.Context, cmd *cobra.Command) error {
	if err := gconfig.Shared.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	setupSettings(ctx)
	if err := validateStartupConfig(); err != nil {
		return errors.Wrap(err, "validate startup config")
	}
	setupLogger(ctx)

	return nil
}

func setupSettings(ctx context.Context) {
	// env first, so that .env can carry the proxy or admin secret
	config.LoadEnv()

	// mode
	if gconfig.Shared.GetBool("debug") {
		fmt.Fprintln(os.Stderr, "run in debug mode")
		gconfig.Shared.Set("log-level", "debug")
	} else { // prod mode
		fmt.Fprintln(os.Stderr, "run in prod mode")
	}

	// clock
	gutils.SetInternalClock(100 * time.Millisecond)

	// load configuration
	cfgPath := gconfig.Shared.GetString("config")
	config.LoadFromFile(cfgPath)
}

func setupLogger(ctx context.Context) {
	lvl := gconfig.Shared.GetString("log-level")
	if err := log.Logger.ChangeLevel(logSDK.Level(lvl)); err != nil {
		log.Logger.Panic("change log level", zap.Error(err), zap.String("level", lvl))
	}
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().String("listen", "localhost:8080", "like `localhost:8080`")
	rootCMD.PersistentFlags().StringP("config", "c", "/etc/wechat-article-search/settings.yml", "config file path")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		logSDK.Shared.Panic("start", zap.Error(err))
	}
}
