package cmd

import (
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/wechat-article-search/library/browser"
	"github.com/Laisky/wechat-article-search/library/log"
)

var installCMD = &cobra.Command{
	Use:   "install-browser",
	Short: "download the playwright driver and chromium",
	Args:  gcmd.NoExtraArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log.Logger.Info("installing playwright chromium")
		if err := browser.Install(); err != nil {
			log.Logger.Panic("install browser", zap.Error(err))
		}
		log.Logger.Info("playwright chromium installed")
	},
}

func init() {
	rootCMD.AddCommand(installCMD)
}
