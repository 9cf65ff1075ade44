package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/jwt"
	"github.com/Laisky/wechat-article-search/library/log"
)

var tokenCMD = &cobra.Command{
	Use:   "admin-token",
	Short: "sign a bearer token for the admin endpoints",
	Long: `Sign an HS256 bearer token with settings.admin.secret.

The token authorizes DELETE /cache and POST /restart_browser.`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret := config.LoadSettings().Admin.Secret
		if secret == "" {
			return errors.New("settings.admin.secret is empty")
		}

		verifier, err := jwt.NewVerifier([]byte(secret), gutils.Clock.GetUTCNow)
		if err != nil {
			return errors.WithStack(err)
		}
		token, err := verifier.Sign(ttl)
		if err != nil {
			return errors.WithStack(err)
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCMD.AddCommand(tokenCMD)
	tokenCMD.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
