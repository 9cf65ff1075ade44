package config

import (
	"os"
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/joho/godotenv"

	"github.com/Laisky/wechat-article-search/library/log"
)

// envOverrides maps environment variables onto configuration keys.
var envOverrides = map[string]string{
	"WECHAT_SEARCH_PROXY":        "settings.browser.proxy",
	"WECHAT_SEARCH_LISTEN":       "listen",
	"WECHAT_SEARCH_ADMIN_SECRET": "settings.admin.secret",
}

// LoadFromFile loads the YAML configuration at cfgPath into the shared config.
// A missing file is tolerated so the service can run on defaults and environment alone.
func LoadFromFile(cfgPath string) {
	if cfgPath == "" {
		log.Logger.Info("no configuration file given, using defaults")
		return
	}
	if _, err := os.Stat(cfgPath); err != nil {
		log.Logger.Warn("configuration file not found, using defaults",
			zap.String("config", cfgPath), zap.Error(err))
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// LoadEnv reads an optional dotenv file and applies the supported
// environment overrides on top of the shared config.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Logger.Debug("no dotenv file loaded", zap.Error(err))
	}

	for env, key := range envOverrides {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			gconfig.Shared.Set(key, v)
			log.Logger.Debug("config overridden by env", zap.String("key", key), zap.String("env", env))
		}
	}
}
