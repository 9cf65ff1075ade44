// Package log is a logging package that provides functions to log messages.
package log

import (
	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

const loggerName = "wechat-search"

var Logger logSDK.Logger

func init() {
	var err error
	if Logger, err = logSDK.NewConsoleWithName(loggerName, logSDK.LevelInfo); err != nil {
		logSDK.Shared.Panic("new logger", zap.Error(err))
	}
}

// RedirectToStderr replaces Logger with one writing to stderr,
// for transports that own stdout such as stdio MCP.
func RedirectToStderr(level logSDK.Level) error {
	logger, err := logSDK.New(
		logSDK.WithName(loggerName),
		logSDK.WithEncoding(logSDK.EncodingConsole),
		logSDK.WithLevel(level),
		logSDK.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		return errors.Wrap(err, "new stderr logger")
	}

	Logger = logger
	return nil
}
