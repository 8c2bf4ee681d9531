package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

// Init installs the global zap logger. Production JSON output by default,
// console output when APP_ENV=dev. Callers use zap.L().
func Init() (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "dev", "development", "local":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
