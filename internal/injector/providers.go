package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/stereoview/internal/config"
	"github.com/zeusync/stereoview/internal/core/observability/log"
	"github.com/zeusync/stereoview/internal/server"
)

// ProvideLogger builds the process logger at the configured level.
func ProvideLogger(cfg *config.Config) log.Log {
	return log.New(cfg.LogLevel())
}

func ProvideServer(cfg *config.Config, logger log.Log) (*server.Server, error) {
	return server.New(cfg, logger)
}

var ServerSet = wire.NewSet(ProvideLogger, ProvideServer)
