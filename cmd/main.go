package main

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoravur/scorecast/internal/app"
	"github.com/zoravur/scorecast/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	srv, err := app.NewServer(cfg)
	if err != nil {
		zap.L().Fatal("server init failed", zap.Error(err))
	}
	if err := srv.Run(); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
