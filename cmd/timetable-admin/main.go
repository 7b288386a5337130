package main

import (
	"context"
	"errors"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/bootstrap"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	backends, err := bootstrap.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open storage", zap.Error(err))
	}

	store, err := bootstrap.NewStore(cfg, backends.Documents, logr, nil)
	if err != nil {
		_ = backends.Close()
		logr.Fatal("invalid store settings", zap.Error(err))
	}

	cli := commandLine{
		store:        store,
		out:          os.Stdout,
		skeletonPath: cfg.Timetable.SkeletonPath,
	}
	err = cli.run(ctx, os.Args)
	_ = backends.Close()
	if err != nil {
		if !errors.Is(err, errHelp) {
			logr.Error("command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}
