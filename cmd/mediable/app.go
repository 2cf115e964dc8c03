package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yi-nology/mediable/biz/dal/db"
	"github.com/yi-nology/mediable/biz/service/media"
	"github.com/yi-nology/mediable/pkg/config"
	"github.com/yi-nology/mediable/pkg/database"
	"github.com/yi-nology/mediable/pkg/lock"
	"github.com/yi-nology/mediable/pkg/logging"
	mediaredis "github.com/yi-nology/mediable/pkg/redis"
	"github.com/yi-nology/mediable/pkg/storage"
)

// app holds everything a command needs.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	media  *media.Service
	redis  *goredis.Client
	logOut io.Closer
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logOut, err := logging.Init(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	a := &app{cfg: cfg, logOut: logOut}

	a.db, err = database.Open(cfg.Database)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(a.db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	disks, err := storage.NewManager(cfg.Disks)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init disks: %w", err)
	}

	registry := media.NewRegistry()
	if err := registry.RegisterPresets(cfg.Conversions.Presets); err != nil {
		a.Close()
		return nil, err
	}
	registry.SetGlobal(cfg.Conversions.Global)

	var locker lock.Locker = lock.NewKeyedMutex()
	redisLocker, client, err := mediaredis.NewLocker(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	if redisLocker != nil {
		a.redis, locker = client, redisLocker
		hlog.CtxInfof(ctx, "conversion locks via redis %s", cfg.Redis.Address)
	}

	a.media = media.NewService(a.db, disks, registry,
		media.WithDefaultDisk(cfg.DefaultDisk),
		media.WithImageMimeTypes(cfg.ImageMimeTypes),
		media.WithLocker(locker),
	)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.logOut != nil {
		errs = append(errs, a.logOut.Close())
	}
	return errors.Join(errs...)
}
