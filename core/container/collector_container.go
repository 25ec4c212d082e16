package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kaguyact/majsoul-api/common/config"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/core/app"
	"github.com/kaguyact/majsoul-api/core/infrastructure/cache"
	"github.com/kaguyact/majsoul-api/core/infrastructure/message/node"
	"github.com/kaguyact/majsoul-api/core/infrastructure/persistence"
	"github.com/kaguyact/majsoul-api/core/infrastructure/realtime"
	"github.com/kaguyact/majsoul-api/framework/majsoul"
)

type CollectorContainer struct {
	*BaseContainer
	Api       *majsoul.Api
	Publisher *node.NatsPublisher
	Players   *cache.PlayerCache
	Collector *app.Collector
	closed    bool
	mu        sync.Mutex
}

// NewApiFromConfig 获取资源、建立连接，返回的 Api 尚未登录
func NewApiFromConfig(ctx context.Context, conf config.MajsoulConf) (*majsoul.Api, error) {
	resources, err := majsoul.RetrieveApiResources(ctx, conf.ResourceUrl)
	if err != nil {
		return nil, fmt.Errorf("获取雀魂资源失败: %w", err)
	}
	api, err := majsoul.NewApi(resources,
		majsoul.WithServerIndex(conf.ServerIndex),
		majsoul.WithProxy(conf.Proxy),
		majsoul.WithHeartbeat(conf.HeartbeatInterval(), conf.HeartbeatTimeout()),
	)
	if err != nil {
		return nil, err
	}
	if err := api.Init(ctx); err != nil {
		api.Dispose()
		return nil, err
	}
	return api, nil
}

func NewCollectorContainer(ctx context.Context, conf *config.Config) (*CollectorContainer, error) {
	base, err := NewBase(conf.DatabaseConf)
	if err != nil {
		return nil, err
	}
	c := &CollectorContainer{BaseContainer: base}

	results := persistence.NewGameResultRepository(base.mongo)
	if indexed, ok := results.(*persistence.GameResultRepository); ok {
		if err := indexed.EnsureIndexes(ctx); err != nil {
			log.Warn("创建 game_results 索引失败: %v", err)
		}
	}
	index := realtime.NewRedisGameIndexRepository(base.redis)

	c.Players, err = cache.NewPlayerCache(conf.CacheConf.MaxCost, time.Duration(conf.CacheConf.TTL)*time.Second)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	var publisher app.Publisher = app.NopPublisher{}
	if conf.NatsConfig.URL != "" {
		c.Publisher = node.NewNatsPublisher(conf.AppName, conf.NatsConfig.Subject)
		if err := c.Publisher.Run(conf.NatsConfig.URL); err != nil {
			_ = c.Close()
			return nil, err
		}
		publisher = c.Publisher
	} else {
		log.Warn("没有配置 nats, 采集结果不会发布")
	}

	c.Api, err = NewApiFromConfig(ctx, conf.Majsoul)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Collector = app.NewCollector(c.Api, results, index, publisher, c.Players, app.Options{
		Passport: majsoul.Passport{
			Uid:         conf.Majsoul.Passport.Uid,
			AccessToken: conf.Majsoul.Passport.AccessToken,
		},
		Contests:     conf.Majsoul.Contests,
		FetchRate:    conf.Majsoul.FetchRate,
		ScanInterval: conf.Majsoul.ScanInterval(),
		IndexTTL:     conf.Majsoul.IndexTTL(),
	})
	return c, nil
}

// Close 关闭容器资源（幂等操作，可以安全地多次调用）
func (c *CollectorContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var errs []error

	if c.Api != nil {
		c.Api.Dispose()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if c.Players != nil {
		c.Players.Close()
	}
	if c.BaseContainer != nil {
		if err := c.BaseContainer.Close(); err != nil {
			log.Error("BaseContainer 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}

	c.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("关闭资源时发生 %d 个错误", len(errs))
	}

	log.Info("CollectorContainer 已关闭")
	return nil
}
