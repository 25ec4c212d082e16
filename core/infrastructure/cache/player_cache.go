package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kaguyact/majsoul-api/common/cache"
	"github.com/kaguyact/majsoul-api/core/domain/entity"
)

// PlayerFetcher 缓存未命中时查询雀魂服务器，找不到玩家时返回 nil, nil
type PlayerFetcher func(ctx context.Context, friendlyID int) (*entity.PlayerRef, error)

// PlayerCache 好友 ID -> 雀魂账号，避免重复调用 searchAccountByPattern
type PlayerCache struct {
	cache    *cache.LocalCache[*entity.PlayerRef]
	routeKey string
}

func NewPlayerCache(maxCost int64, ttl time.Duration) (*PlayerCache, error) {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	c, err := cache.NewLocalCache[*entity.PlayerRef](maxCost, ttl)
	if err != nil {
		return nil, fmt.Errorf("创建玩家缓存失败: %w", err)
	}
	return &PlayerCache{cache: c, routeKey: "player:friendly"}, nil
}

func (c *PlayerCache) key(friendlyID int) string {
	return c.routeKey + ":" + strconv.Itoa(friendlyID)
}

func (c *PlayerCache) Set(friendlyID int, player *entity.PlayerRef) bool {
	if player == nil {
		return false
	}
	return c.cache.Set(c.key(friendlyID), player)
}

func (c *PlayerCache) Get(friendlyID int) (*entity.PlayerRef, bool) {
	return c.cache.Get(c.key(friendlyID))
}

func (c *PlayerCache) Delete(friendlyID int) {
	c.cache.Delete(c.key(friendlyID))
}

// Lookup 先查缓存，未命中时调用 fetch 并缓存结果
func (c *PlayerCache) Lookup(ctx context.Context, friendlyID int, fetch PlayerFetcher) (*entity.PlayerRef, error) {
	if p, ok := c.Get(friendlyID); ok {
		return p, nil
	}
	p, err := fetch(ctx, friendlyID)
	if err != nil || p == nil {
		return nil, err
	}
	c.Set(friendlyID, p)
	return p, nil
}

func (c *PlayerCache) Close() {
	c.cache.Close()
}
