package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/kaguyact/majsoul-api/common/database"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/core/domain/repository"
)

const processedGamesKey = "majsoul:processed" // majsoul:processed:<contestID> -> set(uuid)

// RedisGameIndexRepository Redis 实现的已处理牌谱索引，每个比赛一个 set
type RedisGameIndexRepository struct {
	redis *database.RedisManager
}

func NewRedisGameIndexRepository(redis *database.RedisManager) repository.GameIndexRepository {
	return &RedisGameIndexRepository{redis: redis}
}

func processedKey(contestID int) string {
	return fmt.Sprintf("%s:%d", processedGamesKey, contestID)
}

func (r *RedisGameIndexRepository) MarkProcessed(ctx context.Context, contestID int, uuid string, ttl time.Duration) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	key := processedKey(contestID)
	if err := cli.SAdd(ctx, key, uuid).Err(); err != nil {
		log.Error("记录已处理牌谱失败: %v", err)
		return repository.ErrRedis
	}
	if ttl > 0 {
		if err := cli.Expire(ctx, key, ttl).Err(); err != nil {
			log.Error("设置牌谱索引过期时间失败: %v", err)
			return repository.ErrRedis
		}
	}
	return nil
}

func (r *RedisGameIndexRepository) IsProcessed(ctx context.Context, contestID int, uuid string) (bool, error) {
	cli, err := r.redis.GetClient()
	if err != nil {
		return false, err
	}
	ok, err := cli.SIsMember(ctx, processedKey(contestID), uuid).Result()
	if err != nil {
		log.Error("查询牌谱索引失败: %v", err)
		return false, repository.ErrRedis
	}
	return ok, nil
}

func (r *RedisGameIndexRepository) FilterUnprocessed(ctx context.Context, contestID int, uuids []string) ([]string, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	cli, err := r.redis.GetClient()
	if err != nil {
		return nil, err
	}
	members := make([]any, len(uuids))
	for i, id := range uuids {
		members[i] = id
	}
	exists, err := cli.SMIsMember(ctx, processedKey(contestID), members...).Result()
	if err != nil {
		log.Error("批量查询牌谱索引失败: %v", err)
		return nil, repository.ErrRedis
	}

	out := make([]string, 0, len(uuids))
	for i, ok := range exists {
		if !ok {
			out = append(out, uuids[i])
		}
	}
	return out, nil
}

func (r *RedisGameIndexRepository) ForgetContest(ctx context.Context, contestID int) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	if err := cli.Del(ctx, processedKey(contestID)).Err(); err != nil {
		log.Error("清除牌谱索引失败: %v", err)
		return repository.ErrRedis
	}
	return nil
}
