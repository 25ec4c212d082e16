package repository

import (
	"context"
	"time"
)

// GameIndexRepository 已处理牌谱的索引，采集器据此跳过处理过的对局
type GameIndexRepository interface {
	// MarkProcessed 记录牌谱已处理，ttl 为 0 时不过期
	MarkProcessed(ctx context.Context, contestID int, uuid string, ttl time.Duration) error

	// IsProcessed 牌谱是否处理过
	IsProcessed(ctx context.Context, contestID int, uuid string) (bool, error)

	// FilterUnprocessed 过滤出未处理的牌谱，保持原有顺序
	FilterUnprocessed(ctx context.Context, contestID int, uuids []string) ([]string, error)

	// ForgetContest 清除比赛的索引，重新采集时使用
	ForgetContest(ctx context.Context, contestID int) error
}
