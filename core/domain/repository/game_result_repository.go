package repository

import (
	"context"

	"github.com/kaguyact/majsoul-api/core/domain/entity"
)

// GameResultRepository 对局结果仓储接口
type GameResultRepository interface {
	// SaveGameResult 保存对局结果，同一个牌谱 uuid 覆盖旧结果
	SaveGameResult(ctx context.Context, result *entity.GameResult) error

	// FindGameResult 根据牌谱 uuid 查找
	FindGameResult(ctx context.Context, majsoulID string) (*entity.GameResult, error)

	// FindGameResultsByContest 查找比赛的对局结果（按开始时间倒序，分页）
	FindGameResultsByContest(ctx context.Context, contestMajsoulID int, limit, offset int) ([]*entity.GameResult, error)

	// CountGameResultsByContest 比赛已保存的对局数
	CountGameResultsByContest(ctx context.Context, contestMajsoulID int) (int64, error)
}
