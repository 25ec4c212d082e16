package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GameResultVersion 结果格式版本，统计口径变化时递增
const GameResultVersion = 1

// GameResult 一场对局的解析结果（聚合根）
// 时间为毫秒时间戳，Players 和 FinalScore 按座位排序
type GameResult struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Version          int                `bson:"version" json:"version"`
	Config           GameConfig         `bson:"config" json:"config"`
	ContestMajsoulID int                `bson:"contest_majsoul_id,omitempty" json:"contestMajsoulId,omitempty"`
	MajsoulID        string             `bson:"majsoul_id" json:"majsoulId"`
	StartTime        int64              `bson:"start_time" json:"startTime"`
	EndTime          int64              `bson:"end_time" json:"endTime"`
	Players          []*PlayerRef       `bson:"players" json:"players"` // 找不到账号的座位为 nil
	FinalScore       []FinalScore       `bson:"final_score" json:"finalScore"`
	Rounds           []RoundResult      `bson:"rounds" json:"rounds"`
	CreatedAt        time.Time          `bson:"created_at" json:"-"`
}

// GameConfig 对局规则中统计需要的部分
type GameConfig struct {
	AiLevel          int `bson:"ai_level" json:"aiLevel"`
	RiichiStickValue int `bson:"riichi_stick_value" json:"riichiStickValue"`
}

// PlayerRef 雀魂账号
type PlayerRef struct {
	Nickname  string `bson:"nickname" json:"nickname"`
	MajsoulID int    `bson:"majsoul_id" json:"majsoulId"`
}

// FinalScore Score 终局点数，Uma 计算顺位马后的得点
type FinalScore struct {
	Score int `bson:"score" json:"score"`
	Uma   int `bson:"uma" json:"uma"`
}

// NewGameResult 创建结果，start/end 为牌谱头中的秒级时间戳
func NewGameResult(majsoulID string, start, end int) *GameResult {
	return &GameResult{
		ID:        primitive.NewObjectID(),
		Version:   GameResultVersion,
		MajsoulID: majsoulID,
		StartTime: int64(start) * 1000,
		EndTime:   int64(end) * 1000,
		CreatedAt: time.Now(),
	}
}

// Duration 对局时长
func (g *GameResult) Duration() time.Duration {
	return time.Duration(g.EndTime-g.StartTime) * time.Millisecond
}

// Winner 终局点数最高的座位，同分时座位靠前的优先
func (g *GameResult) Winner() int {
	best := -1
	for seat, s := range g.FinalScore {
		if best < 0 || s.Score > g.FinalScore[best].Score {
			best = seat
		}
	}
	return best
}
