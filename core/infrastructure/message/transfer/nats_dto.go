package transfer

import (
	"encoding/json"

	"github.com/kaguyact/majsoul-api/core/domain/entity"
)

// EventPacket 发布到 nats 的事件，Body 的格式由 Route 决定
type EventPacket struct {
	Route     string          `json:"route"`
	Source    string          `json:"source"`
	ContestID int             `json:"contestId,omitempty"`
	Time      int64           `json:"time"`
	Body      json.RawMessage `json:"body,omitempty"`
}

// GameSummary GameParsed 的消息体，完整结果存在 mongo 中
type GameSummary struct {
	MajsoulID  string              `json:"majsoulId"`
	StartTime  int64               `json:"start_time"`
	EndTime    int64               `json:"end_time"`
	Rounds     int                 `json:"rounds"`
	Players    []*entity.PlayerRef `json:"players"`
	FinalScore []entity.FinalScore `json:"finalScore"`
}

func NewGameSummary(r *entity.GameResult) *GameSummary {
	return &GameSummary{
		MajsoulID:  r.MajsoulID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Rounds:     len(r.Rounds),
		Players:    r.Players,
		FinalScore: r.FinalScore,
	}
}

// GameAbort GameAborted 的消息体
type GameAbort struct {
	MajsoulID string `json:"majsoulId"`
	Reason    string `json:"reason"`
}

// ContestMessage ContestSystemMessage 的消息体，Type 为雀魂的系统消息类型
type ContestMessage struct {
	UniqueID int    `json:"uniqueId"`
	Type     int    `json:"type"`
	UUID     string `json:"uuid,omitempty"`
}
