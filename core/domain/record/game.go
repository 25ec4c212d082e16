package record

import (
	"github.com/kaguyact/majsoul-api/framework/game/engines/mahjong"
)

// FanInfo 番种，宝牌类的 Val 为张数
type FanInfo struct {
	Name string `json:"name"`
	Val  int    `json:"val"`
	ID   int    `json:"id"`
}

// HuleInfo 一家和牌的信息
type HuleInfo struct {
	Seat          int       `json:"seat"`
	Zimo          bool      `json:"zimo"`
	Qinjia        bool      `json:"qinjia"`
	Liqi          bool      `json:"liqi"`
	HuTile        string    `json:"hu_tile"`
	Hand          []string  `json:"hand"`
	Ming          []string  `json:"ming"`
	Yiman         bool      `json:"yiman"`
	Count         int       `json:"count"`
	Fu            int       `json:"fu"`
	Fans          []FanInfo `json:"fans"`
	PointRong     int       `json:"point_rong"`
	PointZimoQin  int       `json:"point_zimo_qin"`
	PointZimoXian int       `json:"point_zimo_xian"`
	PointSum      int       `json:"point_sum"`
}

// Agari 转成点数计算需要的形式
func (h HuleInfo) Agari() mahjong.Hule {
	fans := make([]mahjong.Fan, len(h.Fans))
	for i, f := range h.Fans {
		fans[i] = mahjong.Fan{ID: mahjong.Han(f.ID), Val: f.Val}
	}
	return mahjong.Hule{
		Seat:          h.Seat,
		Zimo:          h.Zimo,
		Riichi:        h.Liqi,
		PointRong:     h.PointRong,
		PointZimoQin:  h.PointZimoQin,
		PointZimoXian: h.PointZimoXian,
		Fans:          fans,
	}
}

type GameMetaData struct {
	RoomID     int `json:"room_id"`
	ModeID     int `json:"mode_id"`
	ContestUID int `json:"contest_uid"`
}

type GameDetailRule struct {
	InitPoint      int `json:"init_point"`
	Fandian        int `json:"fandian"`
	DoraCount      int `json:"dora_count"`
	LiqibangValue  int `json:"liqibang_value"`
	ChangbangValue int `json:"changbang_value"`
	AiLevel        int `json:"ai_level"`
}

type GameMode struct {
	Mode       int             `json:"mode"`
	Ai         bool            `json:"ai"`
	DetailRule *GameDetailRule `json:"detail_rule"`
}

type GameConfig struct {
	Category int           `json:"category"`
	Mode     *GameMode     `json:"mode"`
	Meta     *GameMetaData `json:"meta"`
}

// DetailRule 可能为 nil
func (c *GameConfig) DetailRule() *GameDetailRule {
	if c == nil || c.Mode == nil {
		return nil
	}
	return c.Mode.DetailRule
}

type AccountInfo struct {
	AccountID int    `json:"account_id"`
	Seat      int    `json:"seat"`
	Nickname  string `json:"nickname"`
}

// PlayerItem 终局结果，PartPoint1 为终局点数，TotalPoint 为计算顺位马后的得点
type PlayerItem struct {
	Seat         int `json:"seat"`
	TotalPoint   int `json:"total_point"`
	PartPoint1   int `json:"part_point_1"`
	PartPoint2   int `json:"part_point_2"`
	GradingScore int `json:"grading_score"`
}

type GameEndResult struct {
	Players []PlayerItem `json:"players"`
}

// RecordGame 牌谱头，时间单位为秒
type RecordGame struct {
	UUID      string         `json:"uuid"`
	StartTime int            `json:"start_time"`
	EndTime   int            `json:"end_time"`
	Config    *GameConfig    `json:"config"`
	Accounts  []AccountInfo  `json:"accounts"`
	Result    *GameEndResult `json:"result"`
}

// Account 按座位查找玩家
func (g *RecordGame) Account(seat int) (AccountInfo, bool) {
	for _, a := range g.Accounts {
		if a.Seat == seat {
			return a, true
		}
	}
	return AccountInfo{}, false
}

// GameRecord fetchGameRecord 的结果，Records 由 Data 解出
type GameRecord struct {
	Head    RecordGame
	Data    []byte
	DataURL string
	Records []Record
}

// Empty 没有可用的牌谱数据
func (g *GameRecord) Empty() bool {
	return g == nil || (len(g.Data) == 0 && g.DataURL == "")
}
