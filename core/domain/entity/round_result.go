package entity

import (
	"github.com/kaguyact/majsoul-api/framework/game/engines/mahjong"
)

// PlayerCount 四人麻将
const PlayerCount = 4

// HandStatus 局结束时的手牌状态
type HandStatus int

const (
	HandClosed HandStatus = iota // 门清
	HandOpen                     // 副露
	HandRiichi                   // 立直
)

func (s HandStatus) String() string {
	switch s {
	case HandClosed:
		return "closed"
	case HandOpen:
		return "open"
	case HandRiichi:
		return "riichi"
	default:
		return "unknown"
	}
}

// DrawStatus 荒牌流局时每个座位的状态
type DrawStatus int

const (
	DrawNoten DrawStatus = iota
	DrawTenpai
	DrawNagashiMangan
)

func (s DrawStatus) String() string {
	switch s {
	case DrawNoten:
		return "noten"
	case DrawTenpai:
		return "tenpai"
	case DrawNagashiMangan:
		return "nagashi_mangan"
	default:
		return "unknown"
	}
}

// RoundInfo 场风（东 0 南 1 ...），庄家座位，本场数
type RoundInfo struct {
	Round      int `bson:"round" json:"round"`
	Dealership int `bson:"dealership" json:"dealership"`
	Repeat     int `bson:"repeat" json:"repeat"`
}

// KanStats 杠相关计数，ShouminkanRobbed 为加杠被抢杠的次数
type KanStats struct {
	Ankan            int `bson:"ankan" json:"ankan"`
	Daiminkan        int `bson:"daiminkan" json:"daiminkan"`
	Rinshan          int `bson:"rinshan" json:"rinshan"`
	Shouminkan       int `bson:"shouminkan" json:"shouminkan"`
	ShouminkanRobbed int `bson:"shouminkan_robbed" json:"shouminkanRobbed"`
}

// CallStats 鸣牌计数。Opportunities 为可以鸣牌的次数，同一局内重复出现的杠机会计入 RepeatOpportunities
type CallStats struct {
	Kans                KanStats `bson:"kans" json:"kans"`
	Total               int      `bson:"total" json:"total"`
	Opportunities       int      `bson:"opportunities" json:"opportunities"`
	RepeatOpportunities int      `bson:"repeat_opportunities" json:"repeatOpportunities"`
}

// FinalHandState Index 和 Furiten 只在立直时有意义，Index 为本局第几个立直（从 0 开始）
type FinalHandState struct {
	Status  HandStatus `bson:"status" json:"status"`
	Index   int        `bson:"index,omitempty" json:"index,omitempty"`
	Furiten bool       `bson:"furiten,omitempty" json:"furiten,omitempty"`
}

type PlayerStats struct {
	HaipaiShanten  int            `bson:"haipai_shanten" json:"haipaiShanten"`
	Calls          CallStats      `bson:"calls" json:"calls"`
	FinalHandState FinalHandState `bson:"final_hand_state" json:"finalHandState"`
}

// AgariInfo 和牌点数，Value 不含本场和供托，这部分计入 Extras
type AgariInfo struct {
	Winner int           `bson:"winner" json:"winner"`
	Value  int           `bson:"value" json:"value"`
	Riichi bool          `bson:"riichi" json:"riichi"`
	Extras int           `bson:"extras" json:"extras"`
	Han    []mahjong.Han `bson:"han" json:"han"`
}

// NewAgariInfo 由点数计算结果构造
func NewAgariInfo(v mahjong.AgariValue) AgariInfo {
	return AgariInfo{
		Winner: v.Winner,
		Value:  v.Value,
		Riichi: v.Riichi,
		Extras: v.Extras,
		Han:    v.Han,
	}
}

// TsumoResult DealerValue 为庄家支付的点数
type TsumoResult struct {
	AgariInfo   `bson:",inline"`
	DealerValue int `bson:"dealer_value" json:"dealerValue"`
}

// RonResult Loser 为放铳座位，未知时为 -1
type RonResult struct {
	AgariInfo `bson:",inline"`
	Loser     int `bson:"loser" json:"loser"`
}

type DrawResult struct {
	PlayerDrawStatus []DrawStatus `bson:"player_draw_status" json:"playerDrawStatus"`
}

// RoundResult 一局的结果，Draw、Tsumo、Rons 三者只有一个有值
type RoundResult struct {
	Round       RoundInfo                `bson:"round" json:"round"`
	Draw        *DrawResult              `bson:"draw,omitempty" json:"draw,omitempty"`
	Tsumo       *TsumoResult             `bson:"tsumo,omitempty" json:"tsumo,omitempty"`
	Rons        []RonResult              `bson:"rons,omitempty" json:"rons,omitempty"`
	PlayerStats [PlayerCount]PlayerStats `bson:"player_stats" json:"playerStats"`
}

// Outcome 结果类型，用于日志和统计
func (r *RoundResult) Outcome() string {
	switch {
	case r.Draw != nil:
		return "draw"
	case r.Tsumo != nil:
		return "tsumo"
	case len(r.Rons) > 0:
		return "ron"
	default:
		return "unknown"
	}
}
