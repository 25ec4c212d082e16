package record

// Record 牌谱中的一条记录，只有本包内定义的类型实现该接口
type Record interface {
	isRecord()
}

// 牌谱记录的消息类型名
const (
	TypeNewRound      = "lq.RecordNewRound"
	TypeDiscardTile   = "lq.RecordDiscardTile"
	TypeDealTile      = "lq.RecordDealTile"
	TypeAnGangAddGang = "lq.RecordAnGangAddGang"
	TypeChiPengGang   = "lq.RecordChiPengGang"
	TypeNoTile        = "lq.RecordNoTile"
	TypeHule          = "lq.RecordHule"
)

// 可选操作类型
const (
	OperationChi       = 2
	OperationPeng      = 3
	OperationAnKan     = 4
	OperationMingKan   = 5
	OperationAddKan    = 6
	OperationRiichi    = 7
	OperationTsumo     = 8
	OperationRon       = 9
	OperationNineTiles = 10
)

// 鸣牌类型
const (
	CallChi       = 0
	CallPeng      = 1
	CallDaiminkan = 2
)

// 暗杠 / 加杠类型
const (
	KanShouminkan = 2
	KanAnkan      = 3
)

// OptionalOperation 玩家可以选择的一个操作
type OptionalOperation struct {
	Type        int      `json:"type"`
	Combination []string `json:"combination"`
}

// OptionalOperationList 某个座位可以选择的操作
type OptionalOperationList struct {
	Seat          int                 `json:"seat"`
	OperationList []OptionalOperation `json:"operation_list"`
}

// HasCall 是否有荣和以外的操作
func (l OptionalOperationList) HasCall() bool {
	for _, op := range l.OperationList {
		if op.Type != OperationRon {
			return true
		}
	}
	return false
}

// NewRound 开局，Chang 场风，Ju 局数（即庄家座位），Ben 本场数
type NewRound struct {
	Chang         int      `json:"chang"`
	Ju            int      `json:"ju"`
	Ben           int      `json:"ben"`
	Dora          string   `json:"dora"`
	Doras         []string `json:"doras"`
	Scores        []int    `json:"scores"`
	Liqibang      int      `json:"liqibang"`
	Tiles0        []string `json:"tiles0"`
	Tiles1        []string `json:"tiles1"`
	Tiles2        []string `json:"tiles2"`
	Tiles3        []string `json:"tiles3"`
	LeftTileCount int      `json:"left_tile_count"`
}

// Tiles 座位的配牌
func (r *NewRound) Tiles(seat int) []string {
	switch seat {
	case 0:
		return r.Tiles0
	case 1:
		return r.Tiles1
	case 2:
		return r.Tiles2
	case 3:
		return r.Tiles3
	}
	return nil
}

type DiscardTile struct {
	Seat       int                     `json:"seat"`
	Tile       string                  `json:"tile"`
	IsLiqi     bool                    `json:"is_liqi"`
	IsWliqi    bool                    `json:"is_wliqi"`
	Moqie      bool                    `json:"moqie"`
	Zhenting   []bool                  `json:"zhenting"`
	Doras      []string                `json:"doras"`
	Operations []OptionalOperationList `json:"operations"`
}

// Riichi 立直或两立直
func (r *DiscardTile) Riichi() bool {
	return r.IsLiqi || r.IsWliqi
}

// Furiten 出牌后该座位是否振听
func (r *DiscardTile) Furiten() bool {
	return r.Seat >= 0 && r.Seat < len(r.Zhenting) && r.Zhenting[r.Seat]
}

type DealTile struct {
	Seat          int                    `json:"seat"`
	Tile          string                 `json:"tile"`
	LeftTileCount int                    `json:"left_tile_count"`
	Operation     *OptionalOperationList `json:"operation"`
	Doras         []string               `json:"doras"`
	Zhenting      []bool                 `json:"zhenting"`
}

type AnGangAddGang struct {
	Seat  int      `json:"seat"`
	Type  int      `json:"type"`
	Tiles string   `json:"tiles"`
	Doras []string `json:"doras"`
}

type ChiPengGang struct {
	Seat     int      `json:"seat"`
	Type     int      `json:"type"`
	Tiles    []string `json:"tiles"`
	Froms    []int    `json:"froms"`
	Zhenting []bool   `json:"zhenting"`
}

type NoTilePlayer struct {
	Tingpai bool     `json:"tingpai"`
	Hand    []string `json:"hand"`
}

type NoTileScore struct {
	Seat        int   `json:"seat"`
	OldScores   []int `json:"old_scores"`
	DeltaScores []int `json:"delta_scores"`
	Score       int   `json:"score"`
}

// NoTile 荒牌流局，Liujumanguan 为流局满贯
type NoTile struct {
	Liujumanguan bool           `json:"liujumanguan"`
	Players      []NoTilePlayer `json:"players"`
	Scores       []NoTileScore  `json:"scores"`
	Gameend      bool           `json:"gameend"`
}

// HasScore seat 是否出现在流局的收支列表中
func (r *NoTile) HasScore(seat int) bool {
	for _, s := range r.Scores {
		if s.Seat == seat {
			return true
		}
	}
	return false
}

type Hule struct {
	Hules       []HuleInfo `json:"hules"`
	OldScores   []int      `json:"old_scores"`
	DeltaScores []int      `json:"delta_scores"`
	Scores      []int      `json:"scores"`
}

// Unknown 不关心或 schema 中没有的记录类型
type Unknown struct {
	Name string
	Raw  []byte
}

func (*NewRound) isRecord()      {}
func (*DiscardTile) isRecord()   {}
func (*DealTile) isRecord()      {}
func (*AnGangAddGang) isRecord() {}
func (*ChiPengGang) isRecord()   {}
func (*NoTile) isRecord()        {}
func (*Hule) isRecord()          {}
func (*Unknown) isRecord()       {}
