package parser

import (
	"reflect"
	"testing"

	"github.com/kaguyact/majsoul-api/core/domain/entity"
	"github.com/kaguyact/majsoul-api/core/domain/record"
	"github.com/kaguyact/majsoul-api/framework/game/engines/mahjong"
)

// fixedShanten 测试中不关心配牌时使用
var fixedShanten = mahjong.ShantenFunc(func(mahjong.TileCounts) int { return 3 })

func newRound(chang, ju, ben int) *record.NewRound {
	return &record.NewRound{Chang: chang, Ju: ju, Ben: ben}
}

func ops(seat int, types ...int) record.OptionalOperationList {
	l := record.OptionalOperationList{Seat: seat}
	for _, t := range types {
		l.OperationList = append(l.OperationList, record.OptionalOperation{Type: t, Combination: []string{"5s|5s"}})
	}
	return l
}

func kanOption(typ int, tiles ...string) *record.OptionalOperationList {
	return &record.OptionalOperationList{
		OperationList: []record.OptionalOperation{{Type: typ, Combination: tiles}},
	}
}

func ron(seat, point int, riichi bool, fans ...record.FanInfo) record.HuleInfo {
	return record.HuleInfo{Seat: seat, PointRong: point, Liqi: riichi, Fans: fans}
}

func fan(h mahjong.Han, val int) record.FanInfo {
	return record.FanInfo{ID: int(h), Val: val}
}

func parse(t *testing.T, records ...record.Record) []entity.RoundResult {
	t.Helper()
	rounds := New(fixedShanten).ParseRounds(records)
	if rounds == nil {
		t.Fatalf("解析不应该放弃")
	}
	return rounds
}

func TestRonEndToEnd(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 0),
		&record.DiscardTile{Seat: 1, Tile: "3p"},
		&record.Hule{
			Hules:       []record.HuleInfo{ron(2, 8000, false, fan(mahjong.Riichi, 1))},
			DeltaScores: []int{-8000, 0, 8000, 0},
		},
	)
	if len(rounds) != 1 {
		t.Fatalf("期望 1 局，得到 %d", len(rounds))
	}
	r := rounds[0]
	if r.Round != (entity.RoundInfo{Round: 0, Dealership: 0, Repeat: 0}) {
		t.Fatalf("局信息错误: %+v", r.Round)
	}
	if r.Draw != nil || r.Tsumo != nil {
		t.Fatalf("应该只有荣和结果: %+v", r)
	}
	want := []entity.RonResult{{
		AgariInfo: entity.AgariInfo{Winner: 2, Value: 8000, Riichi: false, Extras: 0, Han: []mahjong.Han{mahjong.Riichi}},
		Loser:     1,
	}}
	if !reflect.DeepEqual(r.Rons, want) {
		t.Fatalf("荣和结果错误:\n got %+v\nwant %+v", r.Rons, want)
	}
	for seat, p := range r.PlayerStats {
		if p.HaipaiShanten != 3 || p.FinalHandState.Status != entity.HandClosed {
			t.Fatalf("座位 %d 统计错误: %+v", seat, p)
		}
	}
}

func TestRoundCountMatchesTerminalRecords(t *testing.T) {
	records := []record.Record{
		newRound(0, 0, 0),
		&record.DealTile{Seat: 0, Tile: "1m"},
		&record.DiscardTile{Seat: 0, Tile: "9m"},
		&record.Unknown{Name: ".lq.RecordBaBei"},
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
		newRound(0, 0, 1),
		&record.ChiPengGang{Seat: 2, Type: record.CallPeng},
		&record.DiscardTile{Seat: 2, Tile: "4z"},
		&record.Hule{Hules: []record.HuleInfo{ron(3, 1000, false), ron(0, 2000, false)}, DeltaScores: []int{2000, 0, -3000, 1000}},
		newRound(0, 1, 0),
		&record.Hule{Hules: []record.HuleInfo{{Seat: 1, Zimo: true, PointZimoQin: 1000, PointZimoXian: 500}}, DeltaScores: []int{-500, 2000, -1000, -500}},
	}
	terminal := 0
	for _, r := range records {
		switch r.(type) {
		case *record.NoTile, *record.Hule:
			terminal++
		}
	}

	rounds := parse(t, records...)
	if len(rounds) != terminal {
		t.Fatalf("期望 %d 局，得到 %d", terminal, len(rounds))
	}
	if rounds[0].Draw == nil || rounds[1].Outcome() != "ron" || rounds[2].Tsumo == nil {
		t.Fatalf("结果类型错误: %s %s %s", rounds[0].Outcome(), rounds[1].Outcome(), rounds[2].Outcome())
	}
	if len(rounds[1].Rons) != 2 || rounds[1].Rons[0].Loser != 2 || rounds[1].Rons[1].Loser != 2 {
		t.Fatalf("一炮双响错误: %+v", rounds[1].Rons)
	}
	// 新的一局重新统计
	if rounds[1].PlayerStats[2].Calls.Total != 1 || rounds[2].PlayerStats[2].Calls.Total != 0 {
		t.Fatalf("统计没有按局重置")
	}
	if rounds[2].Round.Dealership != 1 {
		t.Fatalf("庄家错误: %+v", rounds[2].Round)
	}
}

func TestAbortWithoutLeadingNewRound(t *testing.T) {
	p := New(fixedShanten)
	if p.ParseRounds(nil) != nil {
		t.Fatalf("空记录应该返回 nil")
	}
	if p.ParseRounds([]record.Record{&record.DiscardTile{Seat: 0}, newRound(0, 0, 0)}) != nil {
		t.Fatalf("不以 NewRound 开头应该返回 nil")
	}
	if p.ParseGameRecordResponse(&record.GameRecord{}) != nil {
		t.Fatalf("没有数据应该返回 nil")
	}
	game := &record.GameRecord{Data: []byte{1}, Records: []record.Record{&record.Hule{}}}
	if p.ParseGameRecordResponse(game) != nil {
		t.Fatalf("不以 NewRound 开头应该返回 nil")
	}
}

func TestKanLock(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 0),
		&record.DealTile{Seat: 1, Operation: kanOption(record.OperationAnKan, "1z|1z|1z|1z")},
		&record.DealTile{Seat: 1, Operation: kanOption(record.OperationAnKan, "1z|1z|1z|1z")},
		&record.DealTile{Seat: 1, Operation: kanOption(record.OperationAddKan, "5p|5p|5p|0p")},
		&record.DealTile{Seat: 1, Operation: kanOption(record.OperationRiichi, "1m")},
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
		newRound(0, 1, 0),
		&record.DealTile{Seat: 1, Operation: kanOption(record.OperationAnKan, "1z|1z|1z|1z")},
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
	)
	calls := rounds[0].PlayerStats[1].Calls
	if calls.Opportunities != 2 || calls.RepeatOpportunities != 1 {
		t.Fatalf("杠机会计数错误: %+v", calls)
	}
	// 下一局重新开始去重
	calls = rounds[1].PlayerStats[1].Calls
	if calls.Opportunities != 1 || calls.RepeatOpportunities != 0 {
		t.Fatalf("新的一局杠机会计数错误: %+v", calls)
	}
}

func TestOpenHandIsMonotonic(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 0),
		&record.ChiPengGang{Seat: 1, Type: record.CallChi},
		&record.DiscardTile{Seat: 1, Tile: "9s"},
		&record.ChiPengGang{Seat: 1, Type: record.CallDaiminkan},
		&record.DealTile{Seat: 1, Tile: "2s"},
		&record.DiscardTile{Seat: 1, Tile: "2s"},
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
	)
	p := rounds[0].PlayerStats[1]
	if p.FinalHandState.Status != entity.HandOpen {
		t.Fatalf("副露后应保持 open: %v", p.FinalHandState.Status)
	}
	if p.Calls.Total != 2 || p.Calls.Kans.Daiminkan != 1 {
		t.Fatalf("鸣牌计数错误: %+v", p.Calls)
	}
}

func TestRiichiIndex(t *testing.T) {
	rounds := parse(t,
		newRound(1, 2, 0),
		&record.DiscardTile{Seat: 2, IsLiqi: true},
		&record.DiscardTile{Seat: 3},
		&record.DiscardTile{Seat: 0, IsWliqi: true, Zhenting: []bool{true, false, false, false}},
		&record.DiscardTile{Seat: 1, IsLiqi: true},
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
	)
	stats := rounds[0].PlayerStats
	want := map[int]entity.FinalHandState{
		2: {Status: entity.HandRiichi, Index: 0},
		0: {Status: entity.HandRiichi, Index: 1, Furiten: true},
		1: {Status: entity.HandRiichi, Index: 2},
		3: {Status: entity.HandClosed},
	}
	for seat, w := range want {
		if stats[seat].FinalHandState != w {
			t.Fatalf("座位 %d 立直状态错误: %+v", seat, stats[seat].FinalHandState)
		}
	}
}

func TestCallOpportunities(t *testing.T) {
	discard := func() *record.DiscardTile {
		return &record.DiscardTile{
			Seat: 0,
			Operations: []record.OptionalOperationList{
				ops(1, record.OperationChi),
				ops(2, record.OperationPeng, record.OperationMingKan, record.OperationRon),
				ops(3, record.OperationRon),
			},
		}
	}
	rounds := parse(t,
		newRound(0, 0, 0),
		// 没人鸣牌：能鸣牌的座位各算一次
		discard(),
		&record.DealTile{Seat: 1},
		// 碰优先：只算碰的人
		discard(),
		&record.ChiPengGang{Seat: 2, Type: record.CallPeng},
		// 吃：所有能鸣牌的座位
		discard(),
		&record.ChiPengGang{Seat: 1, Type: record.CallChi},
		// 荣和：都不算
		discard(),
		&record.Hule{Hules: []record.HuleInfo{ron(3, 1000, false)}, DeltaScores: []int{-1000, 0, 0, 1000}},
	)
	stats := rounds[0].PlayerStats
	got := []int{stats[0].Calls.Opportunities, stats[1].Calls.Opportunities, stats[2].Calls.Opportunities, stats[3].Calls.Opportunities}
	if !reflect.DeepEqual(got, []int{0, 2, 3, 0}) {
		t.Fatalf("鸣牌机会错误: %v", got)
	}
}

func TestNagashiMangan(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 0),
		&record.NoTile{
			Liujumanguan: true,
			Players:      []record.NoTilePlayer{{Tingpai: true}, {}, {Tingpai: true}, {}},
			Scores:       []record.NoTileScore{{Seat: 2}},
		},
		newRound(0, 0, 1),
		&record.NoTile{
			Players: []record.NoTilePlayer{{Tingpai: true}, {}, {Tingpai: true}, {}},
			Scores:  []record.NoTileScore{{Seat: 2}},
		},
	)
	want := []entity.DrawStatus{entity.DrawTenpai, entity.DrawNoten, entity.DrawNagashiMangan, entity.DrawNoten}
	if !reflect.DeepEqual(rounds[0].Draw.PlayerDrawStatus, want) {
		t.Fatalf("流局满贯错误: %v", rounds[0].Draw.PlayerDrawStatus)
	}
	want = []entity.DrawStatus{entity.DrawTenpai, entity.DrawNoten, entity.DrawTenpai, entity.DrawNoten}
	if !reflect.DeepEqual(rounds[1].Draw.PlayerDrawStatus, want) {
		t.Fatalf("没有流局满贯时按听牌计算: %v", rounds[1].Draw.PlayerDrawStatus)
	}
}

func TestTsumoAfterKan(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 2),
		&record.AnGangAddGang{Seat: 3, Type: record.KanAnkan, Tiles: "7z"},
		&record.DealTile{Seat: 3, Tile: "4m"},
		&record.Hule{
			Hules: []record.HuleInfo{{
				Seat:          3,
				Zimo:          true,
				PointZimoQin:  2600,
				PointZimoXian: 1300,
				Fans:          []record.FanInfo{fan(mahjong.AfterAKan, 1), fan(mahjong.Dora, 2)},
			}},
			DeltaScores: []int{-2800, -1500, -1500, 5800},
		},
	)
	tsumo := rounds[0].Tsumo
	if tsumo == nil {
		t.Fatalf("应该是自摸")
	}
	if tsumo.Winner != 3 || tsumo.Value != 2600+1300*2 || tsumo.DealerValue != 2600 || tsumo.Extras != 5800-5200 {
		t.Fatalf("自摸点数错误: %+v", tsumo)
	}
	if !reflect.DeepEqual(tsumo.Han, []mahjong.Han{mahjong.AfterAKan, mahjong.Dora, mahjong.Dora}) {
		t.Fatalf("番种展开错误: %v", tsumo.Han)
	}
	kans := rounds[0].PlayerStats[3].Calls.Kans
	if kans.Rinshan != 1 || kans.Ankan != 1 {
		t.Fatalf("岭上开花计数错误: %+v", kans)
	}
}

func TestDealerTsumo(t *testing.T) {
	rounds := parse(t,
		newRound(0, 1, 0),
		&record.Hule{
			Hules:       []record.HuleInfo{{Seat: 1, Zimo: true, PointZimoQin: 4000, PointZimoXian: 4000}},
			DeltaScores: []int{-4000, 12000, -4000, -4000},
		},
	)
	if v := rounds[0].Tsumo.Value; v != 12000 {
		t.Fatalf("庄家自摸点数错误: %d", v)
	}
}

func TestRobbingAKan(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 0),
		&record.DiscardTile{Seat: 1, Tile: "3s"},
		&record.AnGangAddGang{Seat: 3, Type: record.KanShouminkan, Tiles: "3s"},
		&record.Hule{
			Hules:       []record.HuleInfo{ron(0, 3900, true, fan(mahjong.RobbingAKan, 1), fan(mahjong.Riichi, 1))},
			DeltaScores: []int{4900, 0, 0, -3900},
		},
	)
	r := rounds[0].Rons[0]
	if r.Loser != 3 || r.Value != 2900 || r.Extras != 1000 || !r.Riichi {
		t.Fatalf("抢杠结果错误: %+v", r)
	}
	kans := rounds[0].PlayerStats[3].Calls.Kans
	if kans.Shouminkan != 1 || kans.ShouminkanRobbed != 1 || rounds[0].PlayerStats[3].Calls.Total != 1 {
		t.Fatalf("加杠计数错误: %+v", kans)
	}
}

func TestHaipaiShanten(t *testing.T) {
	nr := &record.NewRound{
		Tiles0: []string{"1m", "2m", "3m", "1p", "2p", "3p", "1s", "2s", "3s", "7m", "8m", "1z", "1z", "9p"},
		Tiles1: []string{"1m", "4m", "7m", "2p", "5p", "8p", "3s", "6s", "9s", "1z", "2z", "3z", "4z"},
	}
	rounds := New(nil).ParseRounds([]record.Record{nr, &record.NoTile{Players: make([]record.NoTilePlayer, 4)}})
	stats := rounds[0].PlayerStats
	if stats[0].HaipaiShanten != 0 {
		t.Fatalf("庄家配牌应该听牌，得到 %d", stats[0].HaipaiShanten)
	}
	if stats[1].HaipaiShanten != 6 {
		t.Fatalf("闲家配牌应该六向听，得到 %d", stats[1].HaipaiShanten)
	}
	if stats[2].HaipaiShanten != mahjong.UnknownShanten {
		t.Fatalf("没有配牌的座位不应该算作听牌，得到 %d", stats[2].HaipaiShanten)
	}
}

func TestSnapshotIsNotShared(t *testing.T) {
	rounds := parse(t,
		newRound(0, 0, 0),
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
		&record.ChiPengGang{Seat: 0, Type: record.CallPeng},
		&record.NoTile{Players: make([]record.NoTilePlayer, 4)},
	)
	if rounds[0].PlayerStats[0].Calls.Total != 0 || rounds[1].PlayerStats[0].Calls.Total != 1 {
		t.Fatalf("已经输出的统计不应该被修改")
	}
}
