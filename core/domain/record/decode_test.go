package record

import (
	"errors"
	"os"
	"testing"

	"github.com/kaguyact/majsoul-api/framework/game/engines/mahjong"
	"github.com/kaguyact/majsoul-api/framework/protocol"
)

func testCodec(t *testing.T) *protocol.Codec {
	t.Helper()
	raw, err := os.ReadFile("../../../framework/protocol/testdata/liqi_min.json")
	if err != nil {
		t.Fatalf("读取 schema 失败: %v", err)
	}
	schema, err := protocol.LoadSchema(raw)
	if err != nil {
		t.Fatalf("加载 schema 失败: %v", err)
	}
	return protocol.NewCodec(schema)
}

func wrap(t *testing.T, codec *protocol.Codec, name string, value any) []byte {
	t.Helper()
	md, err := codec.Schema().Message(name)
	if err != nil {
		t.Fatalf("查找 %s 失败: %v", name, err)
	}
	data, err := codec.Marshal(md, value)
	if err != nil {
		t.Fatalf("编码 %s 失败: %v", name, err)
	}
	return protocol.WrapMessage("."+name, data)
}

func detail(t *testing.T, codec *protocol.Codec, value any) []byte {
	t.Helper()
	return wrap(t, codec, typeDetailRecords, value)
}

func TestDecodeDetailRecords(t *testing.T) {
	codec := testCodec(t)
	records := [][]byte{
		wrap(t, codec, TypeNewRound, &NewRound{Chang: 1, Ju: 2, Ben: 3, Tiles0: []string{"1m", "0p"}}),
		wrap(t, codec, TypeDiscardTile, &DiscardTile{
			Seat:     2,
			Tile:     "5s",
			IsLiqi:   true,
			Zhenting: []bool{false, false, true, false},
			Operations: []OptionalOperationList{
				{Seat: 3, OperationList: []OptionalOperation{{Type: OperationPeng, Combination: []string{"5s|5s"}}}},
			},
		}),
		wrap(t, codec, TypeHule, &Hule{
			Hules: []HuleInfo{{
				Seat:      3,
				Liqi:      true,
				PointRong: 3900,
				Fans:      []FanInfo{{ID: int(mahjong.Riichi), Val: 1}, {ID: int(mahjong.Dora), Val: 2}},
			}},
			DeltaScores: []int{0, 0, -3900, 4900},
		}),
		wrap(t, codec, "lq.RecordBaBei", map[string]any{"seat": 1}),
	}

	got, err := DecodeDetailRecords(codec, detail(t, codec, map[string]any{"records": records}))
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("记录数错误: %d", len(got))
	}

	nr, ok := got[0].(*NewRound)
	if !ok || nr.Chang != 1 || nr.Ju != 2 || nr.Ben != 3 || len(nr.Tiles(0)) != 2 || nr.Tiles(0)[1] != "0p" {
		t.Fatalf("NewRound 错误: %#v", got[0])
	}

	dt, ok := got[1].(*DiscardTile)
	if !ok || !dt.Riichi() || !dt.Furiten() || len(dt.Operations) != 1 || !dt.Operations[0].HasCall() {
		t.Fatalf("DiscardTile 错误: %#v", got[1])
	}

	h, ok := got[2].(*Hule)
	if !ok || len(h.Hules) != 1 || h.DeltaScores[3] != 4900 {
		t.Fatalf("Hule 错误: %#v", got[2])
	}
	agari := h.Hules[0].Agari()
	if agari.Seat != 3 || !agari.Riichi || agari.PointRong != 3900 || len(agari.Fans) != 2 || agari.Fans[1].ID != mahjong.Dora {
		t.Fatalf("Agari 转换错误: %#v", agari)
	}

	u, ok := got[3].(*Unknown)
	if !ok || u.Name != ".lq.RecordBaBei" || len(u.Raw) == 0 {
		t.Fatalf("未知记录错误: %#v", got[3])
	}
}

func TestDecodeDetailRecordsFromActions(t *testing.T) {
	codec := testCodec(t)
	data := detail(t, codec, map[string]any{
		"version": 210715,
		"actions": []map[string]any{
			{"type": 1, "result": wrap(t, codec, TypeNewRound, &NewRound{Ju: 1})},
			{"type": 2, "user_input": []byte{1, 2, 3}},
			{"type": 1, "result": wrap(t, codec, TypeNoTile, &NoTile{
				Liujumanguan: true,
				Players:      []NoTilePlayer{{Tingpai: true}, {}, {}, {}},
				Scores:       []NoTileScore{{Seat: 0}},
			})},
		},
	})

	got, err := DecodeDetailRecords(codec, data)
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("记录数错误: %d", len(got))
	}
	if nr, ok := got[0].(*NewRound); !ok || nr.Ju != 1 {
		t.Fatalf("NewRound 错误: %#v", got[0])
	}
	nt, ok := got[1].(*NoTile)
	if !ok || !nt.Liujumanguan || len(nt.Players) != 4 || !nt.Players[0].Tingpai || !nt.HasScore(0) || nt.HasScore(1) {
		t.Fatalf("NoTile 错误: %#v", got[1])
	}
}

func TestDecodeRecordMalformed(t *testing.T) {
	codec := testCodec(t)
	bad := protocol.WrapMessage("."+TypeDiscardTile, []byte{0xff, 0xff})
	if _, err := DecodeRecord(codec, bad); err == nil {
		t.Fatalf("损坏的记录应该返回错误")
	}

	notDetail := wrap(t, codec, TypeNewRound, &NewRound{})
	if _, err := DecodeDetailRecords(codec, notDetail); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("不是 GameDetailRecords 时应该返回协议错误: %v", err)
	}
}

func TestGameRecordHelpers(t *testing.T) {
	var empty *GameRecord
	if !empty.Empty() || !(&GameRecord{}).Empty() {
		t.Fatalf("没有数据时应为空")
	}
	if (&GameRecord{DataURL: "https://example.com/record"}).Empty() {
		t.Fatalf("有 data_url 时不应为空")
	}

	head := RecordGame{Accounts: []AccountInfo{{Seat: 2, Nickname: "b"}, {Seat: 0, Nickname: "a"}}}
	if a, ok := head.Account(0); !ok || a.Nickname != "a" {
		t.Fatalf("按座位查找失败: %+v", a)
	}
	if _, ok := head.Account(3); ok {
		t.Fatalf("不存在的座位不应该找到")
	}
	if (*GameConfig)(nil).DetailRule() != nil {
		t.Fatalf("空配置应返回 nil")
	}
}
