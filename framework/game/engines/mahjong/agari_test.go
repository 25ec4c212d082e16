package mahjong

import (
	"reflect"
	"testing"
)

func TestComputeAgariValueTsumo(t *testing.T) {
	// 庄家自摸，闲家各付 4000，一本场
	dealer := ComputeAgariValue(Hule{Seat: 0, Zimo: true, PointZimoQin: 4000, PointZimoXian: 4000}, 0, []int{12300, -4100, -4100, -4100})
	if dealer.Value != 12000 || dealer.Extras != 300 || dealer.Winner != 0 {
		t.Fatalf("庄家自摸计算错误: %+v", dealer)
	}

	// 闲家自摸
	child := ComputeAgariValue(Hule{Seat: 1, Zimo: true, PointZimoQin: 4000, PointZimoXian: 2000}, 0, []int{-4000, 8000, -2000, -2000})
	if child.Value != 8000 || child.Extras != 0 {
		t.Fatalf("闲家自摸计算错误: %+v", child)
	}
}

func TestComputeAgariValueRon(t *testing.T) {
	plain := ComputeAgariValue(Hule{
		Seat:      2,
		PointRong: 8000,
		Fans:      []Fan{{ID: Riichi, Val: 1}},
	}, 0, []int{-8000, 0, 8000, 0})
	want := AgariValue{Winner: 2, Value: 8000, Extras: 0, Han: []Han{Riichi}}
	if !reflect.DeepEqual(plain, want) {
		t.Fatalf("荣和计算错误: %+v", plain)
	}

	// 立直者荣和，和牌点数扣掉自己的立直棒
	riichi := ComputeAgariValue(Hule{Seat: 1, Riichi: true, PointRong: 8000}, 0, []int{-8300, 9300, 0, 0})
	if riichi.Value != 7000 || riichi.Extras != 1300 || !riichi.Riichi {
		t.Fatalf("立直荣和计算错误: %+v", riichi)
	}
}

func TestExpandHan(t *testing.T) {
	got := ExpandHan([]Fan{{ID: Dora, Val: 3}})
	if !reflect.DeepEqual(got, []Han{Dora, Dora, Dora}) {
		t.Fatalf("宝牌应该按张数展开: %v", got)
	}
	got = ExpandHan([]Fan{{ID: Riichi, Val: 1}})
	if !reflect.DeepEqual(got, []Han{Riichi}) {
		t.Fatalf("立直应该只出现一次: %v", got)
	}
	got = ExpandHan([]Fan{{ID: HalfFlush, Val: 3}, {ID: RedFive, Val: 2}, {ID: UraDora, Val: 0}})
	if !reflect.DeepEqual(got, []Han{HalfFlush, RedFive, RedFive}) {
		t.Fatalf("展开结果错误: %v", got)
	}
}

func TestAgariHasHan(t *testing.T) {
	v := ComputeAgariValue(Hule{Seat: 0, Zimo: true, PointZimoXian: 2600, Fans: []Fan{{ID: AfterAKan, Val: 1}}}, 0, nil)
	if !v.HasHan(AfterAKan) || v.HasHan(RobbingAKan) {
		t.Fatalf("HasHan 结果错误: %v", v.Han)
	}
}
