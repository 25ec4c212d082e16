package mahjong

// riichiStickValue 立直棒点数
const riichiStickValue = 1000

// Hule 和牌信息中计算点数用到的字段
type Hule struct {
	Seat          int
	Zimo          bool
	Riichi        bool
	PointRong     int
	PointZimoQin  int // 自摸时庄家支付的点数
	PointZimoXian int // 自摸时每个闲家支付的点数
	Fans          []Fan
}

// AgariValue 一次和牌的点数拆分。Value 不含本场和场供，这部分计入 Extras。
type AgariValue struct {
	Winner int
	Value  int
	Riichi bool
	Extras int
	Han    []Han
}

func (a AgariValue) HasHan(h Han) bool {
	return containsHan(a.Han, h)
}

// ComputeAgariValue 计算和牌点数。
// 自摸：庄家和牌为闲家支付 x3，闲家和牌为庄家支付 + 闲家支付 x2；
// 荣和：和牌点数减去自己的立直棒。Extras 为收支中扣除 Value 和立直棒之后的部分。
func ComputeAgariValue(h Hule, dealership int, deltaScores []int) AgariValue {
	stick := 0
	if h.Riichi {
		stick = riichiStickValue
	}

	var value int
	switch {
	case h.Zimo && h.Seat == dealership:
		value = h.PointZimoXian * 3
	case h.Zimo:
		value = h.PointZimoQin + h.PointZimoXian*2
	default:
		value = h.PointRong - stick
	}

	delta := 0
	if h.Seat >= 0 && h.Seat < len(deltaScores) {
		delta = deltaScores[h.Seat]
	}
	return AgariValue{
		Winner: h.Seat,
		Value:  value,
		Riichi: h.Riichi,
		Extras: delta - value - stick,
		Han:    ExpandHan(h.Fans),
	}
}
