package mahjong

// Han 雀魂的番种 ID（FanInfo.id）
type Han int

const (
	FullyConcealedHand              Han = 1  // 门前清自摸和
	Riichi                          Han = 2  // 立直
	RobbingAKan                     Han = 3  // 抢杠
	AfterAKan                       Han = 4  // 岭上开花
	UnderTheSea                     Han = 5  // 海底摸月
	UnderTheRiver                   Han = 6  // 河底捞鱼
	DragonWhite                     Han = 7  // 役牌 白
	DragonGreen                     Han = 8  // 役牌 发
	DragonRed                       Han = 9  // 役牌 中
	SeatWind                        Han = 10 // 自风
	PrevalentWind                   Han = 11 // 场风
	AllSimples                      Han = 12 // 断幺九
	PureDoubleSequence              Han = 13 // 一杯口
	Pinfu                           Han = 14 // 平和
	HalfOutsideHand                 Han = 15 // 混全带幺九
	PureStraight                    Han = 16 // 一气通贯
	MixedTripleSequence             Han = 17 // 三色同顺
	DoubleRiichi                    Han = 18 // 两立直
	TripleTriplets                  Han = 19 // 三色同刻
	ThreeQuads                      Han = 20 // 三杠子
	AllTriplets                     Han = 21 // 对对和
	ThreeConcealedTriplets          Han = 22 // 三暗刻
	LittleThreeDragons              Han = 23 // 小三元
	AllTerminalsAndHonors           Han = 24 // 混老头
	SevenPairs                      Han = 25 // 七对子
	FullyOutsideHand                Han = 26 // 纯全带幺九
	HalfFlush                       Han = 27 // 混一色
	TwicePureDoubleSequence         Han = 28 // 二杯口
	FullFlush                       Han = 29 // 清一色
	Ippatsu                         Han = 30 // 一发
	Dora                            Han = 31 // 宝牌
	RedFive                         Han = 32 // 赤宝牌
	UraDora                         Han = 33 // 里宝牌
	Kita                            Han = 34 // 拔北宝牌
	BlessingOfHeaven                Han = 35 // 天和
	BlessingOfEarth                 Han = 36 // 地和
	BigThreeDragons                 Han = 37 // 大三元
	FourConcealedTriplets           Han = 38 // 四暗刻
	AllHonors                       Han = 39 // 字一色
	AllGreen                        Han = 40 // 绿一色
	AllTerminals                    Han = 41 // 清老头
	ThirteenOrphans                 Han = 42 // 国士无双
	FourLittleWinds                 Han = 43 // 小四喜
	FourQuads                       Han = 44 // 四杠子
	NineGates                       Han = 45 // 九莲宝灯
	EightTimeEastStaying            Han = 46 // 八连庄
	TrueNineGates                   Han = 47 // 纯正九莲宝灯
	SingleWaitFourConcealedTriplets Han = 48 // 四暗刻单骑
	ThirteenWaitThirteenOrphans     Han = 49 // 国士无双十三面
	FourBigWinds                    Han = 50 // 大四喜
)

// Fan 牌谱中的番种条目，Val 为番数（宝牌类为张数）
type Fan struct {
	ID  Han
	Val int
}

// Stacks 宝牌、赤宝牌、里宝牌按张数累计
func (h Han) Stacks() bool {
	return h == Dora || h == RedFive || h == UraDora
}

// ExpandHan 累计类番种展开成 Val 个条目，其余番种无论番数只出现一次
func ExpandHan(fans []Fan) []Han {
	out := make([]Han, 0, len(fans))
	for _, f := range fans {
		if !f.ID.Stacks() {
			out = append(out, f.ID)
			continue
		}
		for i := 0; i < f.Val; i++ {
			out = append(out, f.ID)
		}
	}
	return out
}

func containsHan(hans []Han, h Han) bool {
	for _, v := range hans {
		if v == h {
			return true
		}
	}
	return false
}
