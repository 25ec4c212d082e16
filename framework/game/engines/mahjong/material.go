package mahjong

import (
	"fmt"
)

// TileType 34 种牌，赤五与普通五同型
type TileType int

const (
	// 万子 (0-8)
	Man1 TileType = iota
	Man2
	Man3
	Man4
	Man5
	Man6
	Man7
	Man8
	Man9

	// 筒子 (9-17)
	Pin1
	Pin2
	Pin3
	Pin4
	Pin5
	Pin6
	Pin7
	Pin8
	Pin9

	// 索子 (18-26)
	So1
	So2
	So3
	So4
	So5
	So6
	So7
	So8
	So9

	// 字牌 (27-33)
	East
	South
	West
	North
	White
	Green
	Red
)

const suitKeys = "mpsz"

// Tile 一张牌，雀魂牌谱记法为 数字+花色，例如 1m、0p（赤五筒）、7z（中）
type Tile struct {
	Type TileType
	Red  bool
}

func (t TileType) IsNumbered() bool {
	return t >= Man1 && t <= So9
}

func (t TileType) IsHonor() bool {
	return t >= East && t <= Red
}

// Suit 0 万 1 筒 2 索 3 字
func (t TileType) Suit() int {
	return int(t) / 9
}

// Rank 数牌 1-9，字牌 1-7
func (t TileType) Rank() int {
	return int(t)%9 + 1
}

func (t TileType) String() string {
	if t < Man1 || t > Red {
		return fmt.Sprintf("TileType(%d)", int(t))
	}
	return fmt.Sprintf("%d%c", t.Rank(), suitKeys[t.Suit()])
}

func (t Tile) String() string {
	if t.Red {
		return fmt.Sprintf("0%c", suitKeys[t.Type.Suit()])
	}
	return t.Type.String()
}

// ParseTile 解析雀魂记法
func ParseTile(s string) (Tile, error) {
	if len(s) != 2 {
		return Tile{}, fmt.Errorf("非法的牌 %q", s)
	}
	num := int(s[0] - '0')
	suit := -1
	for i := range suitKeys {
		if suitKeys[i] == s[1] {
			suit = i
		}
	}
	switch {
	case suit < 0, num < 0, num > 9:
		return Tile{}, fmt.Errorf("非法的牌 %q", s)
	case suit == 3 && (num < 1 || num > 7):
		return Tile{}, fmt.Errorf("非法的字牌 %q", s)
	}
	red := false
	if num == 0 {
		if suit == 3 {
			return Tile{}, fmt.Errorf("字牌没有赤牌 %q", s)
		}
		// 赤五按五计
		num, red = 5, true
	}
	return Tile{Type: TileType(suit*9 + num - 1), Red: red}, nil
}

// TileCounts 花色 x 点数的计数表，字牌只用前 7 格
type TileCounts [4][9]int

// CountTiles 把一手牌统计成计数表
func CountTiles(hand []string) (TileCounts, error) {
	var c TileCounts
	for _, s := range hand {
		t, err := ParseTile(s)
		if err != nil {
			return c, err
		}
		c[t.Type.Suit()][t.Type.Rank()-1]++
	}
	return c, nil
}

// Total 牌数
func (c TileCounts) Total() int {
	n := 0
	for _, suit := range c {
		for _, v := range suit {
			n += v
		}
	}
	return n
}

// Hand34 转成搜索用的 34 格表示
func (c TileCounts) Hand34() Hand34 {
	var h Hand34
	for suit := 0; suit < 4; suit++ {
		ranks := 9
		if suit == 3 {
			ranks = 7
		}
		for rank := 0; rank < ranks; rank++ {
			h[suit*9+rank] = uint8(c[suit][rank])
		}
	}
	return h
}
