package mahjong

import (
	"time"

	"github.com/kaguyact/majsoul-api/common/cache"
	"github.com/kaguyact/majsoul-api/common/log"
)

type Hand34 [34]uint8

// UnknownShanten 没有配牌（或配牌全部无法识别）时的向听数
const UnknownShanten = -2

const (
	defaultCacheCost = 1 << 16
	defaultCacheTTL  = time.Hour
)

// ShantenCalculator 向听数计算，-1 表示已和牌，0 表示听牌
type ShantenCalculator interface {
	Shanten(counts TileCounts) int
}

// ShantenFunc 让普通函数满足 ShantenCalculator
type ShantenFunc func(counts TileCounts) int

func (f ShantenFunc) Shanten(counts TileCounts) int {
	return f(counts)
}

// Searcher 默认的向听数计算器，按手牌缓存结果，可以并发使用。
// 缓存按条目数和 TTL 淘汰，cache 为 nil 时不缓存
type Searcher struct {
	cache *cache.LocalCache[int]
}

// NewSearcher 默认容量 65536 手牌，一小时过期
func NewSearcher() *Searcher {
	s, err := NewBoundedSearcher(defaultCacheCost, defaultCacheTTL)
	if err != nil {
		log.Error("创建向听数缓存失败, 不使用缓存: %v", err)
		return &Searcher{}
	}
	return s
}

// NewBoundedSearcher maxCost 为最多缓存的手牌数
func NewBoundedSearcher(maxCost int64, ttl time.Duration) (*Searcher, error) {
	c, err := cache.NewLocalCache[int](maxCost, ttl)
	if err != nil {
		return nil, err
	}
	return &Searcher{cache: c}, nil
}

func (s *Searcher) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// Shanten 按牌数推算副露数：13/14 张为门清，每少 3 张算一组副露
func (s *Searcher) Shanten(counts TileCounts) int {
	total := counts.Total()
	if total == 0 {
		return UnknownShanten
	}
	fixedMelds := 0
	if total < 13 {
		fixedMelds = (14 - total) / 3
	}
	return s.ShantenAll(counts.Hand34(), fixedMelds)
}

// -------------- 基础工具：转换与 key --------------

func (h Hand34) keyWithFixedMelds(fixedMelds int) string {
	var b [35]byte
	for i := 0; i < 34; i++ {
		b[i] = byte(h[i])
	}
	b[34] = byte(fixedMelds)
	return string(b[:])
}

func isNumberTile(i int) bool { return i >= int(Man1) && i <= int(So9) }

func suitOf(i int) int {
	switch {
	case i >= int(Man1) && i <= int(Man9):
		return 0
	case i >= int(Pin1) && i <= int(Pin9):
		return 1
	case i >= int(So1) && i <= int(So9):
		return 2
	default:
		return -1
	}
}

var kokushiTiles = [13]int{
	int(Man1), int(Man9),
	int(Pin1), int(Pin9),
	int(So1), int(So9),
	int(East), int(South), int(West), int(North),
	int(White), int(Green), int(Red),
}

// ShantenAll 向听数，带副露
func (s *Searcher) ShantenAll(h Hand34, fixedMelds int) int {
	key := h.keyWithFixedMelds(fixedMelds)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v
		}
	}

	best := s.ShantenNormal(h, fixedMelds)
	if fixedMelds == 0 {
		if v := ShantenChiitoi(h); v < best {
			best = v
		}
		if v := ShantenKokushi(h); v < best {
			best = v
		}
	}

	if s.cache != nil {
		s.cache.Set(key, best)
	}
	return best
}

// ShantenKokushi 国士无双向听数
func ShantenKokushi(h Hand34) int {
	unique := 0
	pair := false
	for _, idx := range kokushiTiles {
		if h[idx] > 0 {
			unique++
			if h[idx] >= 2 {
				pair = true
			}
		}
	}
	sh := 13 - unique
	if pair {
		sh--
	}
	return sh
}

// ShantenChiitoi 七对子向听数
func ShantenChiitoi(h Hand34) int {
	pairs := 0
	unique := 0
	for i := 0; i < 34; i++ {
		if h[i] > 0 {
			unique++
		}
		pairs += int(h[i] / 2)
	}
	sh := 6 - pairs
	if unique < 7 {
		sh += 7 - unique
	}
	return sh
}

func (s *Searcher) ShantenNormal(h Hand34, fixedMelds int) int {
	best := 8 // 一般型最差上界
	work := h
	dfsNormalShanten(&work, fixedMelds, 0, 0, &best)
	return best
}

// dfsNormalShanten 普通牌型向听数搜索 m：当前已经形成的面子数(包含 fixedMelds)、p：雀头数（0/1）、t：搭子数（taatsu）、best：全局最小向听
func dfsNormalShanten(h *Hand34, m int, p int, t int, best *int) {
	if m > 4 {
		return
	}

	t2 := t
	if limit := 4 - m; t2 > limit {
		t2 = limit
	}

	sh := 8 - 2*m - t2 - p
	if sh < *best {
		*best = sh
	}

	i := -1
	for k := 0; k < 34; k++ {
		if (*h)[k] > 0 {
			i = k
			break
		}
	}
	if i == -1 {
		return
	}

	if !isNumberTile(i) {
		if (*h)[i] >= 3 {
			(*h)[i] -= 3
			dfsNormalShanten(h, m+1, p, t, best)
			(*h)[i] += 3
		}

		if p == 0 && (*h)[i] >= 2 {
			(*h)[i] -= 2
			dfsNormalShanten(h, m, 1, t, best)
			(*h)[i] += 2
		}

		(*h)[i]--
		dfsNormalShanten(h, m, p, t, best)
		(*h)[i]++
		return
	}

	if (*h)[i] >= 3 {
		(*h)[i] -= 3
		dfsNormalShanten(h, m+1, p, t, best)
		(*h)[i] += 3
	}

	if i+2 < 34 && suitOf(i) == suitOf(i+1) && suitOf(i) == suitOf(i+2) {
		if (*h)[i] > 0 && (*h)[i+1] > 0 && (*h)[i+2] > 0 {
			(*h)[i]--
			(*h)[i+1]--
			(*h)[i+2]--
			dfsNormalShanten(h, m+1, p, t, best)
			(*h)[i]++
			(*h)[i+1]++
			(*h)[i+2]++
		}
	}

	if p == 0 && (*h)[i] >= 2 {
		(*h)[i] -= 2
		dfsNormalShanten(h, m, 1, t, best)
		(*h)[i] += 2
	}

	if i+1 < 34 && suitOf(i) == suitOf(i+1) {
		if (*h)[i] > 0 && (*h)[i+1] > 0 {
			(*h)[i]--
			(*h)[i+1]--
			dfsNormalShanten(h, m, p, t+1, best)
			(*h)[i]++
			(*h)[i+1]++
		}
	}

	if i+2 < 34 && suitOf(i) == suitOf(i+2) {
		if (*h)[i] > 0 && (*h)[i+2] > 0 {
			(*h)[i]--
			(*h)[i+2]--
			dfsNormalShanten(h, m, p, t+1, best)
			(*h)[i]++
			(*h)[i+2]++
		}
	}

	(*h)[i]--
	dfsNormalShanten(h, m, p, t, best)
	(*h)[i]++
}
