package mahjong

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

// hand 解析 123m456p11z 这样的紧凑记法
func hand(t testing.TB, s string) []string {
	t.Helper()
	var out, digits []string
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, string(c))
		case c == 'm' || c == 'p' || c == 's' || c == 'z':
			for _, d := range digits {
				out = append(out, d+string(c))
			}
			digits = digits[:0]
		default:
			t.Fatalf("非法的手牌记法 %q", s)
		}
	}
	return out
}

func shantenOf(t *testing.T, s *Searcher, notation string) int {
	t.Helper()
	counts, err := CountTiles(hand(t, notation))
	if err != nil {
		t.Fatalf("统计手牌失败: %v", err)
	}
	return s.Shanten(counts)
}

func TestSearcherShanten(t *testing.T) {
	s := NewSearcher()
	defer s.Close()
	cases := []struct {
		hand string
		want int
	}{
		{"19m19p19s1234567z", 0},   // 国士十三面听
		{"112233m1122p11s1z", 0},   // 七对子听牌
		{"123m123p123s78m11z", 0},  // 一般型听牌
		{"123m123p123s7m9p11z", 1}, // 一向听
		{"123m123p123s789m11z", -1},
		{"406m123p123s789s11z", -1}, // 赤五按五计
		{"123p123s789m11z", -1},     // 11 张，按一组副露计算
		{"147m258p369s1234z", 6},
	}
	for _, c := range cases {
		if got := shantenOf(t, s, c.hand); got != c.want {
			t.Fatalf("%s 向听数期望 %d，得到 %d", c.hand, c.want, got)
		}
	}
}

func TestSearcherSpecialHandsAndMelds(t *testing.T) {
	s := NewSearcher()
	defer s.Close()

	cases := []struct {
		hand string
		want int
	}{
		{"119m19p19s1234567z", -1}, // 国士无双
		{"112233m1122p11s11z", -1}, // 七对子
		{"123p123s789m11z", -1},    // 一组副露 + 11 张
		{"123p123s789m12z", 0},
	}
	for _, c := range cases {
		if got := shantenOf(t, s, c.hand); got != c.want {
			t.Fatalf("%s 向听数期望 %d，得到 %d", c.hand, c.want, got)
		}
	}

	// 有副露时不计七对子和国士
	counts, _ := CountTiles(hand(t, "19m19p19s1234567z"))
	if got := s.ShantenAll(counts.Hand34(), 1); got <= 0 {
		t.Fatalf("有副露时不应该按国士听牌计算，得到 %d", got)
	}
}

func TestSearcherWithoutTiles(t *testing.T) {
	s := NewSearcher()
	defer s.Close()
	if got := s.Shanten(TileCounts{}); got != UnknownShanten {
		t.Fatalf("没有配牌时应该返回 UnknownShanten，得到 %d", got)
	}
}

func TestSearcherCacheIsBounded(t *testing.T) {
	const maxCost = 64
	s, err := NewBoundedSearcher(maxCost, time.Minute)
	if err != nil {
		t.Fatalf("创建 Searcher 失败: %v", err)
	}
	defer s.Close()

	rng := rand.New(rand.NewSource(1))
	keys := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		var h Hand34
		for n := 0; n < 13; {
			idx := rng.Intn(34)
			if h[idx] < 4 {
				h[idx]++
				n++
			}
		}
		want := s.ShantenNormal(h, 0)
		if got := s.ShantenAll(h, 0); got > want {
			t.Fatalf("向听数不应该大于一般型: %d > %d", got, want)
		}
		keys = append(keys, h.keyWithFixedMelds(0))
	}

	cached := 0
	for _, key := range keys {
		if _, ok := s.cache.Get(key); ok {
			cached++
		}
	}
	if cached > maxCost {
		t.Fatalf("缓存条目 %d 超过上限 %d", cached, maxCost)
	}
}

func TestSearcherWithoutCache(t *testing.T) {
	s := &Searcher{}
	counts, _ := CountTiles(hand(t, "123m123p123s78m11z"))
	if got := s.Shanten(counts); got != 0 {
		t.Fatalf("不使用缓存时结果错误: %d", got)
	}
	s.Close()
}

func TestSearcherConcurrent(t *testing.T) {
	s := NewSearcher()
	defer s.Close()
	counts, _ := CountTiles(hand(t, "123m123p123s78m11z"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := s.Shanten(counts); got != 0 {
				t.Errorf("并发计算结果错误: %d", got)
			}
		}()
	}
	wg.Wait()
}

func TestShantenFunc(t *testing.T) {
	var calc ShantenCalculator = ShantenFunc(func(c TileCounts) int { return c.Total() })
	counts, _ := CountTiles([]string{"1m", "2m"})
	if calc.Shanten(counts) != 2 {
		t.Fatalf("ShantenFunc 应该直接调用函数")
	}
}

// 配牌向听数是解析牌谱时唯一的重计算
func BenchmarkSearcherShanten(b *testing.B) {
	hands := []string{
		"19m19p19s1234567z",
		"123m456p789s1122z",
		"1357m2468p159s11z",
		"2345678m234p5566s",
	}
	counts := make([]TileCounts, len(hands))
	for i, h := range hands {
		c, err := CountTiles(hand(b, h))
		if err != nil {
			b.Fatalf("统计手牌失败: %v", err)
		}
		counts[i] = c
	}

	b.Run("cached", func(b *testing.B) {
		s := NewSearcher()
		defer s.Close()
		for i := 0; i < b.N; i++ {
			_ = s.Shanten(counts[i%len(counts)])
		}
	})
	b.Run("no-cache", func(b *testing.B) {
		s := &Searcher{}
		for i := 0; i < b.N; i++ {
			_ = s.Shanten(counts[i%len(counts)])
		}
	})
}
