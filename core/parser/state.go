package parser

import (
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/core/domain/entity"
)

// noSeat 还没有人出牌或开杠
const noSeat = -1

// RoundParseState 一局内的可变状态，每次 NewRound 重新初始化，只在一次解析中使用
type RoundParseState struct {
	Round entity.RoundInfo
	Stats [entity.PlayerCount]entity.PlayerStats
	// KanLock 本局已经出现过的杠机会，按组合的第一张牌去重
	KanLock map[string]struct{}
	// LosingSeat 最近一次出牌或加杠的座位，用于确定放铳者
	LosingSeat int
}

func newRoundParseState(round entity.RoundInfo) *RoundParseState {
	s := &RoundParseState{
		Round:      round,
		KanLock:    make(map[string]struct{}),
		LosingSeat: noSeat,
	}
	for i := range s.Stats {
		s.Stats[i].FinalHandState.Status = entity.HandClosed
	}
	return s
}

// player 越界时返回 nil
func (s *RoundParseState) player(seat int) *entity.PlayerStats {
	if seat < 0 || seat >= len(s.Stats) {
		log.Warn("牌谱中出现非法座位 %d", seat)
		return nil
	}
	return &s.Stats[seat]
}

// riichiCount 本局已经立直的人数
func (s *RoundParseState) riichiCount() int {
	n := 0
	for _, p := range s.Stats {
		if p.FinalHandState.Status == entity.HandRiichi {
			n++
		}
	}
	return n
}

// lockKan 第一次出现返回 true
func (s *RoundParseState) lockKan(tile string) bool {
	if _, ok := s.KanLock[tile]; ok {
		return false
	}
	s.KanLock[tile] = struct{}{}
	return true
}

// snapshot 统计数据的副本，之后的修改不会影响已经输出的结果
func (s *RoundParseState) snapshot() [entity.PlayerCount]entity.PlayerStats {
	return s.Stats
}
