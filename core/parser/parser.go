package parser

import (
	"sort"

	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/common/metrics"
	"github.com/kaguyact/majsoul-api/core/domain/entity"
	"github.com/kaguyact/majsoul-api/core/domain/record"
	"github.com/kaguyact/majsoul-api/framework/game/engines/mahjong"
)

/*
	Parser 把牌谱记录按顺序折叠成每一局的结果。
	解析过程没有 IO，也不共享可变状态，同一个 Parser 可以并发解析不同的牌谱。

	牌谱必须以 NewRound 开头，否则整场放弃，不输出部分结果。
*/
type Parser struct {
	shanten mahjong.ShantenCalculator
}

// New shanten 为 nil 时使用默认的 mahjong.Searcher
func New(shanten mahjong.ShantenCalculator) *Parser {
	if shanten == nil {
		shanten = mahjong.NewSearcher()
	}
	return &Parser{shanten: shanten}
}

var defaultParser = New(nil)

// ParseGameRecordResponse 使用默认的向听数计算器
func ParseGameRecordResponse(game *record.GameRecord) *entity.GameResult {
	return defaultParser.ParseGameRecordResponse(game)
}

// ParseGameRecordResponse 解析整场牌谱，没有数据或者不以 NewRound 开头时返回 nil
func (p *Parser) ParseGameRecordResponse(game *record.GameRecord) *entity.GameResult {
	if game.Empty() {
		log.Warn("牌谱没有数据")
		metrics.ParsedGames.WithLabelValues("empty").Inc()
		return nil
	}

	rounds := p.ParseRounds(game.Records)
	if rounds == nil {
		log.Warn("牌谱 %s 不以 RecordNewRound 开头, 放弃解析", game.Head.UUID)
		metrics.ParsedGames.WithLabelValues("aborted").Inc()
		return nil
	}

	result := buildGameResult(&game.Head)
	result.Rounds = rounds
	metrics.ParsedGames.WithLabelValues("ok").Inc()
	log.Debug("牌谱 %s 解析完成, 共 %d 局", game.Head.UUID, len(rounds))
	return result
}

// ParseRounds 折叠记录，第一条不是 NewRound 时返回 nil
func (p *Parser) ParseRounds(records []record.Record) []entity.RoundResult {
	if len(records) == 0 {
		return nil
	}
	if _, ok := records[0].(*record.NewRound); !ok {
		return nil
	}

	rounds := make([]entity.RoundResult, 0, 8)
	var state *RoundParseState
	for i, r := range records {
		var next record.Record
		if i+1 < len(records) {
			next = records[i+1]
		}

		var result *entity.RoundResult
		switch rec := r.(type) {
		case *record.NewRound:
			state = p.newRound(rec)
		case *record.DiscardTile:
			onDiscardTile(state, rec, next)
		case *record.DealTile:
			onDealTile(state, rec)
		case *record.AnGangAddGang:
			onAnGangAddGang(state, rec)
		case *record.ChiPengGang:
			onChiPengGang(state, rec)
		case *record.NoTile:
			result = onNoTile(state, rec)
		case *record.Hule:
			result = onHule(state, rec)
		case *record.Unknown:
			log.Debug("跳过记录 %s", rec.Name)
		default:
			log.Warn("跳过未知记录 %T", rec)
		}

		if result != nil {
			metrics.ParsedRounds.WithLabelValues(result.Outcome()).Inc()
			rounds = append(rounds, *result)
		}
	}
	return rounds
}

func (p *Parser) newRound(rec *record.NewRound) *RoundParseState {
	state := newRoundParseState(entity.RoundInfo{
		Round:      rec.Chang,
		Dealership: rec.Ju,
		Repeat:     rec.Ben,
	})
	for seat := range state.Stats {
		state.Stats[seat].HaipaiShanten = p.shanten.Shanten(countHand(rec.Tiles(seat)))
	}
	return state
}

// countHand 非法的牌记录日志后跳过
func countHand(tiles []string) mahjong.TileCounts {
	var counts mahjong.TileCounts
	for _, s := range tiles {
		t, err := mahjong.ParseTile(s)
		if err != nil {
			log.Warn("配牌中有无法识别的牌: %v", err)
			continue
		}
		counts[t.Type.Suit()][t.Type.Rank()-1]++
	}
	return counts
}

func onDiscardTile(state *RoundParseState, rec *record.DiscardTile, next record.Record) {
	state.LosingSeat = rec.Seat
	player := state.player(rec.Seat)
	if player == nil {
		return
	}

	if rec.Riichi() {
		player.FinalHandState = entity.FinalHandState{
			Status:  entity.HandRiichi,
			Index:   state.riichiCount(),
			Furiten: rec.Furiten(),
		}
	}

	if len(rec.Operations) == 0 || next == nil {
		return
	}

	switch n := next.(type) {
	case *record.Hule:
		// 有人荣和，其他人都不能鸣牌
		return
	case *record.ChiPengGang:
		// 碰和明杠优先于吃，只算鸣牌的人
		if n.Type != record.CallChi {
			if caller := state.player(n.Seat); caller != nil {
				caller.Calls.Opportunities++
			}
			return
		}
	}

	seen := make(map[int]bool, len(rec.Operations))
	for _, ops := range rec.Operations {
		if seen[ops.Seat] || !ops.HasCall() {
			continue
		}
		seen[ops.Seat] = true
		if p := state.player(ops.Seat); p != nil {
			p.Calls.Opportunities++
		}
	}
}

func onDealTile(state *RoundParseState, rec *record.DealTile) {
	if rec.Operation == nil {
		return
	}
	player := state.player(rec.Seat)
	if player == nil {
		return
	}
	for _, op := range rec.Operation.OperationList {
		if op.Type != record.OperationAnKan && op.Type != record.OperationAddKan {
			continue
		}
		if len(op.Combination) == 0 {
			continue
		}
		if state.lockKan(op.Combination[0]) {
			player.Calls.Opportunities++
		} else {
			player.Calls.RepeatOpportunities++
		}
	}
}

func onAnGangAddGang(state *RoundParseState, rec *record.AnGangAddGang) {
	if player := state.player(rec.Seat); player != nil {
		player.Calls.Total++
		switch rec.Type {
		case record.KanShouminkan:
			player.Calls.Kans.Shouminkan++
		case record.KanAnkan:
			player.Calls.Kans.Ankan++
		}
	}
	state.LosingSeat = rec.Seat
}

func onChiPengGang(state *RoundParseState, rec *record.ChiPengGang) {
	player := state.player(rec.Seat)
	if player == nil {
		return
	}
	player.Calls.Total++
	if rec.Type == record.CallDaiminkan {
		player.Calls.Kans.Daiminkan++
	}
	if player.FinalHandState.Status != entity.HandOpen {
		player.FinalHandState = entity.FinalHandState{Status: entity.HandOpen}
	}
}

func onNoTile(state *RoundParseState, rec *record.NoTile) *entity.RoundResult {
	statuses := make([]entity.DrawStatus, len(rec.Players))
	for seat, p := range rec.Players {
		switch {
		case rec.Liujumanguan && rec.HasScore(seat):
			statuses[seat] = entity.DrawNagashiMangan
		case p.Tingpai:
			statuses[seat] = entity.DrawTenpai
		default:
			statuses[seat] = entity.DrawNoten
		}
	}
	return &entity.RoundResult{
		Round:       state.Round,
		Draw:        &entity.DrawResult{PlayerDrawStatus: statuses},
		PlayerStats: state.snapshot(),
	}
}

func onHule(state *RoundParseState, rec *record.Hule) *entity.RoundResult {
	if len(rec.Hules) == 0 {
		log.Warn("和牌记录中没有和牌信息")
		return nil
	}

	if first := rec.Hules[0]; first.Zimo {
		agari := mahjong.ComputeAgariValue(first.Agari(), state.Round.Dealership, rec.DeltaScores)
		if agari.HasHan(mahjong.AfterAKan) {
			if p := state.player(first.Seat); p != nil {
				p.Calls.Kans.Rinshan++
			}
		}
		return &entity.RoundResult{
			Round: state.Round,
			Tsumo: &entity.TsumoResult{
				AgariInfo:   entity.NewAgariInfo(agari),
				DealerValue: first.PointZimoQin,
			},
			PlayerStats: state.snapshot(),
		}
	}

	rons := make([]entity.RonResult, 0, len(rec.Hules))
	chankan := false
	for _, h := range rec.Hules {
		agari := mahjong.ComputeAgariValue(h.Agari(), state.Round.Dealership, rec.DeltaScores)
		if agari.HasHan(mahjong.RobbingAKan) {
			chankan = true
		}
		rons = append(rons, entity.RonResult{
			AgariInfo: entity.NewAgariInfo(agari),
			Loser:     state.LosingSeat,
		})
	}
	if chankan && state.LosingSeat != noSeat {
		if p := state.player(state.LosingSeat); p != nil {
			p.Calls.Kans.ShouminkanRobbed++
		}
	}
	return &entity.RoundResult{
		Round:       state.Round,
		Rons:        rons,
		PlayerStats: state.snapshot(),
	}
}

// buildGameResult 牌谱头中的规则、玩家和终局点数
func buildGameResult(head *record.RecordGame) *entity.GameResult {
	result := entity.NewGameResult(head.UUID, head.StartTime, head.EndTime)
	if rule := head.Config.DetailRule(); rule != nil {
		result.Config = entity.GameConfig{
			AiLevel:          rule.AiLevel,
			RiichiStickValue: rule.LiqibangValue,
		}
	}
	if head.Config != nil && head.Config.Meta != nil {
		result.ContestMajsoulID = head.Config.Meta.ContestUID
	}

	var items []record.PlayerItem
	if head.Result != nil {
		items = append(items, head.Result.Players...)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seat < items[j].Seat })

	result.Players = make([]*entity.PlayerRef, len(items))
	result.FinalScore = make([]entity.FinalScore, len(items))
	for i, item := range items {
		if account, ok := head.Account(item.Seat); ok {
			result.Players[i] = &entity.PlayerRef{
				Nickname:  account.Nickname,
				MajsoulID: account.AccountID,
			}
		}
		result.FinalScore[i] = entity.FinalScore{
			Score: item.PartPoint1,
			Uma:   item.TotalPoint,
		}
	}
	return result
}
