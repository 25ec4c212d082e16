package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/common/utils"
	"github.com/kaguyact/majsoul-api/core/domain/entity"
	"github.com/kaguyact/majsoul-api/core/domain/record"
	"github.com/kaguyact/majsoul-api/core/domain/repository"
	"github.com/kaguyact/majsoul-api/core/infrastructure/cache"
	"github.com/kaguyact/majsoul-api/core/infrastructure/message/transfer"
	"github.com/kaguyact/majsoul-api/core/parser"
	"github.com/kaguyact/majsoul-api/framework/conn"
	"github.com/kaguyact/majsoul-api/framework/majsoul"
)

// MajsoulApi 采集器用到的雀魂接口，*majsoul.Api 满足该接口
type MajsoulApi interface {
	LogIn(ctx context.Context, passport majsoul.Passport) (*majsoul.Account, error)
	FindContestByContestId(ctx context.Context, contestID int) (*majsoul.Contest, error)
	GetContestGamesIds(ctx context.Context, uniqueID int) ([]string, error)
	GetGame(ctx context.Context, gameUUID string) (*record.GameRecord, error)
	FindPlayerByFriendlyId(ctx context.Context, friendlyID int) (*majsoul.Player, error)
	SubscribeToContestChatSystemMessages(ctx context.Context, uniqueID int) (*majsoul.Subscription, error)
	RejoinContests(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Errors() <-chan error
}

// Publisher 采集结果的下游通知
type Publisher interface {
	PublishGameResult(contestID int, result *entity.GameResult) error
	PublishGameAborted(contestID int, majsoulID, reason string) error
	PublishContestMessage(contestID int, msg *transfer.ContestMessage) error
}

// NopPublisher 没有配置 nats 时使用
type NopPublisher struct{}

func (NopPublisher) PublishGameResult(int, *entity.GameResult) error           { return nil }
func (NopPublisher) PublishGameAborted(int, string, string) error              { return nil }
func (NopPublisher) PublishContestMessage(int, *transfer.ContestMessage) error { return nil }

type Options struct {
	Passport     majsoul.Passport
	Contests     []int
	FetchRate    int
	ScanInterval time.Duration
	IndexTTL     time.Duration
}

var (
	// 请求超时
	callTimeout = 30 * time.Second
	// 重连退避上限
	maxBackoff = time.Minute
)

/*
	Collector 把比赛的牌谱持续同步到 mongodb：
	启动时登录并全量同步配置的比赛，之后跟随比赛房间的系统消息增量采集，并定期全量补齐。
	连接断开或心跳失败时重连、重新登录、重新加入房间后再补齐一次。
*/
type Collector struct {
	api       MajsoulApi
	results   repository.GameResultRepository
	index     repository.GameIndexRepository
	publisher Publisher
	players   *cache.PlayerCache
	parser    *parser.Parser
	limiter   *utils.RateLimiter
	opts      Options

	mu       sync.Mutex
	contests map[int]*majsoul.Contest
	subs     []*majsoul.Subscription
	wg       sync.WaitGroup
}

func NewCollector(api MajsoulApi, results repository.GameResultRepository, index repository.GameIndexRepository,
	publisher Publisher, players *cache.PlayerCache, opts Options) *Collector {
	if opts.FetchRate <= 0 {
		opts.FetchRate = 1
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 10 * time.Minute
	}
	return &Collector{
		api:       api,
		results:   results,
		index:     index,
		publisher: publisher,
		players:   players,
		parser:    parser.New(nil),
		limiter:   utils.NewRateLimiter(opts.FetchRate, 1),
		opts:      opts,
		contests:  make(map[int]*majsoul.Contest),
	}
}

// Run 阻塞直到 ctx 结束
func (c *Collector) Run(ctx context.Context) error {
	defer c.closeSubscriptions()

	if err := c.logIn(ctx); err != nil {
		return err
	}
	for _, id := range c.opts.Contests {
		contest, err := c.loadContest(ctx, id)
		if err != nil {
			return err
		}
		if contest == nil {
			continue
		}
		c.watchContest(ctx, contest)
	}
	c.syncAll(ctx)

	ticker := time.NewTicker(c.opts.ScanInterval)
	defer ticker.Stop()
	errs := c.api.Errors()
	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return nil
		case <-ticker.C:
			c.syncAll(ctx)
		case err, ok := <-errs:
			if !ok {
				c.wg.Wait()
				return majsoul.ErrDisposed
			}
			if !needsReconnect(err) {
				log.Warn("雀魂连接错误: %v", err)
				continue
			}
			log.Error("雀魂连接中断, 开始重连: %v", err)
			if err := c.recover(ctx); err != nil {
				c.wg.Wait()
				return err
			}
			c.syncAll(ctx)
		}
	}
}

// needsReconnect 传输错误之后一定跟着关闭标记，只在关闭标记和心跳失败时重连
func needsReconnect(err error) bool {
	return errors.Is(err, conn.ErrConnectionClosed) || errors.Is(err, majsoul.ErrHeartbeat)
}

func (c *Collector) logIn(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	_, err := c.api.LogIn(ctx, c.opts.Passport)
	if err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}
	return nil
}

// recover 指数退避重连，直到成功或 ctx 结束
func (c *Collector) recover(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.reconnect(ctx)
		if err == nil {
			log.Info("重连成功")
			return nil
		}
		log.Warn("重连失败, %s 后重试: %v", backoff, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Collector) reconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := c.api.Reconnect(ctx); err != nil {
		return err
	}
	if _, err := c.api.LogIn(ctx, c.opts.Passport); err != nil {
		return err
	}
	return c.api.RejoinContests(ctx)
}

func (c *Collector) loadContest(ctx context.Context, friendlyID int) (*majsoul.Contest, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	contest, err := c.api.FindContestByContestId(ctx, friendlyID)
	if err != nil {
		return nil, fmt.Errorf("查找比赛 %d 失败: %w", friendlyID, err)
	}
	if contest == nil {
		log.Warn("比赛 %d 不存在, 跳过", friendlyID)
		return nil, nil
	}
	log.Info("比赛 %d: %s (%d)", friendlyID, contest.Name, contest.MajsoulID)
	c.mu.Lock()
	c.contests[contest.MajsoulID] = contest
	c.mu.Unlock()
	return contest, nil
}

func (c *Collector) watchContest(ctx context.Context, contest *majsoul.Contest) {
	subCtx, cancel := context.WithTimeout(ctx, callTimeout)
	sub, err := c.api.SubscribeToContestChatSystemMessages(subCtx, contest.MajsoulID)
	cancel()
	if err != nil {
		log.Warn("订阅比赛 %d 的系统消息失败, 只做定期同步: %v", contest.MajsoulID, err)
		return
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case n, ok := <-sub.Notifications():
				if !ok {
					return
				}
				var msg majsoul.ContestSystemMessage
				if err := n.Decode(&msg); err != nil {
					log.Warn("比赛 %d 的通知 %s 无法解析: %v", contest.MajsoulID, n.Name, err)
					continue
				}
				c.onContestMessage(ctx, contest, &msg)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Collector) onContestMessage(ctx context.Context, contest *majsoul.Contest, msg *majsoul.ContestSystemMessage) {
	err := c.publisher.PublishContestMessage(contest.MajsoulID, &transfer.ContestMessage{
		UniqueID: msg.UniqueID,
		Type:     msg.Type,
		UUID:     msg.UUID,
	})
	if err != nil {
		log.Warn("发布比赛 %d 的系统消息失败: %v", contest.MajsoulID, err)
	}
	if msg.UUID == "" {
		return
	}
	if err := c.processGame(ctx, contest, msg.UUID); err != nil {
		log.Error("处理牌谱 %s 失败: %v", msg.UUID, err)
	}
}

func (c *Collector) closeSubscriptions() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (c *Collector) syncAll(ctx context.Context) {
	c.mu.Lock()
	contests := make([]*majsoul.Contest, 0, len(c.contests))
	for _, contest := range c.contests {
		contests = append(contests, contest)
	}
	c.mu.Unlock()

	for _, contest := range contests {
		n, err := c.SyncContest(ctx, contest)
		if err != nil {
			log.Error("同步比赛 %d 失败: %v", contest.MajsoulID, err)
			continue
		}
		if n > 0 {
			log.Info("比赛 %s 新增 %d 场对局", contest.Name, n)
		}
	}
}

// SyncContest 采集比赛中尚未处理的牌谱，返回成功处理的数量
func (c *Collector) SyncContest(ctx context.Context, contest *majsoul.Contest) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, callTimeout)
	ids, err := c.api.GetContestGamesIds(listCtx, contest.MajsoulID)
	cancel()
	if err != nil {
		return 0, err
	}

	todo, err := c.index.FilterUnprocessed(ctx, contest.MajsoulID, ids)
	if err != nil {
		log.Warn("读取牌谱索引失败, 全部重新处理: %v", err)
		todo = ids
	}

	processed := 0
	for _, uuid := range todo {
		if err := c.processGame(ctx, contest, uuid); err != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			log.Error("处理牌谱 %s 失败: %v", uuid, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// processGame 拉取、解析、保存并发布一场对局。无法解析的牌谱同样记入索引，不再重试。
func (c *Collector) processGame(ctx context.Context, contest *majsoul.Contest, uuid string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, callTimeout)
	game, err := c.api.GetGame(fetchCtx, uuid)
	cancel()
	if err != nil {
		return err
	}

	result := c.parser.ParseGameRecordResponse(game)
	if result == nil {
		if err := c.publisher.PublishGameAborted(contest.MajsoulID, uuid, "牌谱无法解析"); err != nil {
			log.Warn("发布牌谱 %s 解析失败的消息失败: %v", uuid, err)
		}
		return c.index.MarkProcessed(ctx, contest.MajsoulID, uuid, c.opts.IndexTTL)
	}
	if result.ContestMajsoulID == 0 {
		result.ContestMajsoulID = contest.MajsoulID
	}

	if err := c.results.SaveGameResult(ctx, result); err != nil {
		return err
	}
	if err := c.index.MarkProcessed(ctx, contest.MajsoulID, uuid, c.opts.IndexTTL); err != nil {
		log.Warn("记录牌谱 %s 索引失败: %v", uuid, err)
	}
	if err := c.publisher.PublishGameResult(contest.MajsoulID, result); err != nil {
		log.Warn("发布牌谱 %s 失败: %v", uuid, err)
	}
	log.Debug("牌谱 %s 已保存, 共 %d 局", uuid, len(result.Rounds))
	return nil
}

// LookupPlayer 按好友 ID 查找玩家，结果缓存在本地
func (c *Collector) LookupPlayer(ctx context.Context, friendlyID int) (*entity.PlayerRef, error) {
	return c.players.Lookup(ctx, friendlyID, func(ctx context.Context, id int) (*entity.PlayerRef, error) {
		p, err := c.api.FindPlayerByFriendlyId(ctx, id)
		if err != nil || p == nil {
			return nil, err
		}
		return &entity.PlayerRef{Nickname: p.Nickname, MajsoulID: p.MajsoulID}, nil
	})
}
