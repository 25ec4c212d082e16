package majsoul

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/common/metrics"
	"github.com/kaguyact/majsoul-api/core/domain/record"
	"github.com/kaguyact/majsoul-api/framework/conn"
	"github.com/kaguyact/majsoul-api/framework/protocol"
	"github.com/kaguyact/majsoul-api/framework/rpc"
)

const (
	// oauthType 雀魂国际服的第三方登录类型
	oauthType     = 8
	errorsBuffer  = 64
	// rejoinTimeout 离开并重新加入比赛房间的总超时
	rejoinTimeout = 10 * time.Second
)

var (
	accountRetryDelay = 2 * time.Second
	currencyPlatforms = []int{2, 9}
	defaultDeviceInfo = clientDeviceInfo{Platform: "pc", Hardware: "pc", OS: "windows", OSVersion: "win10", IsBrowser: true, Software: "Chrome", SalePlatform: "web"}
)

// transport Api 对连接的全部要求，conn.Connection 满足该接口
type transport interface {
	rpc.Transport
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Errors() <-chan error
	IsOpen() bool
	Close()
}

type options struct {
	serverIndex       int
	proxy             string
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

type Option func(*options)

// WithServerIndex 指定使用服务器列表中的第几个网关，小于 0 时随机选择
func WithServerIndex(i int) Option {
	return func(o *options) {
		o.serverIndex = i
	}
}

func WithProxy(proxy string) Option {
	return func(o *options) {
		o.proxy = proxy
	}
}

// WithHeartbeat interval 为 0 时不发送心跳
func WithHeartbeat(interval, timeout time.Duration) Option {
	return func(o *options) {
		o.heartbeatInterval = interval
		o.heartbeatTimeout = timeout
	}
}

/*
	Api 雀魂大厅服务的客户端门面。
	一个 Api 对应一条网关连接：请求走 Lobby 服务，连接错误和心跳失败合并到 Errors，
	服务端推送按订阅分发。断线后由调用方决定何时 Reconnect 并重新登录。
*/
type Api struct {
	resources     *ApiResources
	codec         *protocol.Codec
	transport     transport
	dispatcher    *rpc.Dispatcher
	lobby         *rpc.Service
	clientVersion string
	opts          options

	errors chan error

	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	contestRefs map[int]int

	quit      chan struct{}
	wg        sync.WaitGroup
	initOnce  sync.Once
	closeOnce sync.Once
}

func NewApi(resources *ApiResources, opts ...Option) (*Api, error) {
	o := options{
		serverIndex:       -1,
		heartbeatInterval: time.Minute,
		heartbeatTimeout:  3 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	schema, err := protocol.LoadSchema(resources.ProtobufDefinition)
	if err != nil {
		return nil, err
	}
	server, err := pickServer(resources.ServerList.Servers, o.serverIndex)
	if err != nil {
		return nil, err
	}
	t := conn.NewConnection(server, conn.WithProxy(o.proxy))
	return newApi(resources, protocol.NewCodec(schema), t, o), nil
}

func newApi(resources *ApiResources, codec *protocol.Codec, t transport, o options) *Api {
	dispatcher := rpc.NewDispatcher(codec, t)
	a := &Api{
		resources:     resources,
		codec:         codec,
		transport:     t,
		dispatcher:    dispatcher,
		lobby:         dispatcher.Service("Lobby"),
		clientVersion: clientVersionOf(resources.Version),
		opts:          o,
		errors:        make(chan error, errorsBuffer),
		subscribers:   make(map[*Subscription]struct{}),
		contestRefs:   make(map[int]int),
		quit:          make(chan struct{}),
	}
	a.wg.Add(2)
	go a.watchErrors()
	go a.dispatchNotifications()
	return a
}

// clientVersionOf 资源版本 0.10.123.w -> web-0.10.123
func clientVersionOf(version string) string {
	if len(version) < 2 {
		return "web-" + version
	}
	return "web-" + version[:len(version)-2]
}

func pickServer(servers []string, index int) (string, error) {
	if len(servers) == 0 {
		return "", ErrNoServer
	}
	if index >= len(servers) {
		log.Warn("服务器序号 %d 超出范围 (共 %d 个), 随机选择", index, len(servers))
		index = -1
	}
	if index < 0 {
		index = rand.Intn(len(servers))
	}
	server := servers[index]
	if !strings.Contains(server, "://") {
		server = "wss://" + server
	}
	return server, nil
}

func (a *Api) Codec() *protocol.Codec {
	return a.codec
}

func (a *Api) Resources() *ApiResources {
	return a.resources
}

func (a *Api) ClientVersion() string {
	return a.clientVersion
}

func (a *Api) Server() string {
	if c, ok := a.transport.(*conn.Connection); ok {
		return c.Server()
	}
	return ""
}

// Init 建立连接并开始发送心跳
func (a *Api) Init(ctx context.Context) error {
	if a.disposed() {
		return ErrDisposed
	}
	if err := a.transport.Connect(ctx); err != nil {
		return err
	}
	a.initOnce.Do(func() {
		if a.opts.heartbeatInterval > 0 {
			a.wg.Add(1)
			go a.heartbeat()
		}
	})
	return nil
}

// Reconnect 断开旧连接重新拨号，挂起的调用以传输错误失败。重连后需要重新登录。
func (a *Api) Reconnect(ctx context.Context) error {
	if a.disposed() {
		return ErrDisposed
	}
	metrics.Reconnects.Inc()
	a.dispatcher.Abort(fmt.Errorf("%w: 重新连接", conn.ErrTransport))
	return a.transport.Reconnect(ctx)
}

func (a *Api) IsOpen() bool {
	return a.transport.IsOpen()
}

// Errors 连接错误（conn.ErrTransport / conn.ErrConnectionClosed）与心跳失败（ErrHeartbeat），Dispose 后关闭
func (a *Api) Errors() <-chan error {
	return a.errors
}

// Notifications 订阅全部服务端推送
func (a *Api) Notifications() *Subscription {
	return a.subscribe(nil)
}

// Dispose 关闭连接，挂起的调用和订阅全部结束
func (a *Api) Dispose() {
	a.closeOnce.Do(func() {
		close(a.quit)
		a.transport.Close()
		a.dispatcher.Close()
		a.wg.Wait()
		close(a.errors)
	})
}

func (a *Api) disposed() bool {
	select {
	case <-a.quit:
		return true
	default:
		return false
	}
}

func (a *Api) emitError(err error) {
	select {
	case a.errors <- err:
	default:
		log.Warn("错误缓冲已满, 丢弃: %v", err)
	}
}

func (a *Api) watchErrors() {
	defer a.wg.Done()
	errs := a.transport.Errors()
	for {
		select {
		case err := <-errs:
			if !errors.Is(err, conn.ErrConnectionClosed) {
				a.dispatcher.Abort(err)
			}
			a.emitError(err)
		case <-a.quit:
			return
		}
	}
}

func (a *Api) heartbeat() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.opts.heartbeatInterval)
	defer ticker.Stop()

	counter := 0
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), a.opts.heartbeatTimeout)
			err := a.lobby.Call(ctx, "heatbeat", &reqHeartbeat{NoOperationCounter: counter}, nil)
			cancel()
			counter++
			if err != nil && !a.disposed() {
				log.Warn("心跳失败: %v", err)
				a.emitError(fmt.Errorf("%w: %v", ErrHeartbeat, err))
			}
		case <-a.quit:
			return
		}
	}
}

// LogIn 使用第三方授权登录：oauth2Auth -> oauth2Check -> oauth2Login
func (a *Api) LogIn(ctx context.Context, passport Passport) (*Account, error) {
	var auth resOauth2Auth
	err := a.lobby.Call(ctx, "oauth2Auth", &reqOauth2Auth{
		Type:                oauthType,
		Code:                passport.AccessToken,
		Uid:                 passport.Uid,
		ClientVersionString: a.clientVersion,
	}, &auth)
	if err != nil {
		return nil, fmt.Errorf("oauth2Auth: %w", err)
	}

	check, err := a.oauth2Check(ctx, auth.AccessToken)
	if err != nil {
		return nil, err
	}
	if !check.HasAccount {
		log.Warn("账号尚未创建, %s 后重试", accountRetryDelay)
		select {
		case <-time.After(accountRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if _, err := a.oauth2Check(ctx, auth.AccessToken); err != nil {
			return nil, err
		}
	}

	var login resLogin
	err = a.lobby.Call(ctx, "oauth2Login", &reqOauth2Login{
		Type:                oauthType,
		AccessToken:         auth.AccessToken,
		Reconnect:           false,
		Device:              defaultDeviceInfo,
		RandomKey:           uuid.NewString(),
		ClientVersion:       clientVersionInfo{Resource: a.resources.Version},
		CurrencyPlatforms:   currencyPlatforms,
		ClientVersionString: a.clientVersion,
	}, &login)
	if err != nil {
		return nil, fmt.Errorf("oauth2Login: %w", err)
	}
	if login.Account == nil {
		return nil, ErrLoginFailed
	}

	account := &Account{AccountID: login.AccountID, Nickname: login.Account.Nickname}
	log.Info("以 %s (%d) 登录", account.Nickname, account.AccountID)
	return account, nil
}

func (a *Api) oauth2Check(ctx context.Context, accessToken string) (*resOauth2Check, error) {
	var check resOauth2Check
	err := a.lobby.Call(ctx, "oauth2Check", &reqOauth2Check{Type: oauthType, AccessToken: accessToken}, &check)
	if err != nil {
		return nil, fmt.Errorf("oauth2Check: %w", err)
	}
	return &check, nil
}

// FindContestByContestId 按比赛的友好 ID 查找，不存在时返回 nil
func (a *Api) FindContestByContestId(ctx context.Context, contestID int) (*Contest, error) {
	var res resFetchContest
	if err := a.lobby.Call(ctx, "fetchCustomizedContestByContestId", map[string]any{"contest_id": contestID}, &res); err != nil {
		return nil, err
	}
	if res.ContestInfo == nil {
		return nil, nil
	}
	info := res.ContestInfo
	return &Contest{
		MajsoulID:         info.UniqueID,
		MajsoulFriendlyID: info.ContestID,
		Name:              info.ContestName,
		CreatedTime:       info.CreateTime * 1000,
		StartTime:         info.StartTime * 1000,
		FinishTime:        info.FinishTime * 1000,
	}, nil
}

// GetContestGamesIds 翻页拉取比赛的全部牌谱 ID，返回时最早的在前
func (a *Api) GetContestGamesIds(ctx context.Context, uniqueID int) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})
	nextIndex := 0
	for {
		var res resContestGameRecords
		err := a.lobby.Call(ctx, "fetchCustomizedContestGameRecords", &reqContestGameRecords{
			UniqueID:  uniqueID,
			LastIndex: nextIndex,
		}, &res)
		if err != nil {
			return nil, err
		}
		for _, r := range res.RecordList {
			if _, ok := seen[r.UUID]; ok {
				continue
			}
			seen[r.UUID] = struct{}{}
			ids = append(ids, r.UUID)
		}
		if res.NextIndex == 0 || len(res.RecordList) == 0 {
			break
		}
		nextIndex = res.NextIndex
	}

	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// FindPlayerByFriendlyId 按好友 ID 查找玩家，找不到时返回 nil
func (a *Api) FindPlayerByFriendlyId(ctx context.Context, friendlyID int) (*Player, error) {
	var search resSearchAccount
	if err := a.lobby.Call(ctx, "searchAccountByPattern", &reqSearchAccount{Pattern: strconv.Itoa(friendlyID)}, &search); err != nil {
		return nil, err
	}
	if search.DecodeID == 0 {
		return nil, nil
	}

	var brief resMultiAccountBrief
	if err := a.lobby.Call(ctx, "fetchMultiAccountBrief", &reqMultiAccountID{AccountIDList: []int{search.DecodeID}}, &brief); err != nil {
		return nil, err
	}
	if len(brief.Players) == 0 {
		return nil, nil
	}
	return &Player{MajsoulID: brief.Players[0].AccountID, Nickname: brief.Players[0].Nickname}, nil
}

// GetGame 拉取牌谱并解出其中的记录
func (a *Api) GetGame(ctx context.Context, gameUUID string) (*record.GameRecord, error) {
	var res struct {
		Head    record.RecordGame `json:"head"`
		Data    []byte            `json:"data"`
		DataURL string            `json:"data_url"`
	}
	err := a.lobby.Call(ctx, "fetchGameRecord", &reqGameRecord{
		GameUUID:            gameUUID,
		ClientVersionString: a.clientVersion,
	}, &res)
	if err != nil {
		return nil, err
	}

	game := &record.GameRecord{Head: res.Head, Data: res.Data, DataURL: res.DataURL}
	if len(game.Data) == 0 {
		if game.DataURL != "" {
			log.Warn("牌谱 %s 只有外部地址 %s, 不解析记录", gameUUID, game.DataURL)
		}
		return game, nil
	}
	records, err := record.DecodeDetailRecords(a.codec, game.Data)
	if err != nil {
		return nil, fmt.Errorf("牌谱 %s: %w", gameUUID, err)
	}
	game.Records = records
	return game, nil
}

// SubscribeToContestChatSystemMessages 订阅比赛房间的系统消息。
// 同一场比赛的多个订阅共用一次 join，最后一个订阅关闭时离开房间。
func (a *Api) SubscribeToContestChatSystemMessages(ctx context.Context, uniqueID int) (*Subscription, error) {
	a.mu.Lock()
	a.contestRefs[uniqueID]++
	first := a.contestRefs[uniqueID] == 1
	a.mu.Unlock()

	if first {
		if err := a.lobby.Call(ctx, "joinCustomizedContestChatRoom", &reqUniqueID{UniqueID: uniqueID}, nil); err != nil {
			a.releaseContest(uniqueID, false)
			return nil, err
		}
		log.Info("加入比赛 %d 的房间", uniqueID)
	}

	sub := a.subscribe(func(n *protocol.Notification) bool {
		id, ok := uniqueIDOf(n)
		return ok && id == uniqueID
	})
	sub.release = func() { a.releaseContest(uniqueID, true) }
	return sub, nil
}

// releaseContest 最后一个订阅离开时退出房间，服务端只支持整体离开，所以要重新加入其余比赛
func (a *Api) releaseContest(uniqueID int, leave bool) {
	a.mu.Lock()
	a.contestRefs[uniqueID]--
	if a.contestRefs[uniqueID] > 0 {
		a.mu.Unlock()
		return
	}
	delete(a.contestRefs, uniqueID)
	remaining := make([]int, 0, len(a.contestRefs))
	for id := range a.contestRefs {
		remaining = append(remaining, id)
	}
	a.mu.Unlock()

	if !leave || a.disposed() {
		return
	}
	go a.rejoinContests(uniqueID, remaining)
}

func (a *Api) rejoinContests(left int, remaining []int) {
	ctx, cancel := context.WithTimeout(context.Background(), rejoinTimeout)
	defer cancel()

	if err := a.lobby.Call(ctx, "leaveCustomizedContestChatRoom", nil, nil); err != nil {
		log.Warn("离开比赛 %d 的房间失败: %v", left, err)
		return
	}
	for _, id := range remaining {
		if err := a.lobby.Call(ctx, "joinCustomizedContestChatRoom", &reqUniqueID{UniqueID: id}, nil); err != nil {
			log.Warn("重新加入比赛 %d 的房间失败: %v", id, err)
		}
	}
}

// RejoinContests 重连登录后恢复所有仍有订阅的比赛房间
func (a *Api) RejoinContests(ctx context.Context) error {
	a.mu.Lock()
	ids := make([]int, 0, len(a.contestRefs))
	for id := range a.contestRefs {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		if err := a.lobby.Call(ctx, "joinCustomizedContestChatRoom", &reqUniqueID{UniqueID: id}, nil); err != nil {
			return fmt.Errorf("重新加入比赛 %d: %w", id, err)
		}
	}
	return nil
}
