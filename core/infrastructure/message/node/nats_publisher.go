package node

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/core/domain/entity"
	"github.com/kaguyact/majsoul-api/core/infrastructure/message/transfer"
)

var (
	ErrPublisherClosed = errors.New("publisher 已关闭")
	ErrPublishChanFull = errors.New("发布缓冲已满")
)

// NatsPublisher 把采集结果异步发布到 nats，发布失败只记录日志
type NatsPublisher struct {
	NatsCli   Client
	source    string
	prefix    string
	writeChan chan *transfer.EventPacket

	mu      sync.RWMutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewNatsPublisher source 标识本进程，prefix 为 subject 前缀
func NewNatsPublisher(source, prefix string) *NatsPublisher {
	return newNatsPublisher(NewNatsClient(source), source, prefix)
}

func newNatsPublisher(cli Client, source, prefix string) *NatsPublisher {
	return &NatsPublisher{
		NatsCli:   cli,
		source:    source,
		prefix:    strings.TrimSuffix(prefix, "."),
		writeChan: make(chan *transfer.EventPacket, 1024),
		done:      make(chan struct{}),
	}
}

// Run url nats 服务的地址
func (p *NatsPublisher) Run(url string) error {
	if err := p.NatsCli.Run(url); err != nil {
		return err
	}
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	go p.writeChanMessage()
	return nil
}

func (p *NatsPublisher) subject(route string) string {
	if p.prefix == "" {
		return route
	}
	return p.prefix + "." + route
}

func (p *NatsPublisher) writeChanMessage() {
	defer close(p.done)
	for packet := range p.writeChan {
		data, err := json.Marshal(packet)
		if err != nil {
			log.Error("nats 消息序列化失败, route: %s, err: %v", packet.Route, err)
			continue
		}
		if err := p.NatsCli.SendMessage(p.subject(packet.Route), data); err != nil {
			log.Error("nats 发送错误, route: %s, err: %v", packet.Route, err)
		}
	}
}

func (p *NatsPublisher) publish(route string, contestID int, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	packet := &transfer.EventPacket{
		Route:     route,
		Source:    p.source,
		ContestID: contestID,
		Time:      time.Now().UnixMilli(),
		Body:      raw,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.writeChan <- packet:
		return nil
	default:
		log.Warn("nats 发布缓冲已满, 丢弃 %s", route)
		return ErrPublishChanFull
	}
}

// PublishGameResult 发布解析完成的对局摘要
func (p *NatsPublisher) PublishGameResult(contestID int, result *entity.GameResult) error {
	return p.publish(transfer.GameParsed, contestID, transfer.NewGameSummary(result))
}

// PublishGameAborted 发布无法解析的牌谱
func (p *NatsPublisher) PublishGameAborted(contestID int, majsoulID, reason string) error {
	return p.publish(transfer.GameAborted, contestID, &transfer.GameAbort{MajsoulID: majsoulID, Reason: reason})
}

// PublishContestMessage 转发比赛系统消息
func (p *NatsPublisher) PublishContestMessage(contestID int, msg *transfer.ContestMessage) error {
	return p.publish(transfer.ContestSystemMessage, contestID, msg)
}

// Close 发送完缓冲中的消息后关闭连接
func (p *NatsPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.writeChan)
	started := p.started
	p.mu.Unlock()

	if started {
		select {
		case <-p.done:
		case <-time.After(5 * time.Second):
			log.Warn("nats 发布缓冲没有在 5 秒内发送完")
		}
	}
	if p.NatsCli != nil {
		_ = p.NatsCli.Close()
	}
}
