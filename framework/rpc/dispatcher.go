package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/common/metrics"
	"github.com/kaguyact/majsoul-api/framework/protocol"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Transport dispatcher 需要的连接能力，conn.Connection 满足该接口
type Transport interface {
	Send(kind protocol.MessageType, data []byte) error
	Messages() <-chan protocol.Message
}

const notificationBuffer = 1024

/*
	Dispatcher 把请求和响应按请求 ID 配对。
	挂起调用表只由 run 协程读写，调用方通过 register / cancel / abort 三个 channel 与它通信，
	响应的原始包体交还给调用方，由调用方在自己的协程里按方法的响应类型解码。

	数据流向 Transport.Messages -> run -> pendingCall.done / notifications
*/
type Dispatcher struct {
	codec     *protocol.Codec
	transport Transport

	register      chan *pendingCall
	cancel        chan *pendingCall
	abort         chan error
	notifications chan *protocol.Notification

	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type pendingCall struct {
	method string
	id     uint16
	// 由 run 协程回填请求 ID
	registered chan registration
	done       chan callResult
}

type registration struct {
	id  uint16
	err error
}

type callResult struct {
	data []byte
	err  error
}

func NewDispatcher(codec *protocol.Codec, transport Transport) *Dispatcher {
	d := &Dispatcher{
		codec:         codec,
		transport:     transport,
		register:      make(chan *pendingCall),
		cancel:        make(chan *pendingCall, 64),
		abort:         make(chan error),
		notifications: make(chan *protocol.Notification, notificationBuffer),
		quit:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go d.run()
	return d
}

// Notifications 服务端推送，不会与任何调用配对。dispatcher 关闭后 channel 关闭。
func (d *Dispatcher) Notifications() <-chan *protocol.Notification {
	return d.notifications
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	defer close(d.notifications)

	pending := make(map[uint16]*pendingCall)
	var lastID uint16
	messages := d.transport.Messages()

	failAll := func(err error) {
		for id, call := range pending {
			call.done <- callResult{err: err}
			delete(pending, id)
		}
	}

	for {
		select {
		case call := <-d.register:
			id, ok := nextRequestID(lastID, pending)
			if !ok {
				call.registered <- registration{err: ErrTooManyPending}
				continue
			}
			lastID = id
			call.id = id
			pending[id] = call
			call.registered <- registration{id: id}
		case call := <-d.cancel:
			if pending[call.id] == call {
				delete(pending, call.id)
			}
		case err := <-d.abort:
			if len(pending) > 0 {
				log.Warn("连接中断, 放弃 %d 个挂起的调用: %v", len(pending), err)
			}
			failAll(err)
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			d.handle(msg, pending)
		case <-d.quit:
			failAll(ErrClosed)
			metrics.PendingCalls.Set(0)
			return
		}
		metrics.PendingCalls.Set(float64(len(pending)))
	}
}

func (d *Dispatcher) handle(msg protocol.Message, pending map[uint16]*pendingCall) {
	frame, err := d.codec.DecodeBody(msg.Type, msg.Data)
	if err != nil {
		log.Warn("无法解码 %s 帧: %v", msg.Type, err)
		return
	}
	switch frame.Kind {
	case protocol.Response:
		call, ok := pending[frame.RequestID]
		if !ok {
			log.Warn("收到未知请求 ID %d 的响应, 丢弃", frame.RequestID)
			return
		}
		delete(pending, frame.RequestID)
		call.done <- callResult{data: frame.Data}
	case protocol.Notify:
		metrics.Notifications.WithLabelValues(strings.TrimPrefix(frame.Name, ".")).Inc()
		n := &protocol.Notification{Name: frame.Name, Message: frame.Message}
		select {
		case d.notifications <- n:
		default:
			log.Warn("通知缓冲已满, 丢弃 %s", frame.Name)
		}
	case protocol.Request:
		log.Warn("忽略服务端发来的请求 %s", frame.Name)
	}
}

// nextRequestID 从 last 之后找一个未被占用的 ID，跳过 0
func nextRequestID(last uint16, pending map[uint16]*pendingCall) (uint16, bool) {
	id := last
	for i := 0; i < 1<<16; i++ {
		id++
		if id == 0 {
			continue
		}
		if _, busy := pending[id]; !busy {
			return id, true
		}
	}
	return 0, false
}

// Call 发起一次调用并等待响应。method 为方法全名（.lq.Lobby.fetchGameRecord），
// resp 为 nil 时丢弃响应内容。没有内置超时，由 ctx 控制。
func (d *Dispatcher) Call(ctx context.Context, method string, req, resp any) error {
	m, err := d.codec.Schema().Method(method)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrEncode, err)
	}
	label := m.Name

	call := &pendingCall{
		method:     m.Name,
		registered: make(chan registration, 1),
		done:       make(chan callResult, 1),
	}
	select {
	case d.register <- call:
	case <-d.stopped:
		return ErrClosed
	case <-ctx.Done():
		return d.contextError(label, ctx)
	}
	reg := <-call.registered
	if reg.err != nil {
		metrics.RpcCalls.WithLabelValues(label, "error").Inc()
		return reg.err
	}

	body, err := d.codec.EncodeBody(protocol.Request, reg.id, method, req)
	if err == nil {
		err = d.transport.Send(protocol.Request, body)
	}
	if err != nil {
		d.forget(call)
		metrics.RpcCalls.WithLabelValues(label, "error").Inc()
		return err
	}

	var res callResult
	select {
	case res = <-call.done:
	case <-ctx.Done():
		d.forget(call)
		return d.contextError(label, ctx)
	}
	if res.err != nil {
		metrics.RpcCalls.WithLabelValues(label, "aborted").Inc()
		return res.err
	}

	if err := d.decodeResponse(m, res.data, resp); err != nil {
		metrics.RpcCalls.WithLabelValues(label, "error").Inc()
		return err
	}
	metrics.RpcCalls.WithLabelValues(label, "ok").Inc()
	return nil
}

func (d *Dispatcher) contextError(method string, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.RpcCalls.WithLabelValues(method, "timeout").Inc()
		return fmt.Errorf("%w: %s: %w", ErrTimeout, method, ctx.Err())
	}
	metrics.RpcCalls.WithLabelValues(method, "canceled").Inc()
	return ctx.Err()
}

func (d *Dispatcher) forget(call *pendingCall) {
	select {
	case d.cancel <- call:
	case <-d.stopped:
	}
}

func (d *Dispatcher) decodeResponse(m protocol.Method, data []byte, resp any) error {
	msg, err := d.codec.DecodeMessage(string(m.Response.FullName()), data)
	if err != nil {
		return err
	}
	if resp != nil {
		if err := protocol.Convert(msg, resp); err != nil {
			return err
		}
	}
	if code := errorCode(msg.ProtoReflect()); code != 0 {
		return &ResponseError{Method: m.Name, Code: code}
	}
	return nil
}

// errorCode 读取响应里约定的 error.code 字段
func errorCode(msg protoreflect.Message) uint32 {
	fd := msg.Descriptor().Fields().ByName("error")
	if fd == nil || fd.Kind() != protoreflect.MessageKind || !msg.Has(fd) {
		return 0
	}
	em := msg.Get(fd).Message()
	cfd := em.Descriptor().Fields().ByName("code")
	if cfd == nil {
		return 0
	}
	switch cfd.Kind() {
	case protoreflect.Uint32Kind, protoreflect.Uint64Kind, protoreflect.Fixed32Kind, protoreflect.Fixed64Kind:
		return uint32(em.Get(cfd).Uint())
	case protoreflect.Int32Kind, protoreflect.Int64Kind, protoreflect.Sint32Kind, protoreflect.Sint64Kind:
		return uint32(em.Get(cfd).Int())
	}
	return 0
}

// Abort 让所有挂起的调用以 err 失败，连接断开时调用
func (d *Dispatcher) Abort(err error) {
	select {
	case d.abort <- err:
	case <-d.stopped:
	}
}

// Close 停止 dispatcher，挂起的调用以 ErrClosed 失败
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
	})
	<-d.stopped
}

// Service 返回一个服务视图，Call 的方法名只需要写短名
func (d *Dispatcher) Service(name string) *Service {
	if !strings.Contains(name, ".") {
		name = "lq." + name
	}
	return &Service{d: d, name: strings.TrimPrefix(name, ".")}
}

type Service struct {
	d    *Dispatcher
	name string
}

func (s *Service) Name() string {
	return s.name
}

// Call 调用 .<package>.<Service>.<method>
func (s *Service) Call(ctx context.Context, method string, req, resp any) error {
	return s.d.Call(ctx, "."+s.name+"."+method, req, resp)
}
