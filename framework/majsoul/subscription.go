package majsoul

import (
	"sync"

	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/framework/protocol"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const subscriptionBuffer = 256

// Subscription 一路通知订阅，Close 之后 channel 关闭。
// 订阅方消费过慢时新通知会被丢弃。
type Subscription struct {
	api     *Api
	ch      chan *protocol.Notification
	filter  func(*protocol.Notification) bool
	release func()
	once    sync.Once
}

func (s *Subscription) Notifications() <-chan *protocol.Notification {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.api.unsubscribe(s)
		if s.release != nil {
			s.release()
		}
	})
}

func (a *Api) subscribe(filter func(*protocol.Notification) bool) *Subscription {
	sub := &Subscription{
		api:    a,
		ch:     make(chan *protocol.Notification, subscriptionBuffer),
		filter: filter,
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.subscribers == nil {
		// 通知流已经结束
		close(sub.ch)
		return sub
	}
	a.subscribers[sub] = struct{}{}
	return sub
}

func (a *Api) unsubscribe(sub *Subscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.subscribers[sub]; ok {
		delete(a.subscribers, sub)
		close(sub.ch)
	}
}

// dispatchNotifications 把 dispatcher 的通知分发给所有订阅，dispatcher 关闭后关闭全部订阅
func (a *Api) dispatchNotifications() {
	defer a.wg.Done()
	for n := range a.dispatcher.Notifications() {
		a.mu.Lock()
		for sub := range a.subscribers {
			if sub.filter != nil && !sub.filter(n) {
				continue
			}
			select {
			case sub.ch <- n:
			default:
				log.Warn("订阅缓冲已满, 丢弃 %s", n.Name)
			}
		}
		a.mu.Unlock()
	}

	a.mu.Lock()
	for sub := range a.subscribers {
		close(sub.ch)
	}
	a.subscribers = nil
	a.mu.Unlock()
}

// uniqueIDOf 读取通知中的 unique_id 字段
func uniqueIDOf(n *protocol.Notification) (int, bool) {
	if n.Message == nil {
		return 0, false
	}
	msg := n.Message.ProtoReflect()
	fd := msg.Descriptor().Fields().ByName("unique_id")
	if fd == nil || fd.IsList() {
		return 0, false
	}
	switch fd.Kind() {
	case protoreflect.Uint32Kind, protoreflect.Uint64Kind, protoreflect.Fixed32Kind, protoreflect.Fixed64Kind:
		return int(msg.Get(fd).Uint()), true
	case protoreflect.Int32Kind, protoreflect.Int64Kind, protoreflect.Sint32Kind, protoreflect.Sint64Kind:
		return int(msg.Get(fd).Int()), true
	}
	return 0, false
}
