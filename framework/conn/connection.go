package conn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/framework/protocol"
)

var (
	writeWait        = 10 * time.Second
	handshakeTimeout = 30 * time.Second
	defaultBuffer    = 1024
)

// Connection 到雀魂网关的单条 websocket 长连接。
// Messages 和 Errors 在整个生命周期内不变，重连后继续使用同一组 channel。
type Connection struct {
	server string
	dialer *websocket.Dialer

	messages chan protocol.Message
	errors   chan error

	mu      sync.Mutex
	current *longConn
	closed  bool
}

// longConn 一次拨号得到的 socket，被新的 socket 取代后它的所有事件都会丢弃
type longConn struct {
	ws       *websocket.Conn
	writeMu  sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

func (l *longConn) terminate() {
	l.stopOnce.Do(func() {
		close(l.stop)
		// 直接关闭底层连接，不走 close 握手
		_ = l.ws.Close()
	})
}

func (l *longConn) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

type Option func(*Connection)

// WithProxy 指定 http 代理，不指定时使用 http_proxy / https_proxy 环境变量
func WithProxy(proxy string) Option {
	return func(c *Connection) {
		if proxy == "" {
			return
		}
		u, err := url.Parse(proxy)
		if err != nil {
			log.Warn("代理地址 %s 无法解析, 忽略: %v", proxy, err)
			return
		}
		c.dialer.Proxy = http.ProxyURL(u)
	}
}

// WithBuffer 设置 Messages / Errors 的缓冲大小
func WithBuffer(n int) Option {
	return func(c *Connection) {
		c.messages = make(chan protocol.Message, n)
		c.errors = make(chan error, n)
	}
}

func NewConnection(server string, opts ...Option) *Connection {
	c := &Connection{
		server: server,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		messages: make(chan protocol.Message, defaultBuffer),
		errors:   make(chan error, defaultBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) Server() string {
	return c.server
}

// Messages 收到的帧，已剥离类型标记，按到达顺序交付
func (c *Connection) Messages() <-chan protocol.Message {
	return c.messages
}

// Errors 传输错误和关闭标记 ErrConnectionClosed，按发生顺序交付
func (c *Connection) Errors() <-chan error {
	return c.errors
}

// Connect 首次连接
func (c *Connection) Connect(ctx context.Context) error {
	return c.Reconnect(ctx)
}

// Reconnect 强制断开旧 socket 后重新拨号，socket 打开后返回。调用方需要保证不会并发重连。
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.current != nil {
		c.current.terminate()
		c.current = nil
	}
	c.closed = false
	c.mu.Unlock()

	log.Info("连接到 %s", c.server)
	ws, _, err := c.dialer.DialContext(ctx, c.server, nil)
	if err != nil {
		return fmt.Errorf("%w: 连接 %s 失败: %v", ErrTransport, c.server, err)
	}

	l := &longConn{ws: ws, stop: make(chan struct{})}
	c.mu.Lock()
	if c.closed || c.current != nil {
		// 拨号期间连接被关闭或被另一条 socket 取代
		c.mu.Unlock()
		l.terminate()
		return fmt.Errorf("%w: 连接 %s 在建立期间被关闭", ErrTransport, c.server)
	}
	c.current = l
	c.mu.Unlock()

	go c.readMessage(l)
	return nil
}

func (c *Connection) readMessage(l *longConn) {
	for {
		messageType, data, err := l.ws.ReadMessage()
		if err != nil {
			if l.stopped() {
				return
			}
			c.mu.Lock()
			if c.current == l {
				c.current = nil
			}
			c.mu.Unlock()
			_ = l.ws.Close()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("[%s] websocket 异常断开: %v", c.server, err)
			} else {
				log.Warn("[%s] websocket 断开: %v", c.server, err)
			}
			c.pushError(l, fmt.Errorf("%w: %v", ErrTransport, err))
			c.pushError(l, ErrConnectionClosed)
			return
		}
		if messageType != websocket.BinaryMessage {
			log.Warn("[%s] 忽略非二进制消息, 类型 %d", c.server, messageType)
			continue
		}
		kind, body, err := protocol.StripMessageType(data)
		if err != nil {
			c.pushError(l, err)
			continue
		}
		if l.stopped() {
			return
		}
		select {
		case c.messages <- protocol.Message{Type: kind, Data: body}:
		case <-l.stop:
			return
		}
	}
}

func (c *Connection) pushError(l *longConn, err error) {
	if l.stopped() {
		return
	}
	select {
	case c.errors <- err:
	case <-l.stop:
	}
}

// Send 写出一帧，data 为不带类型标记的包体。socket 未打开时返回 ErrNotConnected，什么都不写。
func (c *Connection) Send(kind protocol.MessageType, data []byte) error {
	c.mu.Lock()
	l := c.current
	c.mu.Unlock()
	if l == nil || l.stopped() {
		return ErrNotConnected
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := l.ws.WriteMessage(websocket.BinaryMessage, protocol.AddMessageType(kind, data)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// IsOpen socket 是否处于打开状态
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && !c.current.stopped()
}

// Close 强制断开，之后不会再交付任何事件
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.current != nil {
		c.current.terminate()
		c.current = nil
		log.Info("[%s] 连接关闭", c.server)
	}
}
