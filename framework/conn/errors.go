package conn

import "errors"

var (
	// ErrTransport 底层 websocket 出错（拨号失败、读写失败、对端关闭）
	ErrTransport = errors.New("websocket 传输错误")
	// ErrConnectionClosed 错误流中的关闭标记，每次 socket 结束都会推送一次
	ErrConnectionClosed = errors.New("连接已关闭")
	// ErrNotConnected socket 未处于打开状态，消息没有写出
	ErrNotConnected = errors.New("连接未打开")
)
