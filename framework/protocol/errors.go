package protocol

import "errors"

var (
	// ErrProtocol 收到的帧无法识别：未知类型标记、包体截断或与 schema 不符
	ErrProtocol = errors.New("协议错误")
	// ErrEncode 待发送的值不满足 schema
	ErrEncode = errors.New("消息编码失败")
	// ErrUnknownType schema 中不存在该消息类型或方法
	ErrUnknownType = errors.New("schema 中没有该类型")
)
