package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/dynamicpb"
)

// MessageType 帧首字节
type MessageType byte

const (
	Notify   MessageType = 1
	Request  MessageType = 2
	Response MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case Notify:
		return "notify"
	case Request:
		return "request"
	case Response:
		return "response"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// HasRequestID 只有请求和响应带 2 字节的请求 ID
func (t MessageType) HasRequestID() bool {
	return t == Request || t == Response
}

func (t MessageType) valid() bool {
	return t == Notify || t == Request || t == Response
}

// Message 连接层交付的原始帧：已剥离类型标记，Data 从请求 ID（如果有）开始
type Message struct {
	Type MessageType
	Data []byte
}

// Frame 解码后的帧
//
//	| 1 byte type | 2 byte request id (LE, 仅 Request/Response) | lq.Wrapper{name, data} |
type Frame struct {
	Kind      MessageType
	RequestID uint16
	// Name 通知为消息类型全名，请求为方法全名，响应为空
	Name string
	Data []byte
	// Message 通知和请求按 schema 解出的消息；响应要由调用方按方法的响应类型解码
	Message *dynamicpb.Message
}

// StripMessageType 拆出帧首的类型标记
func StripMessageType(b []byte) (MessageType, []byte, error) {
	if len(b) == 0 {
		return 0, nil, fmt.Errorf("%w: empty frame", ErrProtocol)
	}
	t := MessageType(b[0])
	if !t.valid() {
		return 0, nil, fmt.Errorf("%w: unrecognized frame tag %d", ErrProtocol, b[0])
	}
	return t, b[1:], nil
}

// AddMessageType 在包体前加上类型标记
func AddMessageType(t MessageType, data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(t))
	return append(out, data...)
}

func putRequestID(dst []byte, id uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, id)
}

// WrapMessage 编码 lq.Wrapper{name = 1, data = 2}
func WrapMessage(name string, data []byte) []byte {
	var b []byte
	if name != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	if len(data) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, data)
	}
	return b
}

// UnwrapMessage 解开 lq.Wrapper，未知字段跳过
func UnwrapMessage(b []byte) (string, []byte, error) {
	var (
		name string
		data []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, fmt.Errorf("%w: wrapper tag: %v", ErrProtocol, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return "", nil, fmt.Errorf("%w: wrapper name: %v", ErrProtocol, protowire.ParseError(m))
			}
			name = v
			n = m
		case num == 2 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return "", nil, fmt.Errorf("%w: wrapper data: %v", ErrProtocol, protowire.ParseError(m))
			}
			data = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", nil, fmt.Errorf("%w: wrapper field %d: %v", ErrProtocol, num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return name, data, nil
}

// Notification 服务端主动推送的消息
type Notification struct {
	// Name 消息类型全名，例如 .lq.NotifyCustomContestSystemMsg
	Name    string
	Message *dynamicpb.Message
}

// Decode 把通知内容填充到 out
func (n *Notification) Decode(out any) error {
	return Convert(n.Message, out)
}

// Is 比较类型名，忽略前导点
func (n *Notification) Is(typeName string) bool {
	return strings.TrimPrefix(n.Name, ".") == strings.TrimPrefix(typeName, ".")
}
