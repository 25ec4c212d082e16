package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Codec 帧编解码，除了加载好的 schema 之外无状态，可以并发使用
type Codec struct {
	schema *Schema
}

func NewCodec(schema *Schema) *Codec {
	return &Codec{schema: schema}
}

func (c *Codec) Schema() *Schema {
	return c.schema
}

var jsonOut = protojson.MarshalOptions{UseProtoNames: true, UseEnumNumbers: true}

// DecodeFrame 解码带类型标记的完整帧
func (c *Codec) DecodeFrame(b []byte) (*Frame, error) {
	kind, body, err := StripMessageType(b)
	if err != nil {
		return nil, err
	}
	return c.DecodeBody(kind, body)
}

// DecodeBody 解码已剥离类型标记的包体
func (c *Codec) DecodeBody(kind MessageType, body []byte) (*Frame, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: unrecognized frame tag %d", ErrProtocol, byte(kind))
	}
	f := &Frame{Kind: kind}
	if kind.HasRequestID() {
		if len(body) < 2 {
			return nil, fmt.Errorf("%w: %s frame without request id", ErrProtocol, kind)
		}
		f.RequestID = binary.LittleEndian.Uint16(body)
		body = body[2:]
	}

	name, data, err := UnwrapMessage(body)
	if err != nil {
		return nil, err
	}
	f.Name, f.Data = name, data

	var md protoreflect.MessageDescriptor
	switch kind {
	case Notify:
		md, err = c.schema.Message(name)
	case Request:
		var m Method
		m, err = c.schema.Method(name)
		md = m.Request
	case Response:
		// 响应不携带类型名，交给持有 PendingCall 的调用方按方法解码
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s does not match schema: %v", ErrProtocol, name, err)
	}
	f.Message = msg
	return f, nil
}

// EncodeFrame 编码一帧。Request/Response 的 name 为方法全名，Notify 的 name 为消息类型全名。
// value 可以是 proto.Message，也可以是任何能被 encoding/json 序列化、字段名与 schema 对应的值。
func (c *Codec) EncodeFrame(kind MessageType, requestID uint16, name string, value any) ([]byte, error) {
	body, err := c.EncodeBody(kind, requestID, name, value)
	if err != nil {
		return nil, err
	}
	return AddMessageType(kind, body), nil
}

// EncodeBody 与 EncodeFrame 相同，但不带类型标记，交给 Connection.Send 发送
func (c *Codec) EncodeBody(kind MessageType, requestID uint16, name string, value any) ([]byte, error) {
	var (
		md          protoreflect.MessageDescriptor
		wrapperName string
		err         error
	)
	switch kind {
	case Notify:
		md, err = c.schema.Message(name)
		if err == nil {
			wrapperName = "." + string(md.FullName())
		}
	case Request, Response:
		var m Method
		m, err = c.schema.Method(name)
		if kind == Request {
			md = m.Request
			wrapperName = "." + m.Name
		} else {
			md = m.Response
		}
	default:
		return nil, fmt.Errorf("%w: unrecognized frame tag %d", ErrEncode, byte(kind))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	data, err := c.Marshal(md, value)
	if err != nil {
		return nil, err
	}

	var out []byte
	if kind.HasRequestID() {
		out = putRequestID(out, requestID)
	}
	return append(out, WrapMessage(wrapperName, data)...), nil
}

// Marshal 按消息描述符把 value 序列化为 protobuf 二进制
func (c *Codec) Marshal(md protoreflect.MessageDescriptor, value any) ([]byte, error) {
	msg := dynamicpb.NewMessage(md)
	switch v := value.(type) {
	case nil:
	case proto.Message:
		if v.ProtoReflect().Descriptor().FullName() != md.FullName() {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrEncode, md.FullName(), v.ProtoReflect().Descriptor().FullName())
		}
		data, err := proto.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return data, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		if err := protojson.Unmarshal(raw, msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEncode, md.FullName(), err)
		}
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}

// DecodeMessage 按类型全名解出动态消息
func (c *Codec) DecodeMessage(typeName string, data []byte) (*dynamicpb.Message, error) {
	md, err := c.schema.Message(typeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return c.unmarshal(md, data)
}

func (c *Codec) unmarshal(md protoreflect.MessageDescriptor, data []byte) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s does not match schema: %v", ErrProtocol, md.FullName(), err)
	}
	return msg, nil
}

// Decode 按类型全名解码并填充到 out（字段名使用 proto 原名，例如 delta_scores）
func (c *Codec) Decode(typeName string, data []byte, out any) error {
	md, err := c.schema.Message(typeName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return c.DecodeAs(md, data, out)
}

// DecodeAs 与 Decode 相同，直接使用描述符
func (c *Codec) DecodeAs(md protoreflect.MessageDescriptor, data []byte, out any) error {
	msg, err := c.unmarshal(md, data)
	if err != nil {
		return err
	}
	return Convert(msg, out)
}

// Convert 动态消息 -> Go 结构体
func Convert(msg proto.Message, out any) error {
	raw, err := jsonOut.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocol, msg.ProtoReflect().Descriptor().FullName(), err)
	}
	return nil
}

// DecodeWrapped 解开 Wrapper 后按其中的类型名解码，牌谱中的每条记录都是这种格式
func (c *Codec) DecodeWrapped(b []byte) (string, *dynamicpb.Message, error) {
	name, data, err := UnwrapMessage(b)
	if err != nil {
		return "", nil, err
	}
	msg, err := c.DecodeMessage(name, data)
	if err != nil {
		return name, nil, err
	}
	return name, msg, nil
}
