package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout 调用方设置的超时先于响应到达
	ErrTimeout = errors.New("rpc 调用超时")
	// ErrClosed dispatcher 已关闭，挂起的调用全部失败
	ErrClosed = errors.New("rpc dispatcher 已关闭")
	// ErrTooManyPending 65535 个请求 ID 全部被占用
	ErrTooManyPending = errors.New("挂起的 rpc 调用过多")
)

// ResponseError 响应中的 error.code 不为 0
type ResponseError struct {
	Method string
	Code   uint32
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("rpc %s 返回错误码 %d", e.Method, e.Code)
}
