package majsoul

import "errors"

var (
	// ErrServerMaintenance 服务器列表处于维护状态
	ErrServerMaintenance = errors.New("雀魂服务器维护中")
	// ErrNoServer 服务器列表为空
	ErrNoServer = errors.New("没有可用的雀魂服务器")
	// ErrLoginFailed 登录响应中没有账号信息
	ErrLoginFailed = errors.New("雀魂登录失败")
	// ErrHeartbeat 心跳在超时时间内没有响应
	ErrHeartbeat = errors.New("心跳失败")
	// ErrResource 资源文件缺少必要的条目
	ErrResource = errors.New("雀魂资源文件不完整")
	// ErrDisposed Api 已经释放
	ErrDisposed = errors.New("雀魂 Api 已释放")
)
