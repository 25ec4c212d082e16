package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger = newLogger(os.Stdout, "majsoul")

func newLogger(w io.Writer, prefix string) *log.Logger {
	l := log.New(w)
	l.SetPrefix(prefix)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)
	return l
}

// InitLog 初始化全局日志，未调用前使用默认的 stdout 日志（info 级别）
func InitLog(appName string, logLevel string) {
	// 使用 os.Stdout 而不是 os.Stderr，避免 IDE 控制台把所有日志标红
	logger = newLogger(os.Stdout, appName)

	// 启用调用者信息（显示文件名和行号）
	logger.SetReportCaller(true)
	SetLevel(logLevel)
}

// SetLevel 动态调整日志级别，配置热更新时调用
func SetLevel(logLevel string) {
	logger.SetLevel(parseLevel(logLevel))
}

// SetOutput 替换日志输出，测试中用来收集日志
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func parseLevel(logLevel string) log.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// 没有参数时原样输出，消息中的 % 不会被当作格式符

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Fatal(format)
	} else {
		logger.Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Info(format)
	} else {
		logger.Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Warn(format)
	} else {
		logger.Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Error(format)
	} else {
		logger.Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Debug(format)
	} else {
		logger.Debugf(format, args...)
	}
}
