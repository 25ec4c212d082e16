package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestPercentInMessage(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	url := "https://game.maj-soul.com/1/v0.10.1.w/res%2Fproto%2Fliqi.json"
	Info("资源站: " + url)
	Info("资源站: %s", url)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("期望 2 行日志，得到 %q", buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, url) || strings.Contains(line, "MISSING") {
			t.Fatalf("日志中的地址被格式化了: %q", line)
		}
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	}()

	SetLevel("warn")
	Info("不应该输出")
	Warn("应该输出 %d", 1)
	if out := buf.String(); strings.Contains(out, "不应该输出") || !strings.Contains(out, "应该输出 1") {
		t.Fatalf("日志级别没有生效: %q", out)
	}
}
