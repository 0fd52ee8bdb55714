package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"course-planner/config"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&config.LogConfig{Level: "verbose", Format: "json"})
	if err == nil {
		t.Fatal("期望无效日志级别返回错误")
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.log")

	logger, err := NewLogger(&config.LogConfig{Level: "info", Format: "json", Output: []string{path}})
	if err != nil {
		t.Fatalf("初始化日志失败: %v", err)
	}
	logger.Info("目录已加载")
	logger.Debug("不应输出")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"service":"course-planner"`) {
		t.Errorf("日志缺少 service 字段: %s", out)
	}
	if !strings.Contains(out, "目录已加载") {
		t.Errorf("日志缺少 info 消息: %s", out)
	}
	if strings.Contains(out, "不应输出") {
		t.Errorf("info 级别不应输出 debug 日志: %s", out)
	}
}
