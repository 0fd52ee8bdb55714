package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"course-planner/config"
	"course-planner/internal/repository"
	"course-planner/internal/service"
	applogger "course-planner/pkg/logger"
)

var versionInfo = "dev"

// SetVersion 设置 --version 输出
func SetVersion(version, commit string) {
	versionInfo = fmt.Sprintf("%s (commit: %s)", version, commit)
}

// Execute 运行命令行
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions 所有子命令共享的参数
type globalOptions struct {
	catalogDir string
	titlesFile string
	verbose    bool
}

// NewRootCmd 构建命令树；每次调用返回独立的实例
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "planner",
		Short: "课程目录归一化与选课冲突检查工具",
		Long: `planner - 离线使用课程目录

normalize 输出学科目录归一化后的课程；
check 按顺序选课并报告时间冲突，存在冲突时以非零状态退出。`,
		Version:       versionInfo,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.catalogDir, "dir", "./data", "学科目录文件所在目录（SUBJ.json）")
	root.PersistentFlags().StringVar(&opts.titlesFile, "titles", "", "课程名映射文件名（位于 --dir 下）")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(newNormalizeCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	return root
}

// newLogger 命令行只在 --verbose 时输出调试日志，默认仅警告以上
func (o *globalOptions) newLogger() (*zap.Logger, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return applogger.NewLogger(&config.LogConfig{Level: level, Format: "console"})
}

// loadCatalog 从本地目录加载学科；不回退演示数据，目录为空即报错
func (o *globalOptions) loadCatalog(ctx context.Context, subjects []string, logger *zap.Logger) (*service.CourseCatalog, error) {
	source := repository.NewCatalogSource(repository.NewFileFetcher(o.catalogDir), nil, 0, o.titlesFile, logger)
	svc := service.NewCatalogService(source, service.CatalogOptions{}, logger)
	if _, err := svc.Load(ctx, subjects); err != nil {
		return nil, err
	}
	return svc.Current(), nil
}

// normalizeCourseID "csci3100" / "CSCI 3100" → "CSCI 3100"
func normalizeCourseID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.ContainsRune(raw, ' ') {
		fields := strings.Fields(raw)
		return strings.ToUpper(fields[0]) + " " + strings.Join(fields[1:], "")
	}
	for i, r := range raw {
		if unicode.IsDigit(r) {
			return strings.ToUpper(raw[:i]) + " " + raw[i:]
		}
	}
	return strings.ToUpper(raw)
}

// subjectOf 课程 ID 的学科部分
func subjectOf(courseID string) string {
	if i := strings.IndexByte(courseID, ' '); i > 0 {
		return courseID[:i]
	}
	return courseID
}
