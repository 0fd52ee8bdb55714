package errors

import "errors"

// ── 目录与规划的失败分类 ──
//
// 这些错误都有确定的降级路径，不会导致请求失败：
//   - ErrTimeParse: 时间文本无法识别 → 使用默认时间
//   - ErrMissingCatalogFile: 学科目录文件不存在 → 跳过该学科
//   - ErrEmptyScheduleData: 课程无有效排课数据 → 生成占位条目
//   - ErrCatalogLoad: 整体加载失败 → 使用演示数据

var (
	ErrTimeParse          = errors.New("时间解析失败")
	ErrMissingCatalogFile = errors.New("学科目录文件不存在")
	ErrEmptyScheduleData  = errors.New("课程缺少排课数据")
	ErrCatalogLoad        = errors.New("课程目录加载失败")
)
