package dto

import (
	"time"

	"course-planner/internal/model"
)

// ── 目录加载 ──

// LoadCatalogRequest 重新加载课程目录请求；subjects 为空时使用配置中的默认学科
type LoadCatalogRequest struct {
	Subjects []string `json:"subjects" binding:"omitempty,dive,required,max=16"`
	Refresh  bool     `json:"refresh"` // 丢弃原始文件缓存后重新拉取
}

// CatalogResponse 目录加载结果
type CatalogResponse struct {
	Version     uint64    `json:"version"`
	Subjects    []string  `json:"subjects"`
	Skipped     []string  `json:"skipped"`
	CourseCount int       `json:"course_count"`
	LoadedAt    time.Time `json:"loaded_at"`
	Demo        bool      `json:"demo"`       // 使用了演示数据
	Degraded    bool      `json:"degraded"`   // 部分学科或课程名加载失败
	Superseded  bool      `json:"superseded"` // 较晚发起的加载已生效，本次结果被放弃，返回的是当前目录
}

// ── 课程查询 ──

// ListCoursesRequest 课程列表查询参数
type ListCoursesRequest struct {
	Subject string `form:"subject" binding:"omitempty,max=16"`
	Query   string `form:"q" binding:"omitempty,max=64"`
}

// CourseSummary 课程列表条目
type CourseSummary struct {
	ID                  string `json:"id"`
	Subject             string `json:"subject"`
	Code                string `json:"code"`
	Name                string `json:"name"`
	Color               string `json:"color"`
	EntryCount          int    `json:"entry_count"`
	HasMultipleSections bool   `json:"has_multiple_sections"`
	IsPlaceholder       bool   `json:"is_placeholder"`
}

// CourseDetailResponse 课程详情，含班次分组
type CourseDetailResponse struct {
	CourseSummary
	Entries  []model.ScheduleEntry `json:"entries"`
	Sections []SectionGroup        `json:"sections"`
}

// SectionGroup 某一类别下的可选班次
type SectionGroup struct {
	Category model.Category  `json:"category"`
	Default  string          `json:"default"`
	Options  []SectionOption `json:"options"`
}

// SectionOption 单个班次
type SectionOption struct {
	SectionID string                `json:"section_id"`
	Entries   []model.ScheduleEntry `json:"entries"`
}
