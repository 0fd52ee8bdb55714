package dto

import "course-planner/internal/model"

// ── 规划会话 ──

// CreateSessionRequest 创建规划会话请求
// plan_key 非空时从持久化存储恢复已选课程，并在之后的每次变更后写回
type CreateSessionRequest struct {
	PlanKey string `json:"plan_key" binding:"omitempty,max=64"`
}

// SessionResponse 规划会话状态
type SessionResponse struct {
	SessionID      string           `json:"session_id"`
	PlanKey        string           `json:"plan_key,omitempty"`
	State          string           `json:"state"`
	CatalogVersion uint64           `json:"catalog_version"`
	Selected       []SelectedCourse `json:"selected"`
	Preview        string           `json:"preview,omitempty"`
	Restore        *RestoreResponse `json:"restore,omitempty"`
}

// SelectedCourse 已确认课程及其班次选择
type SelectedCourse struct {
	CourseID string                    `json:"course_id"`
	Name     string                    `json:"name"`
	Color    string                    `json:"color"`
	Sections map[model.Category]string `json:"sections"`
}

// RestoreResponse 恢复 / 切换目录后的重放结果
type RestoreResponse struct {
	Restored  []string           `json:"restored"`
	Missing   []string           `json:"missing"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

// ── 选课操作 ──

// ToggleRequest 勾选 / 取消勾选
type ToggleRequest struct {
	CourseID string `json:"course_id" binding:"required,max=32"`
}

// ChooseSectionRequest 切换班次
type ChooseSectionRequest struct {
	CourseID  string `json:"course_id" binding:"required,max=32"`
	BaseType  string `json:"base_type" binding:"required,oneof=Lecture Tutorial Laboratory Class"`
	SectionID string `json:"section_id" binding:"required,max=64"`
}

// PreviewRequest 悬停预览
type PreviewRequest struct {
	CourseID string `json:"course_id" binding:"required,max=32"`
}

// SelectionResponse 选课结果；accepted=false 时 conflicts 列出全部冲突对
type SelectionResponse struct {
	Accepted  bool                      `json:"accepted"`
	CourseID  string                    `json:"course_id"`
	Selected  bool                      `json:"selected"`
	Sections  map[model.Category]string `json:"sections"`
	State     string                    `json:"state"`
	Conflicts []ConflictResponse        `json:"conflicts"`
}

// ConflictResponse 一对冲突条目
type ConflictResponse struct {
	CourseA     string              `json:"course_a"`
	CourseAName string              `json:"course_a_name"`
	CourseB     string              `json:"course_b"`
	CourseBName string              `json:"course_b_name"`
	EntryA      model.ScheduleEntry `json:"entry_a"`
	EntryB      model.ScheduleEntry `json:"entry_b"`
	Message     string              `json:"message"`
}

// ── 网格 ──

// PlacementsRequest 网格查询参数
type PlacementsRequest struct {
	IncludePreview bool `form:"include_preview"`
}

// PlacementsResponse 网格放置结果
type PlacementsResponse struct {
	DayStart   model.TimeOfDay       `json:"day_start"`
	DayEnd     model.TimeOfDay       `json:"day_end"`
	Height     float64               `json:"height"`
	Days       []model.Weekday       `json:"days"`
	Placements []model.PlacementRect `json:"placements"`
}

// ── 导出 ──

// ExportRequest 导出参数；start 为 ics 第一周所在日期（YYYY-MM-DD），缺省为下周一
type ExportRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=xlsx ics"`
	Start  string `form:"start" binding:"omitempty,datetime=2006-01-02"`
}
