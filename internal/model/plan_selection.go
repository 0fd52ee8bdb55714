package model

import "gorm.io/datatypes"

// PlanSelection 已确认选课表 — 对应 plan_selections
//
// 每行是某个计划（plan_key）中一门已选课程及其各类别的班号选择。
// 核心模块不关心存储格式，这里只是外部持久化协作方的一种实现。
type PlanSelection struct {
	PlanSelectionID string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_selection_id"`
	PlanKey         string            `gorm:"type:varchar(64);not null;index"                json:"plan_key"`
	CourseID        string            `gorm:"type:varchar(32);not null"                      json:"course_id"`
	Sections        datatypes.JSONMap `gorm:"type:jsonb"                                     json:"sections"` // category → section_id
	Position        int               `gorm:"type:smallint;not null;default:0"               json:"position"` // 选课顺序，恢复时按序重放
	TimestampModel
}

// TableName 指定表名
func (PlanSelection) TableName() string { return "plan_selections" }

// SectionChoices 将 JSON 列还原为 category → section_id
func (p PlanSelection) SectionChoices() map[Category]string {
	out := make(map[Category]string, len(p.Sections))
	for k, v := range p.Sections {
		if s, ok := v.(string); ok {
			out[Category(k)] = s
		}
	}
	return out
}

// NewPlanSelection 由课程当前状态构造持久化记录
func NewPlanSelection(planKey string, position int, c *Course) PlanSelection {
	sections := make(datatypes.JSONMap, len(c.SelectedSections))
	for k, v := range c.SelectedSections {
		sections[string(k)] = v
	}
	return PlanSelection{
		PlanKey:  planKey,
		CourseID: c.ID,
		Sections: sections,
		Position: position,
	}
}
