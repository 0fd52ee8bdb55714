package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ── 星期 ──

// Weekday 星期名称（Monday … Sunday）
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays 以 0=Monday 为起点的有序星期列表
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index 返回 0-6 序号，未知星期返回 -1
func (d Weekday) Index() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// WeekdayFromIndex 将 0-6 序号转为星期
func WeekdayFromIndex(i int) (Weekday, bool) {
	if i < 0 || i >= len(Weekdays) {
		return "", false
	}
	return Weekdays[i], true
}

// ParseWeekday 识别数字序号（0-6）、全称或三字母缩写（不区分大小写）
func ParseWeekday(raw string) (Weekday, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		if d, ok := WeekdayFromIndex(n); ok {
			return d, nil
		}
		return "", fmt.Errorf("星期序号越界: %d", n)
	}
	lower := strings.ToLower(s)
	for _, d := range Weekdays {
		name := strings.ToLower(string(d))
		if lower == name || (len(lower) >= 3 && strings.HasPrefix(name, lower)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("无法识别的星期: %q", raw)
}

// ── 课程类别 ──

// Category 由 sessionType 归一化得到的课程类别
type Category string

const (
	CategoryLecture    Category = "Lecture"
	CategoryTutorial   Category = "Tutorial"
	CategoryLaboratory Category = "Laboratory"
	CategoryClass      Category = "Class"
)

// NormalizeCategory 按子串匹配归类：LEC → Lecture, LAB → Laboratory, TUT → Tutorial，其余为 Class
func NormalizeCategory(sessionType string) Category {
	upper := strings.ToUpper(sessionType)
	switch {
	case strings.Contains(upper, "LEC"):
		return CategoryLecture
	case strings.Contains(upper, "LAB"):
		return CategoryLaboratory
	case strings.Contains(upper, "TUT"):
		return CategoryTutorial
	default:
		return CategoryClass
	}
}

// ── 课程与排课条目 ──

// ScheduleEntry 一次具体的上课安排
type ScheduleEntry struct {
	SessionType   string    `json:"session_type"`
	Category      Category  `json:"category"`
	SectionID     string    `json:"section_id"`
	Day           Weekday   `json:"day"`
	Start         TimeOfDay `json:"start"`
	End           TimeOfDay `json:"end"`
	Location      string    `json:"location,omitempty"`
	Instructor    string    `json:"instructor,omitempty"`
	Term          string    `json:"term,omitempty"`
	IsPlaceholder bool      `json:"is_placeholder"`
}

// Duration 持续分钟数
func (e ScheduleEntry) Duration() int { return int(e.End - e.Start) }

// Course 归一化后的课程
type Course struct {
	ID               string              `json:"id"` // 学科 + 课号，如 "CSCI 3100"
	Subject          string              `json:"subject"`
	Code             string              `json:"code"`
	Name             string              `json:"name"`
	Entries          []ScheduleEntry     `json:"entries"`
	Color            string              `json:"color"`
	Selected         bool                `json:"selected"`
	SelectedSections map[Category]string `json:"selected_sections"`
	IsPlaceholder    bool                `json:"is_placeholder"`
}

// Clone 深拷贝，规划会话各自持有课程副本
func (c *Course) Clone() *Course {
	cp := *c
	cp.Entries = append([]ScheduleEntry(nil), c.Entries...)
	cp.SelectedSections = make(map[Category]string, len(c.SelectedSections))
	for k, v := range c.SelectedSections {
		cp.SelectedSections[k] = v
	}
	return &cp
}

// CourseID 组合学科与课号
func CourseID(subject, code string) string {
	return strings.ToUpper(strings.TrimSpace(subject)) + " " + strings.TrimSpace(code)
}

// ── 派生结构 ──

// SectionKey 分组键：(类别, 班号)
type SectionKey struct {
	BaseType  Category `json:"base_type"`
	SectionID string   `json:"section_id"`
}

// Section 同一课程中同一 (类别, 班号) 下的全部条目
type Section struct {
	BaseType  Category        `json:"base_type"`
	SectionID string          `json:"section_id"`
	Entries   []ScheduleEntry `json:"entries"`
}

// Key 返回分组键
func (s Section) Key() SectionKey {
	return SectionKey{BaseType: s.BaseType, SectionID: s.SectionID}
}

// Conflict 两门课程的一对冲突条目（对称关系）
type Conflict struct {
	CourseA     string        `json:"course_a"`
	CourseAName string        `json:"course_a_name"`
	CourseB     string        `json:"course_b"`
	CourseBName string        `json:"course_b_name"`
	EntryA      ScheduleEntry `json:"entry_a"`
	EntryB      ScheduleEntry `json:"entry_b"`
}

// Describe 面向用户的冲突描述
func (c Conflict) Describe() string {
	return fmt.Sprintf("%s (%s %s-%s) 与 %s (%s %s-%s) 时间冲突",
		c.CourseA, c.EntryA.Day, c.EntryA.Start, c.EntryA.End,
		c.CourseB, c.EntryB.Day, c.EntryB.Start, c.EntryB.End)
}

// PlacementState 网格上的展示状态
type PlacementState string

const (
	PlacementCommitted PlacementState = "committed"
	PlacementPreview   PlacementState = "preview"
)

// PlacementRect 条目在周网格中的位置
type PlacementRect struct {
	CourseID      string         `json:"course_id"`
	CourseName    string         `json:"course_name"`
	Color         string         `json:"color"`
	Day           Weekday        `json:"day"`
	Column        int            `json:"column"`
	Top           float64        `json:"top"`
	Height        float64        `json:"height"`
	Start         TimeOfDay      `json:"start"`
	End           TimeOfDay      `json:"end"`
	SessionType   string         `json:"session_type"`
	SectionID     string         `json:"section_id"`
	Location      string         `json:"location,omitempty"`
	State         PlacementState `json:"state"`
	Conflicting   bool           `json:"conflicting"`
	IsPlaceholder bool           `json:"is_placeholder"`
	Clipped       bool           `json:"clipped"`
}
