package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ── 原始目录记录 ──
//
// 各学科的目录文件形状不一：字段可能缺失，数组元素可能是字符串或数字。
// 这里只负责"能读进来"，校验与补全全部交给 service.Normalizer。

// FlexString 兼容字符串与数字的 JSON 值（如 days 可能是 "1" 或 1，时间可能是 "0930" 或 930）
type FlexString string

// UnmarshalJSON 先按字符串解析，失败再按数字解析；null 视为空串
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = FlexString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexString(num.String())
		return nil
	}

	return fmt.Errorf("期望字符串或数字, 实际: %s", string(data))
}

// MarshalJSON 总是输出字符串
func (f FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexString) String() string { return string(f) }

// Int 按整数解释
func (f FlexString) Int() (int, error) {
	return strconv.Atoi(string(f))
}

// RawSection 一个班次的并行数组
type RawSection struct {
	Days        []FlexString `json:"days"`
	StartTimes  []FlexString `json:"startTimes"`
	EndTimes    []FlexString `json:"endTimes"`
	Locations   []FlexString `json:"locations,omitempty"`
	Instructors []FlexString `json:"instructors,omitempty"`
}

// Aligned 并行数组非空且长度一致
func (s RawSection) Aligned() bool {
	n := len(s.Days)
	return n > 0 && len(s.StartTimes) == n && len(s.EndTimes) == n
}

// RawSectionMap sectionName → RawSection，保留 JSON 中的出现顺序
type RawSectionMap = orderedmap.OrderedMap[string, RawSection]

// RawTerms termName → sectionName → RawSection，保留 JSON 中的出现顺序
type RawTerms = orderedmap.OrderedMap[string, *RawSectionMap]

// RawCourse 单条原始课程记录
type RawCourse struct {
	Code  FlexString `json:"code"`
	Title string     `json:"title,omitempty"`
	Terms *RawTerms  `json:"terms,omitempty"`
}

// HasTerms terms 存在且非空
func (r RawCourse) HasTerms() bool {
	return r.Terms != nil && r.Terms.Len() > 0
}

// DecodeRawCourses 解析单个学科的目录文件
func DecodeRawCourses(data []byte) ([]RawCourse, error) {
	var courses []RawCourse
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("目录 JSON 格式错误: %w", err)
	}
	return courses, nil
}
