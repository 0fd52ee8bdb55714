package service

import (
	"testing"

	"course-planner/internal/model"
)

func TestEntriesConflict(t *testing.T) {
	base := entry("--LEC", model.Monday, "09:00", "10:00")
	tests := []struct {
		name  string
		other model.ScheduleEntry
		want  bool
	}{
		{"首尾相接", entry("--LEC", model.Monday, "10:00", "11:00"), false},
		{"前接", entry("--LEC", model.Monday, "08:00", "09:00"), false},
		{"部分重叠", entry("--LEC", model.Monday, "09:30", "10:30"), true},
		{"包含", entry("--LEC", model.Monday, "09:15", "09:45"), true},
		{"相同", entry("--LEC", model.Monday, "09:00", "10:00"), true},
		{"不同星期", entry("--LEC", model.Tuesday, "09:00", "10:00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EntriesConflict(base, tt.other); got != tt.want {
				t.Errorf("期望 %v, 实际 %v", tt.want, got)
			}
			if got := EntriesConflict(tt.other, base); got != tt.want {
				t.Errorf("冲突应对称: 期望 %v, 实际 %v", tt.want, got)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	committed := newCourse("CSCI 3100",
		entry("--LEC", model.Monday, "11:30", "12:15"),
		entry("--LEC", model.Tuesday, "12:30", "14:15"),
	)
	candidate := newCourse("STAT 2005", entry("--LEC", model.Tuesday, "12:30", "13:00"))

	conflicts := FindConflicts(candidate, []*model.Course{committed})
	if len(conflicts) != 1 {
		t.Fatalf("期望 1 个冲突, 实际 %d", len(conflicts))
	}
	c := conflicts[0]
	if c.CourseA != "STAT 2005" || c.CourseB != "CSCI 3100" || c.EntryB.Day != model.Tuesday {
		t.Errorf("冲突对错误: %+v", c)
	}

	// 同 ID 课程被忽略
	if got := FindConflicts(committed, []*model.Course{committed}); len(got) != 0 {
		t.Errorf("课程不应与自身冲突: %v", got)
	}
}

func TestFindConflicts_RespectsSelectedSections(t *testing.T) {
	committed := newCourse("CSCI 3180", entry("--LEC", model.Wednesday, "16:30", "17:15"))
	candidate := tutorialCourse() // AT02 在周三 16:30

	if got := FindConflicts(candidate, []*model.Course{committed}); len(got) != 0 {
		t.Errorf("未选中的 AT02 不应参与冲突检测: %v", got)
	}

	candidate.SelectedSections[model.CategoryTutorial] = "AT02"
	if got := FindConflicts(candidate, []*model.Course{committed}); len(got) != 1 {
		t.Errorf("选中 AT02 后应检测到 1 个冲突, 实际 %d", len(got))
	}
}

func TestConflict_Describe(t *testing.T) {
	c := model.Conflict{
		CourseA: "STAT 2005", EntryA: entry("--LEC", model.Tuesday, "12:30", "13:00"),
		CourseB: "CSCI 3100", EntryB: entry("--LEC", model.Tuesday, "12:30", "14:15"),
	}
	want := "STAT 2005 (Tuesday 12:30-13:00) 与 CSCI 3100 (Tuesday 12:30-14:15) 时间冲突"
	if got := c.Describe(); got != want {
		t.Errorf("期望 %q, 实际 %q", want, got)
	}
}
