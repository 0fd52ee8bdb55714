package service

import "course-planner/internal/model"

// EntriesConflict 判断两个条目是否时间重叠
// 按半开区间 [start, end) 比较，首尾相接（a.End == b.Start）不算冲突
func EntriesConflict(a, b model.ScheduleEntry) bool {
	if a.Day != b.Day {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// FindConflicts 找出候选课程与已选课程之间的全部冲突对
//
// 双方都只比较当前生效的条目（尊重 SelectedSections）；committed 中与候选同 ID 的课程被忽略。
func FindConflicts(candidate *model.Course, committed []*model.Course) []model.Conflict {
	return findConflictsWith(candidate, EffectiveEntries(candidate), committed)
}

// findConflictsWith 使用给定的候选条目检测冲突（班次切换时传入切换后的条目）
func findConflictsWith(candidate *model.Course, entries []model.ScheduleEntry, committed []*model.Course) []model.Conflict {
	var conflicts []model.Conflict
	for _, other := range committed {
		if other == nil || other.ID == candidate.ID {
			continue
		}
		for _, oe := range EffectiveEntries(other) {
			for _, ce := range entries {
				if EntriesConflict(ce, oe) {
					conflicts = append(conflicts, model.Conflict{
						CourseA:     candidate.ID,
						CourseAName: candidate.Name,
						CourseB:     other.ID,
						CourseBName: other.Name,
						EntryA:      ce,
						EntryB:      oe,
					})
				}
			}
		}
	}
	return conflicts
}

// conflictingEntries 返回候选条目中与已选课程冲突的下标集合（预览标记用）
func conflictingEntries(candidate *model.Course, entries []model.ScheduleEntry, committed []*model.Course) map[int]bool {
	marked := make(map[int]bool)
	for _, other := range committed {
		if other == nil || other.ID == candidate.ID {
			continue
		}
		for _, oe := range EffectiveEntries(other) {
			for i, ce := range entries {
				if EntriesConflict(ce, oe) {
					marked[i] = true
				}
			}
		}
	}
	return marked
}
