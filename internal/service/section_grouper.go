package service

import (
	"fmt"
	"regexp"
	"strings"

	"course-planner/internal/model"
)

// ── 班次分组 ──────────────────────────────────────────────
//
// 职责：将一门课程的条目按 (类别, 班号) 分组，供学生在同一类别的
// 多个平行班中选择其一。
//
//   - 班号优先从 sessionType 中提取（A-LEC / AT01-TUT / T01）
//   - 辅导课无法提取时，用 (星期, 开始时间, 地点前缀) 合成稳定班号
//   - 其余情况同一类别共用 DefaultSectionID
//   - 同一 Section 内的条目是同一选择下的并行安排，彼此不判冲突
// ─────────────────────────────────────────────────────────────

// DefaultSectionID 无法提取班号时的默认班号
const DefaultSectionID = "-"

// syntheticLocationLen 合成班号中地点前缀的字符数（按 rune 计）
const syntheticLocationLen = 8

var (
	lectureSectionPattern  = regexp.MustCompile(`(?:^|[^A-Za-z])([A-Z])-?LEC`)
	tutorialSectionPattern = regexp.MustCompile(`([A-Za-z0-9]+)(?:-|\s+)TUT\b`)
	numberedTutorialToken  = regexp.MustCompile(`\bT\d+\b`)
)

// ExtractSectionID 从条目中提取班号
func ExtractSectionID(e model.ScheduleEntry) string {
	st := e.SessionType

	if m := lectureSectionPattern.FindStringSubmatch(st); m != nil {
		return m[1]
	}
	if m := tutorialSectionPattern.FindStringSubmatch(st); m != nil {
		return m[1]
	}
	if tok := numberedTutorialToken.FindString(st); tok != "" {
		return tok
	}

	if model.NormalizeCategory(st) == model.CategoryTutorial {
		return syntheticSectionID(e)
	}
	return DefaultSectionID
}

// syntheticSectionID (星期, 开始时间, 地点前缀) 组合，保证重复加载时分组稳定
func syntheticSectionID(e model.ScheduleEntry) string {
	loc := strings.TrimSpace(e.Location)
	if r := []rune(loc); len(r) > syntheticLocationLen {
		loc = string(r[:syntheticLocationLen])
	}
	day := string(e.Day)
	if len(day) > 3 {
		day = day[:3]
	}
	return fmt.Sprintf("%s-%s-%s", day, e.Start.Format(), loc)
}

// SectionKeyOf 计算条目的分组键（类别从 sessionType 重新归一化）
func SectionKeyOf(e model.ScheduleEntry) model.SectionKey {
	return model.SectionKey{
		BaseType:  model.NormalizeCategory(e.SessionType),
		SectionID: ExtractSectionID(e),
	}
}

// SectionGroups 按首次出现顺序保存的班次分组
type SectionGroups struct {
	order    []model.SectionKey
	sections map[model.SectionKey]*model.Section
}

// GroupSections 将课程条目划分为互不相交的 Section，每个条目恰好属于一个 Section
func GroupSections(c *model.Course) *SectionGroups {
	g := &SectionGroups{sections: make(map[model.SectionKey]*model.Section)}
	for _, e := range c.Entries {
		key := SectionKeyOf(e)
		sec, ok := g.sections[key]
		if !ok {
			sec = &model.Section{BaseType: key.BaseType, SectionID: key.SectionID}
			g.sections[key] = sec
			g.order = append(g.order, key)
		}
		sec.Entries = append(sec.Entries, e)
	}
	return g
}

// Len 分组数
func (g *SectionGroups) Len() int { return len(g.order) }

// Get 按键查找
func (g *SectionGroups) Get(key model.SectionKey) (model.Section, bool) {
	sec, ok := g.sections[key]
	if !ok {
		return model.Section{}, false
	}
	return *sec, true
}

// All 按首次出现顺序返回全部分组
func (g *SectionGroups) All() []model.Section {
	out := make([]model.Section, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.sections[k])
	}
	return out
}

// Categories 按首次出现顺序返回出现过的类别
func (g *SectionGroups) Categories() []model.Category {
	seen := make(map[model.Category]bool)
	var out []model.Category
	for _, k := range g.order {
		if !seen[k.BaseType] {
			seen[k.BaseType] = true
			out = append(out, k.BaseType)
		}
	}
	return out
}

// Options 某一类别下可供选择的班号（按首次出现顺序）
func (g *SectionGroups) Options(category model.Category) []string {
	var out []string
	for _, k := range g.order {
		if k.BaseType == category {
			out = append(out, k.SectionID)
		}
	}
	return out
}

// HasMultiple 某一类别是否存在 ≥2 个平行班
func (g *SectionGroups) HasMultiple(category model.Category) bool {
	return len(g.Options(category)) >= 2
}

// HasMultipleSections 任一类别存在多个平行班时，界面需要提供班次选择
func HasMultipleSections(c *model.Course) bool {
	g := GroupSections(c)
	for _, cat := range g.Categories() {
		if g.HasMultiple(cat) {
			return true
		}
	}
	return false
}

// DefaultSelections 每个类别取首次出现的班号
func DefaultSelections(c *model.Course) map[model.Category]string {
	g := GroupSections(c)
	out := make(map[model.Category]string)
	for _, cat := range g.Categories() {
		out[cat] = g.Options(cat)[0]
	}
	return out
}

// EffectiveEntries 当前班次选择下实际生效的条目
//
// 单一班次的类别总是全部包含；多班次类别只包含已选班号，
// 未选择时回退到首次出现的班号。
func EffectiveEntries(c *model.Course) []model.ScheduleEntry {
	return effectiveEntriesWith(c, c.SelectedSections)
}

func effectiveEntriesWith(c *model.Course, choices map[model.Category]string) []model.ScheduleEntry {
	g := GroupSections(c)
	var out []model.ScheduleEntry
	for _, cat := range g.Categories() {
		opts := g.Options(cat)
		chosen := opts[0]
		if len(opts) > 1 {
			if sid, ok := choices[cat]; ok {
				if _, exists := g.Get(model.SectionKey{BaseType: cat, SectionID: sid}); exists {
					chosen = sid
				}
			}
		}
		sec, _ := g.Get(model.SectionKey{BaseType: cat, SectionID: chosen})
		out = append(out, sec.Entries...)
	}
	return out
}
