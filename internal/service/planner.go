package service

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"course-planner/internal/model"
)

// ── 选课状态机 ──────────────────────────────────────────────
//
// Idle → Previewing → (Committed | Rejected)
//
// 触发事件：Preview（悬停）、ClearPreview（移开）、Toggle（勾选/取消）、
// ChooseSection（切换班次）。Planner 单线程使用，不做任何加锁；
// 并发访问由调用方（plannerService 的会话锁）保证串行。
// ─────────────────────────────────────────────────────────────

// PlannerState 状态机当前状态
type PlannerState string

const (
	StateIdle       PlannerState = "idle"
	StatePreviewing PlannerState = "previewing"
	StateCommitted  PlannerState = "committed"
	StateRejected   PlannerState = "rejected"
)

// ── 选课业务错误 ──

var (
	ErrPlannerCourseNotFound  = errors.New("课程不存在")
	ErrPlannerSectionNotFound = errors.New("该课程不存在此班次")
)

// SelectionResult 选课 / 切换班次的结果；冲突不是错误，而是被拒绝的正常结果
type SelectionResult struct {
	Accepted  bool
	Conflicts []model.Conflict
	Course    *model.Course
}

// RestoreReport 重放历史选课的结果
type RestoreReport struct {
	Restored  []string
	Missing   []string
	Conflicts []model.Conflict
}

// Planner 单个学生的选课状态
type Planner struct {
	courses []*model.Course
	index   map[string]*model.Course
	order   []string // 已选课程的选择顺序
	preview *model.Course
	state   PlannerState
	grid    *GridProjector
	logger  *zap.Logger
}

// NewPlanner 以课程目录快照创建状态机（课程被深拷贝，选课状态互不影响）
func NewPlanner(courses []model.Course, grid *GridProjector, logger *zap.Logger) *Planner {
	if grid == nil {
		grid = NewGridProjector(DefaultGridOptions())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Planner{grid: grid, logger: logger, state: StateIdle}
	p.load(courses)
	return p
}

func (p *Planner) load(courses []model.Course) {
	p.courses = make([]*model.Course, 0, len(courses))
	p.index = make(map[string]*model.Course, len(courses))
	for i := range courses {
		c := courses[i].Clone()
		c.Selected = false
		if len(c.SelectedSections) == 0 {
			c.SelectedSections = DefaultSelections(c)
		}
		p.courses = append(p.courses, c)
		p.index[c.ID] = c
	}
	p.order = nil
}

// State 当前状态
func (p *Planner) State() PlannerState { return p.state }

// Courses 全部课程（只读使用）
func (p *Planner) Courses() []*model.Course { return p.courses }

// Course 按 ID 查找课程
func (p *Planner) Course(id string) (*model.Course, bool) {
	c, ok := p.index[id]
	return c, ok
}

// Selected 按选择顺序返回已确认课程
func (p *Planner) Selected() []*model.Course {
	out := make([]*model.Course, 0, len(p.order))
	for _, id := range p.order {
		if c, ok := p.index[id]; ok && c.Selected {
			out = append(out, c)
		}
	}
	return out
}

// PreviewCourse 当前预览课程，无预览时为 nil
func (p *Planner) PreviewCourse() *model.Course { return p.preview }

// ════════════════════════════════════════════════════════════
// Toggle — 勾选 / 取消勾选
// ════════════════════════════════════════════════════════════
//
// 勾选前先对已选课程做冲突检测，有冲突即拒绝并返回全部冲突；取消勾选总是成功。

func (p *Planner) Toggle(courseID string) (SelectionResult, error) {
	c, ok := p.index[courseID]
	if !ok {
		return SelectionResult{}, ErrPlannerCourseNotFound
	}

	if c.Selected {
		c.Selected = false
		p.removeFromOrder(courseID)
		p.state = StateIdle
		return SelectionResult{Accepted: true, Course: c}, nil
	}

	conflicts := FindConflicts(c, p.Selected())
	if len(conflicts) > 0 {
		p.state = StateRejected
		p.logger.Info("选课因时间冲突被拒绝",
			zap.String("course", courseID),
			zap.Int("conflicts", len(conflicts)),
			zap.String("first", conflicts[0].Describe()),
		)
		return SelectionResult{Accepted: false, Conflicts: conflicts, Course: c}, nil
	}

	c.Selected = true
	p.order = append(p.order, courseID)
	p.state = StateCommitted
	return SelectionResult{Accepted: true, Course: c}, nil
}

// ════════════════════════════════════════════════════════════
// ChooseSection — 切换班次
// ════════════════════════════════════════════════════════════
//
// 未选课程直接切换；已选课程用切换后的生效条目重新做冲突检测，通过后才应用。

func (p *Planner) ChooseSection(courseID string, baseType model.Category, sectionID string) (SelectionResult, error) {
	c, ok := p.index[courseID]
	if !ok {
		return SelectionResult{}, ErrPlannerCourseNotFound
	}
	groups := GroupSections(c)
	if _, exists := groups.Get(model.SectionKey{BaseType: baseType, SectionID: sectionID}); !exists {
		return SelectionResult{}, ErrPlannerSectionNotFound
	}

	if !c.Selected {
		c.SelectedSections[baseType] = sectionID
		return SelectionResult{Accepted: true, Course: c}, nil
	}

	next := make(map[model.Category]string, len(c.SelectedSections)+1)
	for k, v := range c.SelectedSections {
		next[k] = v
	}
	next[baseType] = sectionID

	conflicts := findConflictsWith(c, effectiveEntriesWith(c, next), p.Selected())
	if len(conflicts) > 0 {
		p.state = StateRejected
		p.logger.Info("班次切换因时间冲突被拒绝",
			zap.String("course", courseID),
			zap.String("base_type", string(baseType)),
			zap.String("section", sectionID),
			zap.Int("conflicts", len(conflicts)),
		)
		return SelectionResult{Accepted: false, Conflicts: conflicts, Course: c}, nil
	}

	c.SelectedSections = next
	p.state = StateCommitted
	return SelectionResult{Accepted: true, Course: c}, nil
}

// ── 预览 ──

// Preview 悬停预览；不经过冲突闸门，冲突条目只在投影中标记
func (p *Planner) Preview(courseID string) error {
	c, ok := p.index[courseID]
	if !ok {
		return ErrPlannerCourseNotFound
	}
	p.preview = c
	p.state = StatePreviewing
	return nil
}

// ClearPreview 清除预览，不影响已确认的放置
func (p *Planner) ClearPreview() {
	p.preview = nil
	if p.state == StatePreviewing {
		p.state = StateIdle
	}
}

// Placements 网格放置结果
func (p *Planner) Placements(includePreview bool) []model.PlacementRect {
	var preview *model.Course
	if includePreview {
		preview = p.preview
	}
	return p.grid.Placements(p.Selected(), preview)
}

// Conflicts 候选课程与当前已选课程的冲突（不改变状态）
func (p *Planner) Conflicts(courseID string) ([]model.Conflict, error) {
	c, ok := p.index[courseID]
	if !ok {
		return nil, ErrPlannerCourseNotFound
	}
	return FindConflicts(c, p.Selected()), nil
}

// ── 持久化辅助 ──

// Selections 导出当前已选集合，供外部持久化
func (p *Planner) Selections(planKey string) []model.PlanSelection {
	selected := p.Selected()
	out := make([]model.PlanSelection, 0, len(selected))
	for i, c := range selected {
		out = append(out, model.NewPlanSelection(planKey, i, c))
	}
	return out
}

// Restore 按原顺序重放历史选课；课程已不存在或与先前选择冲突时跳过
func (p *Planner) Restore(selections []model.PlanSelection) RestoreReport {
	sorted := append([]model.PlanSelection(nil), selections...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	var report RestoreReport
	for _, sel := range sorted {
		c, ok := p.index[sel.CourseID]
		if !ok {
			report.Missing = append(report.Missing, sel.CourseID)
			continue
		}
		if c.Selected {
			continue
		}

		prev := c.SelectedSections
		groups := GroupSections(c)
		choices := DefaultSelections(c)
		for cat, sid := range sel.SectionChoices() {
			if _, exists := groups.Get(model.SectionKey{BaseType: cat, SectionID: sid}); exists {
				choices[cat] = sid
			}
		}
		c.SelectedSections = choices

		res, _ := p.Toggle(c.ID)
		if !res.Accepted {
			c.SelectedSections = prev
			report.Conflicts = append(report.Conflicts, res.Conflicts...)
			continue
		}
		report.Restored = append(report.Restored, c.ID)
	}

	if len(report.Restored) > 0 {
		p.state = StateCommitted
	} else {
		p.state = StateIdle
	}
	return report
}

// Rebase 切换到新的课程目录，尽量保留已选课程与班次选择
func (p *Planner) Rebase(courses []model.Course) RestoreReport {
	previous := p.Selections("")
	previewID := ""
	if p.preview != nil {
		previewID = p.preview.ID
	}

	p.load(courses)
	p.preview = nil
	if previewID != "" {
		p.preview = p.index[previewID]
	}
	return p.Restore(previous)
}

func (p *Planner) removeFromOrder(courseID string) {
	for i, id := range p.order {
		if id == courseID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
