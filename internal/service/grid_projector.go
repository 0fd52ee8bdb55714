package service

import (
	"sort"

	"course-planner/internal/model"
)

// ── 周网格投影 ──────────────────────────────────────────────
//
// 将条目映射为所在星期列中的纵向偏移与高度：
//   - top    = (start - dayStart) / 60 × pixelsPerHour
//   - height = (end - start) / 60 × pixelsPerHour
//   - 超出日窗口的部分被裁剪（Clipped=true），完全在窗口外的条目不放置
//
// 已确认（committed）与预览（preview）共用同一套计算，仅以 State 区分。
// ─────────────────────────────────────────────────────────────

// GridOptions 网格参数
type GridOptions struct {
	DayStart      model.TimeOfDay
	DayEnd        model.TimeOfDay
	PixelsPerHour float64
	Days          []model.Weekday
}

// DefaultGridOptions 08:30–22:30，每小时 60px，周一至周日
func DefaultGridOptions() GridOptions {
	return GridOptions{
		DayStart:      model.At(8, 30),
		DayEnd:        model.At(22, 30),
		PixelsPerHour: 60,
		Days:          append([]model.Weekday(nil), model.Weekdays...),
	}
}

// GridProjector 周网格投影器
type GridProjector struct {
	opts    GridOptions
	columns map[model.Weekday]int
}

// NewGridProjector 创建投影器；非法窗口回退默认值
func NewGridProjector(opts GridOptions) *GridProjector {
	def := DefaultGridOptions()
	if opts.DayEnd <= opts.DayStart {
		opts.DayStart, opts.DayEnd = def.DayStart, def.DayEnd
	}
	if opts.PixelsPerHour <= 0 {
		opts.PixelsPerHour = def.PixelsPerHour
	}
	if len(opts.Days) == 0 {
		opts.Days = def.Days
	}
	cols := make(map[model.Weekday]int, len(opts.Days))
	for i, d := range opts.Days {
		cols[d] = i
	}
	return &GridProjector{opts: opts, columns: cols}
}

// Options 当前网格参数
func (p *GridProjector) Options() GridOptions { return p.opts }

// Height 整个日窗口的像素高度
func (p *GridProjector) Height() float64 {
	return p.toPixels(int(p.opts.DayEnd - p.opts.DayStart))
}

func (p *GridProjector) toPixels(minutes int) float64 {
	return float64(minutes) / 60 * p.opts.PixelsPerHour
}

// Project 将单个条目映射为网格矩形；不在可见星期或窗口内时返回 false
func (p *GridProjector) Project(c *model.Course, e model.ScheduleEntry, state model.PlacementState) (model.PlacementRect, bool) {
	col, ok := p.columns[e.Day]
	if !ok {
		return model.PlacementRect{}, false
	}

	start, end := e.Start, e.End
	if start < p.opts.DayStart {
		start = p.opts.DayStart
	}
	if end > p.opts.DayEnd {
		end = p.opts.DayEnd
	}
	if end <= start {
		return model.PlacementRect{}, false
	}

	return model.PlacementRect{
		CourseID:      c.ID,
		CourseName:    c.Name,
		Color:         c.Color,
		Day:           e.Day,
		Column:        col,
		Top:           p.toPixels(int(start - p.opts.DayStart)),
		Height:        p.toPixels(int(end - start)),
		Start:         e.Start,
		End:           e.End,
		SessionType:   e.SessionType,
		SectionID:     e.SectionID,
		Location:      e.Location,
		State:         state,
		IsPlaceholder: e.IsPlaceholder,
		Clipped:       start != e.Start || end != e.End,
	}, true
}

// Placements 投影已确认课程与可选的预览课程
//
// 预览课程若已在 committed 中则不重复绘制；预览条目与已确认条目冲突时标记 Conflicting。
func (p *GridProjector) Placements(committed []*model.Course, preview *model.Course) []model.PlacementRect {
	var rects []model.PlacementRect
	for _, c := range committed {
		for _, e := range EffectiveEntries(c) {
			if r, ok := p.Project(c, e, model.PlacementCommitted); ok {
				rects = append(rects, r)
			}
		}
	}

	if preview != nil && !containsCourse(committed, preview.ID) {
		entries := EffectiveEntries(preview)
		marked := conflictingEntries(preview, entries, committed)
		for i, e := range entries {
			if r, ok := p.Project(preview, e, model.PlacementPreview); ok {
				r.Conflicting = marked[i]
				rects = append(rects, r)
			}
		}
	}

	SortPlacements(rects)
	return rects
}

// SortPlacements 按列、开始时间、课程 ID 排序，同一时刻的条目堆叠顺序稳定
func SortPlacements(rects []model.PlacementRect) {
	sort.SliceStable(rects, func(i, j int) bool {
		a, b := rects[i], rects[j]
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.State != b.State {
			return a.State == model.PlacementCommitted
		}
		return a.CourseID < b.CourseID
	})
}

func containsCourse(courses []*model.Course, id string) bool {
	for _, c := range courses {
		if c.ID == id {
			return true
		}
	}
	return false
}
