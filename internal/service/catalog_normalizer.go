package service

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"course-planner/internal/model"
	pkgerrors "course-planner/pkg/errors"
)

// ── 目录归一化 ──────────────────────────────────────────────
//
// 职责：将单个学科的原始记录转为 []model.Course。
//
// 设计决策：
//   - 名称：外部课程名查询 → 记录自带 title → "Unknown Course"
//   - terms 缺失/为空，或全部条目无效 → 生成一个占位条目（永不产出零条目课程）
//   - 占位条目的星期/时段由课号数字决定，重复加载结果一致，且分散在网格上
//   - 时间解析失败时回退 09:00 / 10:00
//   - 颜色由课程 ID 哈希得到，无需持久化即可跨加载保持一致
// ─────────────────────────────────────────────────────────────

const (
	unknownCourseName  = "Unknown Course"
	defaultLocation    = "TBA"
	placeholderSession = "TBA"
	placeholderBaseHr  = 8
)

var (
	defaultStartTime = model.At(9, 0)
	defaultEndTime   = model.At(10, 0)
	codeNumberRe     = regexp.MustCompile(`\d+`)
)

// TitleLookup 外部课程名查询（按学科 + 课号）
type TitleLookup interface {
	Lookup(subject, code string) (string, bool)
}

// Normalizer 原始目录记录归一化器
type Normalizer struct {
	titles TitleLookup
	logger *zap.Logger
}

// NewNormalizer 创建 Normalizer；titles 可为 nil
func NewNormalizer(titles TitleLookup, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{titles: titles, logger: logger}
}

// NormalizeSubject 归一化一个学科的全部原始记录，输出顺序与输入一致
func (n *Normalizer) NormalizeSubject(subject string, raws []model.RawCourse) []model.Course {
	subject = strings.ToUpper(strings.TrimSpace(subject))
	courses := make([]model.Course, 0, len(raws))
	for _, raw := range raws {
		code := strings.TrimSpace(raw.Code.String())
		if code == "" {
			n.logger.Warn("跳过缺少课号的记录", zap.String("subject", subject))
			continue
		}
		courses = append(courses, n.normalizeCourse(subject, code, raw))
	}
	return courses
}

func (n *Normalizer) normalizeCourse(subject, code string, raw model.RawCourse) model.Course {
	c := model.Course{
		ID:      model.CourseID(subject, code),
		Subject: subject,
		Code:    code,
		Name:    n.resolveName(subject, code, raw.Title),
	}

	if raw.HasTerms() {
		c.Entries = n.entriesFromTerms(c.ID, raw.Terms)
	}
	if len(c.Entries) == 0 {
		n.logger.Debug("使用占位排课",
			zap.String("course", c.ID),
			zap.NamedError("reason", pkgerrors.ErrEmptyScheduleData),
		)
		c.Entries = []model.ScheduleEntry{PlaceholderEntry(code)}
	}

	for _, e := range c.Entries {
		if e.IsPlaceholder {
			c.IsPlaceholder = true
			break
		}
	}
	c.Color = CourseColor(c.ID)
	c.SelectedSections = DefaultSelections(&c)
	return c
}

func (n *Normalizer) resolveName(subject, code, title string) string {
	if n.titles != nil {
		if name, ok := n.titles.Lookup(subject, code); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return unknownCourseName
}

// entriesFromTerms 遍历 (term, section) 对，按并行数组展开条目
func (n *Normalizer) entriesFromTerms(courseID string, terms *model.RawTerms) []model.ScheduleEntry {
	var entries []model.ScheduleEntry
	for tp := terms.Oldest(); tp != nil; tp = tp.Next() {
		term, sections := tp.Key, tp.Value
		if sections == nil {
			continue
		}
		for sp := sections.Oldest(); sp != nil; sp = sp.Next() {
			sectionName, data := sp.Key, sp.Value
			if !data.Aligned() {
				n.logger.Debug("并行数组缺失或长度不一致，跳过班次",
					zap.String("course", courseID),
					zap.String("term", term),
					zap.String("section", sectionName),
				)
				continue
			}
			category := model.NormalizeCategory(sectionName)
			for i := range data.Days {
				e, ok := n.buildEntry(courseID, term, sectionName, category, data, i)
				if ok {
					entries = append(entries, e)
				}
			}
		}
	}
	return entries
}

func (n *Normalizer) buildEntry(courseID, term, sectionName string, category model.Category, data model.RawSection, i int) (model.ScheduleEntry, bool) {
	day, err := model.ParseWeekday(data.Days[i].String())
	if err != nil {
		n.logger.Debug("星期无效，跳过条目",
			zap.String("course", courseID),
			zap.String("section", sectionName),
			zap.Error(err),
		)
		return model.ScheduleEntry{}, false
	}

	start := n.parseOrDefault(courseID, data.StartTimes[i].String(), defaultStartTime)
	end := n.parseOrDefault(courseID, data.EndTimes[i].String(), defaultEndTime)
	if end <= start {
		end = start.Add(60)
		if end <= start {
			start = end.Add(-60)
		}
	}

	e := model.ScheduleEntry{
		SessionType: sectionName,
		Category:    category,
		Day:         day,
		Start:       start,
		End:         end,
		Location:    defaultLocation,
		Term:        term,
	}
	if i < len(data.Locations) && strings.TrimSpace(data.Locations[i].String()) != "" {
		e.Location = strings.TrimSpace(data.Locations[i].String())
	}
	if i < len(data.Instructors) {
		e.Instructor = strings.TrimSpace(data.Instructors[i].String())
	}
	e.SectionID = ExtractSectionID(e)
	return e, true
}

func (n *Normalizer) parseOrDefault(courseID, raw string, def model.TimeOfDay) model.TimeOfDay {
	t, err := model.ParseTime(raw)
	if err != nil {
		n.logger.Debug("时间解析失败，使用默认值",
			zap.String("course", courseID),
			zap.String("raw", raw),
			zap.String("default", def.Format()),
			zap.NamedError("reason", pkgerrors.ErrTimeParse),
		)
		return def
	}
	return t
}

// ── 占位条目 ──

// CodeNumber 课号中的首段数字，没有数字时为 0
func CodeNumber(code string) int {
	m := codeNumberRe.FindString(code)
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return v
}

// PlaceholderEntry 按课号确定性生成占位条目：day = n mod 7, hour = 8 + n mod 10
func PlaceholderEntry(code string) model.ScheduleEntry {
	num := CodeNumber(code)
	day, _ := model.WeekdayFromIndex(num % 7)
	hour := placeholderBaseHr + num%10
	e := model.ScheduleEntry{
		SessionType:   placeholderSession,
		Category:      model.NormalizeCategory(placeholderSession),
		Day:           day,
		Start:         model.At(hour, 0),
		End:           model.At(hour+1, 0),
		Location:      defaultLocation,
		IsPlaceholder: true,
	}
	e.SectionID = ExtractSectionID(e)
	return e
}

// ── 颜色 ──

// CourseColor 将课程 ID 哈希到色相，饱和度与亮度限定在柔和区间内
func CourseColor(courseID string) string {
	h := fnv.New32a()
	h.Write([]byte(courseID))
	sum := h.Sum32()

	hue := float64(sum % 360)
	saturation := 0.55 + float64((sum>>9)%20)/100  // [0.55, 0.75)
	lightness := 0.70 + float64((sum>>17)%12)/100   // [0.70, 0.82)
	return colorful.Hsl(hue, saturation, lightness).Hex()
}

// ── 演示数据 ──

// DemoCourses 整个目录为空时使用的固定演示数据
func DemoCourses() []model.Course {
	build := func(subject, code, name string, entries ...model.ScheduleEntry) model.Course {
		c := model.Course{
			ID:      model.CourseID(subject, code),
			Subject: subject,
			Code:    code,
			Name:    name,
			Entries: entries,
		}
		for i := range c.Entries {
			c.Entries[i].Category = model.NormalizeCategory(c.Entries[i].SessionType)
			c.Entries[i].SectionID = ExtractSectionID(c.Entries[i])
		}
		c.Color = CourseColor(c.ID)
		c.SelectedSections = DefaultSelections(&c)
		return c
	}
	lec := func(day model.Weekday, start, end, location string) model.ScheduleEntry {
		return model.ScheduleEntry{
			SessionType: "--LEC",
			Day:         day,
			Start:       model.MustParseTime(start),
			End:         model.MustParseTime(end),
			Location:    location,
			Term:        "Demo Term",
		}
	}

	return []model.Course{
		build("CSCI", "3100", "Software Engineering",
			lec(model.Monday, "11:30", "12:15", "LSK LT1"),
			lec(model.Tuesday, "12:30", "14:15", "LSK LT1"),
		),
		build("CSCI", "3180", "Principles of Programming Languages",
			lec(model.Monday, "14:30", "16:15", "MMW 705"),
		),
		build("STAT", "2005", "Programming Languages for Statistics",
			lec(model.Tuesday, "12:30", "13:00", "LSB LT3"),
		),
	}
}

// DescribeEntry 日志与命令行输出使用的简短描述
func DescribeEntry(e model.ScheduleEntry) string {
	s := fmt.Sprintf("%s %s-%s %s", e.Day, e.Start, e.End, e.SessionType)
	if e.SectionID != DefaultSectionID {
		s += " [" + e.SectionID + "]"
	}
	if e.Location != "" {
		s += " @ " + e.Location
	}
	return s
}
