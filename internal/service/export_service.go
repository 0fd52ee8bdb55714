package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"course-planner/internal/model"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoCourses    = errors.New("尚未选择任何课程")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const (
	exportSlotMinutes = 30
	exportSheetName   = "课表"
	icsProductID      = "-//course-planner//weekly timetable//ZH"

	icsTimestampUTC   = "20060102T150405Z"
	icsTimestampLocal = "20060102T150405"
)

// ExportService 课表导出接口
//
// 设计说明：
//   - 只导出已确认课程的当前生效条目，预览不参与
//   - xlsx：行 = 30 分钟时段，列 = 星期，同一课程的连续时段合并单元格并填充课程颜色
//   - ics：每个条目一个按周重复的事件，重复次数由 export.weeks 决定
type ExportService interface {
	ExportGrid(courses []*model.Course) (*bytes.Buffer, string, error)
	ExportICS(courses []*model.Course, termStart time.Time) ([]byte, string, error)
}

// ExportOptions 导出选项
type ExportOptions struct {
	Weeks    int
	Timezone string
}

type exportService struct {
	grid   *GridProjector
	weeks  int
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例；时区无效时回退 UTC
func NewExportService(grid *GridProjector, opts ExportOptions, logger *zap.Logger) ExportService {
	if grid == nil {
		grid = NewGridProjector(DefaultGridOptions())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil || opts.Timezone == "" {
		if opts.Timezone != "" {
			logger.Warn("导出时区无效，使用 UTC", zap.String("timezone", opts.Timezone), zap.Error(err))
		}
		loc = time.UTC
	}
	if opts.Weeks <= 0 {
		opts.Weeks = 13
	}
	return &exportService{grid: grid, weeks: opts.Weeks, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportGrid — 导出周网格为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：标题
//   - 第 2 行：列头（时间 + 可见星期）
//   - 第 3 行起：日窗口内每 30 分钟一行
//   - 窗口外的部分被裁剪，与网格投影一致

func (s *exportService) ExportGrid(courses []*model.Course) (*bytes.Buffer, string, error) {
	if len(courses) == 0 {
		return nil, "", ErrExportNoCourses
	}

	opts := s.grid.Options()
	rects := s.grid.Placements(courses, nil)

	f := excelize.NewFile()
	defer f.Close()

	sheet := exportSheetName
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", s.generateFail(err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	lastCol := colName(len(opts.Days))
	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", lastCol, 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题与表头
	f.SetCellValue(sheet, "A1", fmt.Sprintf("我的课表（%d 门课程）", len(courses)))
	f.MergeCell(sheet, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheet, "A1", cell(lastCol, 1), headerStyle)

	f.SetCellValue(sheet, cell("A", 2), "时间")
	for i, d := range opts.Days {
		f.SetCellValue(sheet, cell(colName(i+1), 2), string(d))
	}
	f.SetCellStyle(sheet, "A2", cell(lastCol, 2), headerStyle)

	// 时间列
	slots := int(opts.DayEnd-opts.DayStart+exportSlotMinutes-1) / exportSlotMinutes
	for i := 0; i < slots; i++ {
		t := opts.DayStart.Add(i * exportSlotMinutes)
		f.SetCellValue(sheet, cell("A", 3+i), t.Format())
	}

	// 课程单元格；同一单元格已被占用时追加文本而不合并
	occupied := make(map[string]bool)
	styles := make(map[string]int)
	for _, r := range rects {
		startSlot := int(maxTime(r.Start, opts.DayStart)-opts.DayStart) / exportSlotMinutes
		endSlot := (int(minTime(r.End, opts.DayEnd)-opts.DayStart) + exportSlotMinutes - 1) / exportSlotMinutes
		if endSlot <= startSlot {
			endSlot = startSlot + 1
		}
		col := colName(r.Column + 1)
		top := cell(col, 3+startSlot)
		bottom := cell(col, 3+endSlot-1)
		text := placementText(r)

		free := true
		for row := startSlot; row < endSlot; row++ {
			if occupied[cell(col, 3+row)] {
				free = false
				break
			}
		}
		if !free {
			prev, _ := f.GetCellValue(sheet, top)
			if prev != "" {
				text = prev + "\n" + text
			}
			f.SetCellValue(sheet, top, text)
			continue
		}

		for row := startSlot; row < endSlot; row++ {
			occupied[cell(col, 3+row)] = true
		}
		f.SetCellValue(sheet, top, text)
		if top != bottom {
			f.MergeCell(sheet, top, bottom)
		}
		style, ok := styles[r.Color]
		if !ok {
			style, _ = f.NewStyle(&excelize.Style{
				Fill:      excelize.Fill{Type: "pattern", Color: []string{r.Color}, Pattern: 1},
				Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			})
			styles[r.Color] = style
		}
		f.SetCellStyle(sheet, top, bottom, style)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateFail(err)
	}
	return buf, "timetable.xlsx", nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS — 导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// termStart 所在周的周一为第一周；每个条目落在该周对应星期，
// RRULE:FREQ=WEEKLY;COUNT=weeks。占位条目不导出。

func (s *exportService) ExportICS(courses []*model.Course, termStart time.Time) ([]byte, string, error) {
	if len(courses) == 0 {
		return nil, "", ErrExportNoCourses
	}

	monday := weekMonday(termStart.In(s.loc))
	now := time.Now()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("我的课表")
	cal.SetXWRTimezone(s.loc.String())
	if s.loc != time.UTC {
		cal.AddTimezone(s.loc.String())
	}

	count := 0
	for _, c := range courses {
		for i, e := range EffectiveEntries(c) {
			if e.IsPlaceholder {
				continue
			}
			day := monday.AddDate(0, 0, e.Day.Index())
			start := atClock(day, e.Start)
			end := atClock(day, e.End)

			uid := fmt.Sprintf("%s-%d-%s@course-planner", strings.ReplaceAll(c.ID, " ", ""), i, monday.Format("20060102"))
			event := cal.AddEvent(uid)
			event.SetDtStampTime(now)
			s.setEventTime(event, ics.ComponentPropertyDtStart, start)
			s.setEventTime(event, ics.ComponentPropertyDtEnd, end)
			event.SetSummary(fmt.Sprintf("%s %s", c.ID, e.SessionType))
			event.SetDescription(c.Name)
			if e.Location != "" {
				event.SetLocation(e.Location)
			}
			event.SetProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", s.weeks))
			count++
		}
	}
	if count == 0 {
		return nil, "", ErrExportNoCourses
	}

	return []byte(cal.Serialize()), "timetable.ics", nil
}

// setEventTime UTC 写 Z 格式；其他时区写本地钟点并附 TZID，
// 夏令时切换后按周重复的事件仍落在同一本地钟点
func (s *exportService) setEventTime(event *ics.VEvent, prop ics.ComponentProperty, t time.Time) {
	if s.loc == time.UTC {
		event.SetProperty(prop, t.UTC().Format(icsTimestampUTC))
		return
	}
	event.SetProperty(prop, t.In(s.loc).Format(icsTimestampLocal),
		&ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{s.loc.String()}})
}

func (s *exportService) generateFail(err error) error {
	s.logger.Error("生成导出文件失败", zap.Error(err))
	return ErrExportGenerateFail
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func placementText(r model.PlacementRect) string {
	text := fmt.Sprintf("%s %s\n%s-%s", r.CourseID, r.SessionType, r.Start, r.End)
	if r.Location != "" {
		text += "\n" + r.Location
	}
	return text
}

// weekMonday t 所在周的周一 00:00
func weekMonday(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atClock(day time.Time, t model.TimeOfDay) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location())
}

// NextMonday now 之后的第一个周一（今天是周一时取下周一）
func NextMonday(now time.Time) time.Time {
	return weekMonday(now).AddDate(0, 0, 7)
}

func maxTime(a, b model.TimeOfDay) model.TimeOfDay {
	if a > b {
		return a
	}
	return b
}

func minTime(a, b model.TimeOfDay) model.TimeOfDay {
	if a < b {
		return a
	}
	return b
}
