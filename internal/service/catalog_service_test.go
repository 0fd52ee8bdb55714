package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"course-planner/internal/dto"
	"course-planner/internal/model"
	pkgerrors "course-planner/pkg/errors"
)

const statRaw = `[
	{"code": "2005", "title": "Programming Languages for Statistics", "terms": {"Term 1": {
		"--LEC": {"days": [1], "startTimes": ["12:30"], "endTimes": ["13:00"], "locations": ["LSB LT3"]}
	}}},
	{"code": "3100"}
]`

func newTestCatalogService(src *mockCatalogSource, demo bool) CatalogService {
	return NewCatalogService(src, CatalogOptions{
		DefaultSubjects: []string{"CSCI", "STAT"},
		DemoFallback:    demo,
	}, nil)
}

// ═══════════════════════════════════════════════════════════
// Load
// ═══════════════════════════════════════════════════════════

func TestCatalogService_Load(t *testing.T) {
	src := &mockCatalogSource{subjects: map[string]string{"CSCI": csciRaw, "STAT": statRaw}}
	svc := newTestCatalogService(src, true)

	resp, err := svc.Load(context.Background(), []string{" csci", "MATH", "stat", "CSCI"})
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if resp.Version != 1 || resp.Demo || resp.Degraded {
		t.Errorf("期望 version=1 且非演示非降级: %+v", resp)
	}
	if len(resp.Subjects) != 2 || resp.Subjects[0] != "CSCI" || resp.Subjects[1] != "STAT" {
		t.Errorf("已加载学科错误: %v", resp.Subjects)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "MATH" {
		t.Errorf("缺失的学科应被跳过: %v", resp.Skipped)
	}
	// CSCI 3 门 + STAT 2 门
	if resp.CourseCount != 5 {
		t.Errorf("期望 5 门课程, 实际 %d", resp.CourseCount)
	}

	catalog := svc.Current()
	if catalog.Courses[0].ID != "CSCI 3100" || catalog.Courses[3].ID != "STAT 2005" {
		t.Errorf("课程顺序应与学科请求顺序一致: %s, %s", catalog.Courses[0].ID, catalog.Courses[3].ID)
	}

	resp, _ = svc.Load(context.Background(), nil)
	if resp.Version != 2 {
		t.Errorf("重新加载后版本应递增, 实际 %d", resp.Version)
	}
	if len(resp.Skipped) != 0 {
		t.Errorf("默认学科均存在, 不应跳过: %v", resp.Skipped)
	}
}

func TestCatalogService_Load_DemoFallback(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogSource{}, true)

	resp, err := svc.Load(context.Background(), []string{"MATH"})
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if !resp.Demo || resp.CourseCount != 3 {
		t.Errorf("空目录应回退 3 门演示课程: %+v", resp)
	}
	if len(resp.Subjects) != 2 || resp.Subjects[0] != "CSCI" || resp.Subjects[1] != "STAT" {
		t.Errorf("演示目录学科错误: %v", resp.Subjects)
	}
}

func TestCatalogService_Load_NoFallback(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogSource{}, false)

	_, err := svc.Load(context.Background(), []string{"MATH"})
	if !errors.Is(err, pkgerrors.ErrCatalogLoad) {
		t.Fatalf("期望 ErrCatalogLoad, 实际 %v", err)
	}
	if svc.Current() != nil {
		t.Error("加载失败不应替换当前目录")
	}
}

func TestCatalogService_Load_Degraded(t *testing.T) {
	src := &mockCatalogSource{
		subjects:    map[string]string{"CSCI": csciRaw},
		subjectErrs: map[string]error{"STAT": errors.New("connection reset")},
		titlesErr:   errors.New("titles unavailable"),
	}
	svc := newTestCatalogService(src, true)

	resp, err := svc.Load(context.Background(), nil)
	if err != nil {
		t.Fatalf("部分失败不应中断加载: %v", err)
	}
	if !resp.Degraded || resp.Demo {
		t.Errorf("期望降级且非演示: %+v", resp)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "STAT" {
		t.Errorf("失败的学科应被跳过: %v", resp.Skipped)
	}
	c, _ := svc.Current().Course("CSCI 3100")
	if c.Name != "Raw Title" {
		t.Errorf("课程名映射不可用时应使用记录 title, 实际 %q", c.Name)
	}
}

func TestCatalogService_Load_Titles(t *testing.T) {
	src := &mockCatalogSource{
		subjects: map[string]string{"CSCI": csciRaw},
		titles:   map[string]string{"CSCI3100": "Software Engineering"},
	}
	svc := newTestCatalogService(src, true)
	if _, err := svc.Load(context.Background(), []string{"CSCI"}); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	c, _ := svc.Current().Course("CSCI 3100")
	if c.Name != "Software Engineering" {
		t.Errorf("期望外部课程名, 实际 %q", c.Name)
	}
}

func TestCatalogService_Load_Canceled(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogSource{subjects: map[string]string{"CSCI": csciRaw}}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Load(ctx, []string{"CSCI"}); !errors.Is(err, pkgerrors.ErrCatalogLoad) {
		t.Errorf("ctx 已取消时期望 ErrCatalogLoad, 实际 %v", err)
	}
	if svc.Current() != nil {
		t.Error("取消的加载不应替换当前目录")
	}
}

func TestCatalogService_Reload(t *testing.T) {
	src := &mockCatalogSource{subjects: map[string]string{"CSCI": csciRaw}}
	svc := newTestCatalogService(src, true)

	resp, err := svc.Reload(context.Background(), []string{"CSCI"})
	if err != nil {
		t.Fatalf("重新加载失败: %v", err)
	}
	if src.invalidations != 1 {
		t.Errorf("Reload 应先清除缓存, 实际调用 %d 次", src.invalidations)
	}
	if resp.Version != 1 {
		t.Errorf("期望 version=1, 实际 %d", resp.Version)
	}
}

func TestCatalogService_Load_KeepsTitlesOnTitleFailure(t *testing.T) {
	src := &mockCatalogSource{
		subjects: map[string]string{"CSCI": csciRaw},
		titles:   map[string]string{"CSCI3100": "Software Engineering"},
	}
	svc := newTestCatalogService(src, true)
	if _, err := svc.Load(context.Background(), []string{"CSCI"}); err != nil {
		t.Fatalf("首次加载失败: %v", err)
	}

	src.titlesErr = errors.New("titles unavailable")
	resp, err := svc.Load(context.Background(), []string{"CSCI"})
	if err != nil {
		t.Fatalf("课程名失败不应中断加载: %v", err)
	}
	if !resp.Degraded {
		t.Error("课程名加载失败应标记降级")
	}
	c, _ := svc.Current().Course("CSCI 3100")
	if c.Name != "Software Engineering" {
		t.Errorf("课程名加载失败时应沿用上次的课程名, 实际 %q", c.Name)
	}
}

// gatedLoads 让每次学科拉取停在各自的闸门上，由测试决定完成顺序
type gatedLoads struct {
	mu      sync.Mutex
	calls   int
	gates   []chan struct{}
	started chan int
}

func newGatedLoads(n int) *gatedLoads {
	g := &gatedLoads{started: make(chan int, n)}
	for i := 0; i < n; i++ {
		g.gates = append(g.gates, make(chan struct{}))
	}
	return g
}

func (g *gatedLoads) hook(ctx context.Context, _ string) error {
	g.mu.Lock()
	n := g.calls
	g.calls++
	g.mu.Unlock()

	g.started <- n
	select {
	case <-g.gates[n]:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loadResult struct {
	resp *dto.CatalogResponse
	err  error
}

func startLoad(svc CatalogService, done chan<- loadResult) {
	go func() {
		resp, err := svc.Load(context.Background(), []string{"CSCI"})
		done <- loadResult{resp, err}
	}()
}

func TestCatalogService_Load_OverlappingTitles(t *testing.T) {
	gates := newGatedLoads(2)
	src := &mockCatalogSource{
		subjects: map[string]string{"CSCI": csciRaw},
		titleSeq: []map[string]string{
			{"CSCI3100": "First Title"},
			{"CSCI3100": "Second Title"},
		},
		fetchHook: gates.hook,
	}
	svc := newTestCatalogService(src, true)

	first, second := make(chan loadResult, 1), make(chan loadResult, 1)
	startLoad(svc, first)
	<-gates.started
	startLoad(svc, second)
	<-gates.started

	// 先发起的加载先完成：只能使用自己取到的课程名
	close(gates.gates[0])
	r1 := <-first
	if r1.err != nil || r1.resp.Superseded {
		t.Fatalf("先发起的加载应正常生效: %+v, err=%v", r1.resp, r1.err)
	}
	c, _ := svc.Current().Course("CSCI 3100")
	if c.Name != "First Title" {
		t.Errorf("期望 First Title, 实际 %q（课程名被另一次加载覆盖）", c.Name)
	}

	close(gates.gates[1])
	r2 := <-second
	if r2.err != nil || r2.resp.Version != 2 {
		t.Fatalf("后发起的加载应生效为 version 2: %+v, err=%v", r2.resp, r2.err)
	}
	c, _ = svc.Current().Course("CSCI 3100")
	if c.Name != "Second Title" {
		t.Errorf("期望 Second Title, 实际 %q", c.Name)
	}
}

func TestCatalogService_Load_LaterLoadWins(t *testing.T) {
	gates := newGatedLoads(2)
	src := &mockCatalogSource{
		subjects: map[string]string{"CSCI": csciRaw},
		titleSeq: []map[string]string{
			{"CSCI3100": "Stale Title"},
			{"CSCI3100": "Fresh Title"},
		},
		fetchHook: gates.hook,
	}
	svc := newTestCatalogService(src, true)

	slow, fast := make(chan loadResult, 1), make(chan loadResult, 1)
	startLoad(svc, slow)
	<-gates.started
	startLoad(svc, fast)
	<-gates.started

	// 后发起的加载先完成
	close(gates.gates[1])
	rf := <-fast
	if rf.err != nil || rf.resp.Version != 1 {
		t.Fatalf("后发起的加载应生效: %+v, err=%v", rf.resp, rf.err)
	}

	// 较早发起的慢加载随后完成，不得覆盖
	close(gates.gates[0])
	rs := <-slow
	if rs.err != nil {
		t.Fatalf("被取代的加载不应返回错误: %v", rs.err)
	}
	if !rs.resp.Superseded || rs.resp.Version != 1 {
		t.Errorf("被取代的加载应返回当前目录且标记 superseded: %+v", rs.resp)
	}

	cur := svc.Current()
	if cur.Version != 1 {
		t.Errorf("当前目录应保持 version 1, 实际 %d", cur.Version)
	}
	c, _ := cur.Course("CSCI 3100")
	if c.Name != "Fresh Title" {
		t.Errorf("较早发起的加载覆盖了较新的目录: %q", c.Name)
	}
}

// ═══════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════

func TestCatalogService_NotLoaded(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogSource{}, true)
	ctx := context.Background()

	if _, err := svc.Summary(ctx); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("Summary: 期望 ErrCatalogNotLoaded, 实际 %v", err)
	}
	if _, err := svc.ListCourses(ctx, &dto.ListCoursesRequest{}); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("ListCourses: 期望 ErrCatalogNotLoaded, 实际 %v", err)
	}
	if _, err := svc.GetCourse(ctx, "CSCI 3100"); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("GetCourse: 期望 ErrCatalogNotLoaded, 实际 %v", err)
	}
}

func TestCatalogService_ListCourses(t *testing.T) {
	src := &mockCatalogSource{subjects: map[string]string{"CSCI": csciRaw, "STAT": statRaw}}
	svc := newTestCatalogService(src, true)
	ctx := context.Background()
	svc.Load(ctx, nil)

	tests := []struct {
		name string
		req  dto.ListCoursesRequest
		want []string
	}{
		{"全部", dto.ListCoursesRequest{}, []string{"CSCI 3100", "CSCI 2005", "CSCI 4999", "STAT 2005", "STAT 3100"}},
		{"按学科", dto.ListCoursesRequest{Subject: "stat"}, []string{"STAT 2005", "STAT 3100"}},
		{"按课号", dto.ListCoursesRequest{Query: "3100"}, []string{"CSCI 3100", "STAT 3100"}},
		{"按名称", dto.ListCoursesRequest{Query: "statistics"}, []string{"STAT 2005"}},
		{"组合", dto.ListCoursesRequest{Subject: "CSCI", Query: "raw"}, []string{"CSCI 3100"}},
		{"无结果", dto.ListCoursesRequest{Query: "biology"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.ListCourses(ctx, &tt.req)
			if err != nil {
				t.Fatalf("查询失败: %v", err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("期望 %v, 实际 %d 条", tt.want, len(list))
			}
			for i, id := range tt.want {
				if list[i].ID != id {
					t.Errorf("第 %d 条期望 %s, 实际 %s", i, id, list[i].ID)
				}
			}
		})
	}
}

func TestCatalogService_GetCourse(t *testing.T) {
	src := &mockCatalogSource{subjects: map[string]string{"CSCI": csciRaw}}
	svc := newTestCatalogService(src, true)
	ctx := context.Background()
	svc.Load(ctx, []string{"CSCI"})

	resp, err := svc.GetCourse(ctx, "CSCI 3100")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if !resp.HasMultipleSections || resp.EntryCount != 4 {
		t.Errorf("课程概况错误: %+v", resp.CourseSummary)
	}
	if len(resp.Sections) != 2 {
		t.Fatalf("期望讲座与辅导两个类别, 实际 %d", len(resp.Sections))
	}
	tut := resp.Sections[1]
	if tut.Category != model.CategoryTutorial || tut.Default != "AT01" || len(tut.Options) != 2 {
		t.Errorf("辅导班分组错误: %+v", tut)
	}

	if _, err := svc.GetCourse(ctx, "CSCI 9999"); !errors.Is(err, ErrCatalogCourseNotFound) {
		t.Errorf("期望 ErrCatalogCourseNotFound, 实际 %v", err)
	}
}
