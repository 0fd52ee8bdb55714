package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"course-planner/internal/dto"
	"course-planner/internal/model"
	"course-planner/internal/repository"
	pkgerrors "course-planner/pkg/errors"
)

// ── 目录模块业务错误 ──

var (
	ErrCatalogNotLoaded      = errors.New("课程目录尚未加载")
	ErrCatalogCourseNotFound = errors.New("课程不存在")
)

// defaultFetchConcurrency 同时拉取的学科数
const defaultFetchConcurrency = 4

// CourseCatalog 一次加载得到的不可变目录快照
type CourseCatalog struct {
	Version  uint64
	Courses  []model.Course
	Subjects []string
	Skipped  []string
	LoadedAt time.Time
	Demo     bool
	Degraded bool

	index  map[string]int
	titles *titleLookup // 本次加载使用的课程名映射，课程名加载失败时沿用
	seq    uint64       // 发起顺序，较早发起的加载不得覆盖较晚发起的结果
}

func newCourseCatalog(courses []model.Course) *CourseCatalog {
	c := &CourseCatalog{Courses: courses, index: make(map[string]int, len(courses))}
	for i := range courses {
		c.index[courses[i].ID] = i
	}
	return c
}

// Course 按 ID 查找课程（返回目录内的只读指针）
func (c *CourseCatalog) Course(id string) (*model.Course, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.Courses[i], true
}

// CatalogService 课程目录业务接口
type CatalogService interface {
	// Load 拉取并归一化指定学科，成功后整体替换当前目录
	Load(ctx context.Context, subjects []string) (*dto.CatalogResponse, error)
	// Reload 清除原始文件缓存后再 Load
	Reload(ctx context.Context, subjects []string) (*dto.CatalogResponse, error)
	// Current 当前目录快照，未加载时为 nil
	Current() *CourseCatalog
	// Summary 当前目录概况
	Summary(ctx context.Context) (*dto.CatalogResponse, error)
	// ListCourses 按学科 / 关键字过滤课程
	ListCourses(ctx context.Context, req *dto.ListCoursesRequest) ([]dto.CourseSummary, error)
	// GetCourse 课程详情，含班次分组
	GetCourse(ctx context.Context, id string) (*dto.CourseDetailResponse, error)
}

// CatalogOptions 目录加载选项
type CatalogOptions struct {
	DefaultSubjects []string
	DemoFallback    bool
	Concurrency     int
}

type catalogService struct {
	source  repository.CatalogSource
	opts    CatalogOptions
	loads   atomic.Uint64
	current atomic.Pointer[CourseCatalog]
	logger  *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(source repository.CatalogSource, opts CatalogOptions, logger *zap.Logger) CatalogService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultFetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		source: source,
		opts:   opts,
		logger: logger,
	}
}

func (s *catalogService) Current() *CourseCatalog {
	return s.current.Load()
}

func (s *catalogService) Summary(_ context.Context) (*dto.CatalogResponse, error) {
	catalog := s.current.Load()
	if catalog == nil {
		return nil, ErrCatalogNotLoaded
	}
	return toCatalogResponse(catalog), nil
}

// ════════════════════════════════════════════════════════════
// Load — 加载课程目录
// ════════════════════════════════════════════════════════════
//
// 1. 获取课程名映射（失败时沿用当前目录的映射，只降级不中断）
// 2. 并发拉取各学科；文件不存在的学科记录后跳过
// 3. 按请求顺序归一化，保证输出稳定
// 4. 全部为空时回退演示数据（可配置关闭）
// 5. 原子替换，读取方永远看不到半成品；
//    较晚发起的加载已生效时放弃本次结果，返回当前目录（superseded=true）

func (s *catalogService) Load(ctx context.Context, subjects []string) (*dto.CatalogResponse, error) {
	subjects = normalizeSubjects(subjects)
	if len(subjects) == 0 {
		subjects = normalizeSubjects(s.opts.DefaultSubjects)
	}

	seq := s.loads.Add(1)
	degraded := false

	// 1. 课程名映射
	var titles *titleLookup
	raw, err := s.source.FetchTitles(ctx)
	if err != nil {
		degraded = true
		if prev := s.current.Load(); prev != nil && prev.titles != nil {
			titles = prev.titles
		} else {
			titles = newTitleLookup(nil)
		}
		s.logger.Warn("课程名映射加载失败，沿用上次的课程名", zap.Error(err))
	} else {
		titles = newTitleLookup(raw)
	}

	// 2. 并发拉取
	raws := make([][]model.RawCourse, len(subjects))
	failures := make([]error, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, subject := range subjects {
		g.Go(func() error {
			courses, err := s.source.FetchSubject(gctx, subject)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			raws[i] = courses
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrCatalogLoad, err)
	}

	// 3. 归一化
	normalizer := NewNormalizer(titles, s.logger)
	var (
		courses []model.Course
		loaded  []string
		skipped []string
		seen    = make(map[string]bool)
	)
	for i, subject := range subjects {
		if failures[i] != nil {
			skipped = append(skipped, subject)
			if errors.Is(failures[i], repository.ErrCatalogNotFound) {
				s.logger.Info("学科目录不存在，已跳过", zap.String("subject", subject))
			} else {
				degraded = true
				s.logger.Warn("学科目录加载失败，已跳过", zap.String("subject", subject), zap.Error(failures[i]))
			}
			continue
		}
		loaded = append(loaded, subject)
		for _, c := range normalizer.NormalizeSubject(subject, raws[i]) {
			if seen[c.ID] {
				s.logger.Debug("重复课程，保留首次出现", zap.String("course", c.ID))
				continue
			}
			seen[c.ID] = true
			courses = append(courses, c)
		}
	}

	// 4. 演示数据回退
	demo := false
	if len(courses) == 0 {
		if !s.opts.DemoFallback {
			return nil, fmt.Errorf("%w: 未加载到任何课程", pkgerrors.ErrCatalogLoad)
		}
		s.logger.Warn("目录为空，使用演示数据",
			zap.Strings("subjects", subjects),
			zap.NamedError("reason", pkgerrors.ErrCatalogLoad),
		)
		courses = DemoCourses()
		demo = true
	}

	// 5. 原子替换
	catalog := newCourseCatalog(courses)
	catalog.Subjects = loaded
	catalog.Skipped = skipped
	catalog.LoadedAt = time.Now()
	catalog.Demo = demo
	catalog.Degraded = degraded
	catalog.titles = titles
	catalog.seq = seq
	for {
		prev := s.current.Load()
		if prev != nil && prev.seq > seq {
			s.logger.Info("较晚发起的目录加载已生效，放弃本次结果",
				zap.Uint64("seq", seq),
				zap.Uint64("current_version", prev.Version),
			)
			resp := toCatalogResponse(prev)
			resp.Superseded = true
			return resp, nil
		}
		catalog.Version = 1
		if prev != nil {
			catalog.Version = prev.Version + 1
		}
		if s.current.CompareAndSwap(prev, catalog) {
			break
		}
	}

	s.logger.Info("课程目录加载完成",
		zap.Uint64("version", catalog.Version),
		zap.Int("courses", len(courses)),
		zap.Strings("skipped", skipped),
		zap.Bool("demo", demo),
	)
	return toCatalogResponse(catalog), nil
}

func (s *catalogService) Reload(ctx context.Context, subjects []string) (*dto.CatalogResponse, error) {
	if err := s.source.Invalidate(ctx); err != nil {
		s.logger.Warn("清除目录缓存失败", zap.Error(err))
	}
	return s.Load(ctx, subjects)
}

func (s *catalogService) ListCourses(_ context.Context, req *dto.ListCoursesRequest) ([]dto.CourseSummary, error) {
	catalog := s.current.Load()
	if catalog == nil {
		return nil, ErrCatalogNotLoaded
	}

	subject := strings.ToUpper(strings.TrimSpace(req.Subject))
	query := strings.ToLower(strings.TrimSpace(req.Query))

	out := make([]dto.CourseSummary, 0)
	for i := range catalog.Courses {
		c := &catalog.Courses[i]
		if subject != "" && c.Subject != subject {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.ID), query) &&
			!strings.Contains(strings.ToLower(c.Name), query) {
			continue
		}
		out = append(out, toCourseSummary(c))
	}
	return out, nil
}

func (s *catalogService) GetCourse(_ context.Context, id string) (*dto.CourseDetailResponse, error) {
	catalog := s.current.Load()
	if catalog == nil {
		return nil, ErrCatalogNotLoaded
	}
	c, ok := catalog.Course(id)
	if !ok {
		return nil, ErrCatalogCourseNotFound
	}

	groups := GroupSections(c)
	resp := &dto.CourseDetailResponse{
		CourseSummary: toCourseSummary(c),
		Entries:       c.Entries,
	}
	for _, cat := range groups.Categories() {
		group := dto.SectionGroup{Category: cat, Default: c.SelectedSections[cat]}
		for _, sid := range groups.Options(cat) {
			sec, _ := groups.Get(model.SectionKey{BaseType: cat, SectionID: sid})
			group.Options = append(group.Options, dto.SectionOption{SectionID: sid, Entries: sec.Entries})
		}
		resp.Sections = append(resp.Sections, group)
	}
	return resp, nil
}

// ── 课程名缓存 ──

// titleLookup 一次加载对应的课程名映射，随目录快照一起替换，加载之间互不影响
type titleLookup struct {
	cache *gocache.Cache
}

func newTitleLookup(titles map[string]string) *titleLookup {
	items := make(map[string]gocache.Item, len(titles))
	for k, v := range titles {
		items[k] = gocache.Item{Object: v}
	}
	return &titleLookup{cache: gocache.NewFrom(gocache.NoExpiration, 0, items)}
}

func (t *titleLookup) Lookup(subject, code string) (string, bool) {
	v, ok := t.cache.Get(repository.TitleKey(subject, code))
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

// ── 辅助函数 ──

// normalizeSubjects 大写、去空白、去重，保持原顺序
func normalizeSubjects(subjects []string) []string {
	seen := make(map[string]bool, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func toCatalogResponse(c *CourseCatalog) *dto.CatalogResponse {
	subjects := append([]string{}, c.Subjects...)
	if c.Demo {
		subjects = demoSubjects(c.Courses)
	}
	return &dto.CatalogResponse{
		Version:     c.Version,
		Subjects:    subjects,
		Skipped:     append([]string{}, c.Skipped...),
		CourseCount: len(c.Courses),
		LoadedAt:    c.LoadedAt,
		Demo:        c.Demo,
		Degraded:    c.Degraded,
	}
}

func demoSubjects(courses []model.Course) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range courses {
		if !seen[c.Subject] {
			seen[c.Subject] = true
			out = append(out, c.Subject)
		}
	}
	sort.Strings(out)
	return out
}

func toCourseSummary(c *model.Course) dto.CourseSummary {
	return dto.CourseSummary{
		ID:                  c.ID,
		Subject:             c.Subject,
		Code:                c.Code,
		Name:                c.Name,
		Color:               c.Color,
		EntryCount:          len(c.Entries),
		HasMultipleSections: HasMultipleSections(c),
		IsPlaceholder:       c.IsPlaceholder,
	}
}
