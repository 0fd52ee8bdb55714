package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"course-planner/internal/model"
	"course-planner/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Mock Repositories
// ═══════════════════════════════════════════════════════════

// ── Mock PlanSelectionRepository ──

type mockPlanSelectionRepo struct {
	mu       sync.Mutex
	plans    map[string][]model.PlanSelection
	listErr  error
	saveErr  error
	replaces int
}

func newMockPlanSelectionRepo() *mockPlanSelectionRepo {
	return &mockPlanSelectionRepo{plans: make(map[string][]model.PlanSelection)}
}

func (m *mockPlanSelectionRepo) ListByPlan(_ context.Context, planKey string) ([]model.PlanSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.PlanSelection(nil), m.plans[planKey]...), nil
}

func (m *mockPlanSelectionRepo) ReplaceByPlan(_ context.Context, planKey string, selections []model.PlanSelection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.plans[planKey] = append([]model.PlanSelection(nil), selections...)
	return nil
}

func (m *mockPlanSelectionRepo) DeleteByPlan(_ context.Context, planKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plans, planKey)
	return nil
}

func (m *mockPlanSelectionRepo) courseIDs(planKey string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, s := range m.plans[planKey] {
		ids = append(ids, s.CourseID)
	}
	return ids
}

// ── Mock CatalogSource ──

// mockCatalogSource 各学科的原始 JSON；Load 期间只读，可被并发拉取
type mockCatalogSource struct {
	subjects      map[string]string
	subjectErrs   map[string]error
	titles        map[string]string
	titlesErr     error
	titleSeq      []map[string]string // 依次返回给每次 FetchTitles，用尽后返回 titles
	fetchHook     func(ctx context.Context, subject string) error
	invalidations int

	mu         sync.Mutex
	titleCalls int
}

func (m *mockCatalogSource) FetchSubject(ctx context.Context, subject string) ([]model.RawCourse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.fetchHook != nil {
		if err := m.fetchHook(ctx, subject); err != nil {
			return nil, err
		}
	}
	if err, ok := m.subjectErrs[subject]; ok {
		return nil, err
	}
	data, ok := m.subjects[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrCatalogNotFound, repository.SubjectFileName(subject))
	}
	return model.DecodeRawCourses([]byte(data))
}

func (m *mockCatalogSource) FetchTitles(_ context.Context) (map[string]string, error) {
	if m.titlesErr != nil {
		return nil, m.titlesErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.titleCalls < len(m.titleSeq) {
		titles := m.titleSeq[m.titleCalls]
		m.titleCalls++
		return titles, nil
	}
	if m.titles == nil {
		return map[string]string{}, nil
	}
	return m.titles, nil
}

func (m *mockCatalogSource) Invalidate(_ context.Context) error {
	m.invalidations++
	return nil
}

// ── Mock TitleLookup ──

type mapTitles map[string]string

func (m mapTitles) Lookup(subject, code string) (string, bool) {
	v, ok := m[repository.TitleKey(subject, code)]
	return v, ok
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// entry 构造条目，类别与班号按正式规则推导
func entry(sessionType string, day model.Weekday, start, end string) model.ScheduleEntry {
	e := model.ScheduleEntry{
		SessionType: sessionType,
		Category:    model.NormalizeCategory(sessionType),
		Day:         day,
		Start:       model.MustParseTime(start),
		End:         model.MustParseTime(end),
		Location:    "LSK 201",
	}
	e.SectionID = ExtractSectionID(e)
	return e
}

func newCourse(id string, entries ...model.ScheduleEntry) *model.Course {
	c := &model.Course{ID: id, Name: id + " name", Entries: entries, Color: CourseColor(id)}
	c.SelectedSections = DefaultSelections(c)
	return c
}

func courseValues(courses ...*model.Course) []model.Course {
	out := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		out = append(out, *c)
	}
	return out
}

func mustToggle(t *testing.T, p *Planner, id string) SelectionResult {
	t.Helper()
	res, err := p.Toggle(id)
	if err != nil {
		t.Fatalf("Toggle(%s) 意外错误: %v", id, err)
	}
	return res
}
