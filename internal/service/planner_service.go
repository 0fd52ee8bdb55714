package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"course-planner/internal/dto"
	"course-planner/internal/model"
	"course-planner/internal/repository"
)

// ── 规划会话业务错误 ──

var (
	ErrPlannerSessionNotFound = errors.New("规划会话不存在或已过期")
)

// defaultSessionTTL 会话空闲过期时间
const defaultSessionTTL = 2 * time.Hour

// PlannerService 规划会话业务接口
//
// 每个会话持有一个 Planner 和一把互斥锁；同一会话的操作串行执行，
// 不同会话互不阻塞。目录重新加载后，会话在下一次访问时迁移到新目录。
type PlannerService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Toggle(ctx context.Context, sessionID string, req *dto.ToggleRequest) (*dto.SelectionResponse, error)
	ChooseSection(ctx context.Context, sessionID string, req *dto.ChooseSectionRequest) (*dto.SelectionResponse, error)
	Preview(ctx context.Context, sessionID string, req *dto.PreviewRequest) error
	ClearPreview(ctx context.Context, sessionID string) error
	GetPlacements(ctx context.Context, sessionID string, req *dto.PlacementsRequest) (*dto.PlacementsResponse, error)
	// SelectedCourses 已确认课程的副本（导出用）
	SelectedCourses(ctx context.Context, sessionID string) ([]*model.Course, error)
}

type plannerSession struct {
	mu             sync.Mutex
	id             string
	planKey        string
	catalogVersion uint64
	planner        *Planner
}

type plannerService struct {
	catalog  CatalogService
	repo     repository.PlanSelectionRepository // 可为 nil：不持久化
	grid     *GridProjector
	sessions *gocache.Cache
	logger   *zap.Logger
}

// NewPlannerService 创建 PlannerService 实例
func NewPlannerService(
	catalog CatalogService,
	repo repository.PlanSelectionRepository,
	grid *GridProjector,
	sessionTTL time.Duration,
	logger *zap.Logger,
) PlannerService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if grid == nil {
		grid = NewGridProjector(DefaultGridOptions())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &plannerService{
		catalog:  catalog,
		repo:     repo,
		grid:     grid,
		sessions: gocache.New(sessionTTL, sessionTTL/2),
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// CreateSession — 创建规划会话
// ════════════════════════════════════════════════════════════
//
// plan_key 非空且启用了持久化时，按原顺序重放历史选课：
// 课程已不存在、或与先前课程冲突的记录被丢弃并在 restore 中返回。

func (s *plannerService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	catalog := s.catalog.Current()
	if catalog == nil {
		return nil, ErrCatalogNotLoaded
	}

	sess := &plannerSession{
		id:             uuid.New().String(),
		planKey:        req.PlanKey,
		catalogVersion: catalog.Version,
		planner:        NewPlanner(catalog.Courses, s.grid, s.logger.With(zap.String("planner", req.PlanKey))),
	}

	var report *RestoreReport
	if sess.planKey != "" && s.repo != nil {
		saved, err := s.repo.ListByPlan(ctx, sess.planKey)
		if err != nil {
			s.logger.Error("读取已保存的选课失败", zap.String("plan_key", sess.planKey), zap.Error(err))
		} else if len(saved) > 0 {
			r := sess.planner.Restore(saved)
			report = &r
			if len(r.Missing) > 0 || len(r.Conflicts) > 0 {
				s.persist(ctx, sess)
			}
		}
	}

	s.sessions.Set(sess.id, sess, gocache.DefaultExpiration)
	s.logger.Info("规划会话已创建",
		zap.String("session_id", sess.id),
		zap.String("plan_key", sess.planKey),
		zap.Uint64("catalog_version", sess.catalogVersion),
	)

	resp := toSessionResponse(sess)
	resp.Restore = toRestoreResponse(report)
	return resp, nil
}

func (s *plannerService) GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := s.withSession(ctx, sessionID, func(sess *plannerSession, rebased *RestoreReport) error {
		resp = toSessionResponse(sess)
		resp.Restore = toRestoreResponse(rebased)
		return nil
	})
	return resp, err
}

func (s *plannerService) DeleteSession(_ context.Context, sessionID string) error {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return ErrPlannerSessionNotFound
	}
	s.sessions.Delete(sessionID)
	return nil
}

// ════════════════════════════════════════════════════════════
// Toggle / ChooseSection — 经过冲突闸门的状态变更
// ════════════════════════════════════════════════════════════

func (s *plannerService) Toggle(ctx context.Context, sessionID string, req *dto.ToggleRequest) (*dto.SelectionResponse, error) {
	var resp *dto.SelectionResponse
	err := s.withSession(ctx, sessionID, func(sess *plannerSession, _ *RestoreReport) error {
		res, err := sess.planner.Toggle(req.CourseID)
		if err != nil {
			return err
		}
		if res.Accepted {
			s.persist(ctx, sess)
		}
		resp = toSelectionResponse(res, sess.planner.State())
		return nil
	})
	return resp, err
}

func (s *plannerService) ChooseSection(ctx context.Context, sessionID string, req *dto.ChooseSectionRequest) (*dto.SelectionResponse, error) {
	var resp *dto.SelectionResponse
	err := s.withSession(ctx, sessionID, func(sess *plannerSession, _ *RestoreReport) error {
		res, err := sess.planner.ChooseSection(req.CourseID, model.Category(req.BaseType), req.SectionID)
		if err != nil {
			return err
		}
		if res.Accepted && res.Course != nil && res.Course.Selected {
			s.persist(ctx, sess)
		}
		resp = toSelectionResponse(res, sess.planner.State())
		return nil
	})
	return resp, err
}

// ── 预览 ──

func (s *plannerService) Preview(ctx context.Context, sessionID string, req *dto.PreviewRequest) error {
	return s.withSession(ctx, sessionID, func(sess *plannerSession, _ *RestoreReport) error {
		return sess.planner.Preview(req.CourseID)
	})
}

func (s *plannerService) ClearPreview(ctx context.Context, sessionID string) error {
	return s.withSession(ctx, sessionID, func(sess *plannerSession, _ *RestoreReport) error {
		sess.planner.ClearPreview()
		return nil
	})
}

func (s *plannerService) GetPlacements(ctx context.Context, sessionID string, req *dto.PlacementsRequest) (*dto.PlacementsResponse, error) {
	var resp *dto.PlacementsResponse
	err := s.withSession(ctx, sessionID, func(sess *plannerSession, _ *RestoreReport) error {
		opts := s.grid.Options()
		resp = &dto.PlacementsResponse{
			DayStart:   opts.DayStart,
			DayEnd:     opts.DayEnd,
			Height:     s.grid.Height(),
			Days:       opts.Days,
			Placements: sess.planner.Placements(req.IncludePreview),
		}
		if resp.Placements == nil {
			resp.Placements = []model.PlacementRect{}
		}
		return nil
	})
	return resp, err
}

func (s *plannerService) SelectedCourses(ctx context.Context, sessionID string) ([]*model.Course, error) {
	var out []*model.Course
	err := s.withSession(ctx, sessionID, func(sess *plannerSession, _ *RestoreReport) error {
		for _, c := range sess.planner.Selected() {
			out = append(out, c.Clone())
		}
		return nil
	})
	return out, err
}

// ── 会话辅助 ──

// withSession 锁定会话后执行 fn；目录版本变化时先迁移到新目录
func (s *plannerService) withSession(ctx context.Context, sessionID string, fn func(sess *plannerSession, rebased *RestoreReport) error) error {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return ErrPlannerSessionNotFound
	}
	sess := v.(*plannerSession)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var rebased *RestoreReport
	if catalog := s.catalog.Current(); catalog != nil && catalog.Version != sess.catalogVersion {
		r := sess.planner.Rebase(catalog.Courses)
		rebased = &r
		sess.catalogVersion = catalog.Version
		s.logger.Info("规划会话已迁移到新目录",
			zap.String("session_id", sess.id),
			zap.Uint64("catalog_version", catalog.Version),
			zap.Strings("missing", r.Missing),
			zap.Int("conflicts", len(r.Conflicts)),
		)
		if len(r.Missing) > 0 || len(r.Conflicts) > 0 {
			s.persist(ctx, sess)
		}
	}

	// 访问即续期
	s.sessions.Set(sess.id, sess, gocache.DefaultExpiration)
	return fn(sess, rebased)
}

// persist 写回已选集合；失败只记录日志，不影响内存中的选课结果
func (s *plannerService) persist(ctx context.Context, sess *plannerSession) {
	if s.repo == nil || sess.planKey == "" {
		return
	}
	if err := s.repo.ReplaceByPlan(ctx, sess.planKey, sess.planner.Selections(sess.planKey)); err != nil {
		s.logger.Error("保存选课失败",
			zap.String("session_id", sess.id),
			zap.String("plan_key", sess.planKey),
			zap.Error(err),
		)
	}
}

// ── DTO 转换 ──

func toSessionResponse(sess *plannerSession) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		SessionID:      sess.id,
		PlanKey:        sess.planKey,
		State:          string(sess.planner.State()),
		CatalogVersion: sess.catalogVersion,
		Selected:       make([]dto.SelectedCourse, 0),
	}
	for _, c := range sess.planner.Selected() {
		resp.Selected = append(resp.Selected, dto.SelectedCourse{
			CourseID: c.ID,
			Name:     c.Name,
			Color:    c.Color,
			Sections: copySections(c.SelectedSections),
		})
	}
	if p := sess.planner.PreviewCourse(); p != nil {
		resp.Preview = p.ID
	}
	return resp
}

func toSelectionResponse(res SelectionResult, state PlannerState) *dto.SelectionResponse {
	resp := &dto.SelectionResponse{
		Accepted:  res.Accepted,
		State:     string(state),
		Conflicts: toConflictResponses(res.Conflicts),
	}
	if res.Course != nil {
		resp.CourseID = res.Course.ID
		resp.Selected = res.Course.Selected
		resp.Sections = copySections(res.Course.SelectedSections)
	}
	return resp
}

func toRestoreResponse(r *RestoreReport) *dto.RestoreResponse {
	if r == nil {
		return nil
	}
	return &dto.RestoreResponse{
		Restored:  append([]string{}, r.Restored...),
		Missing:   append([]string{}, r.Missing...),
		Conflicts: toConflictResponses(r.Conflicts),
	}
}

func toConflictResponses(conflicts []model.Conflict) []dto.ConflictResponse {
	out := make([]dto.ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, dto.ConflictResponse{
			CourseA:     c.CourseA,
			CourseAName: c.CourseAName,
			CourseB:     c.CourseB,
			CourseBName: c.CourseBName,
			EntryA:      c.EntryA,
			EntryB:      c.EntryB,
			Message:     c.Describe(),
		})
	}
	return out
}

func copySections(in map[model.Category]string) map[model.Category]string {
	out := make(map[model.Category]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
