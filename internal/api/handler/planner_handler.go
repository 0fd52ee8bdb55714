package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"course-planner/internal/dto"
	"course-planner/internal/service"
	"course-planner/pkg/response"
)

// PlannerHandler 规划会话模块 Handler
type PlannerHandler struct {
	svc service.PlannerService
}

// NewPlannerHandler 创建 PlannerHandler 实例
func NewPlannerHandler(svc service.PlannerService) *PlannerHandler {
	return &PlannerHandler{svc: svc}
}

// CreateSession 创建规划会话
// POST /api/v1/planner/sessions
func (h *PlannerHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			response.BadRequest(c, 21001, "参数校验失败")
			return
		}
	}

	resp, err := h.svc.CreateSession(c.Request.Context(), &req)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.Created(c, resp)
}

// GetSession 会话状态
// GET /api/v1/planner/sessions/:id
func (h *PlannerHandler) GetSession(c *gin.Context) {
	resp, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, resp)
}

// DeleteSession 结束会话
// DELETE /api/v1/planner/sessions/:id
func (h *PlannerHandler) DeleteSession(c *gin.Context) {
	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, nil)
}

// Toggle 勾选 / 取消勾选课程
// POST /api/v1/planner/sessions/:id/toggle
//
// 因冲突被拒绝时仍返回 200，accepted=false 并附带全部冲突
func (h *PlannerHandler) Toggle(c *gin.Context) {
	var req dto.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	resp, err := h.svc.Toggle(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, resp)
}

// ChooseSection 切换班次
// PUT /api/v1/planner/sessions/:id/sections
func (h *PlannerHandler) ChooseSection(c *gin.Context) {
	var req dto.ChooseSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	resp, err := h.svc.ChooseSection(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, resp)
}

// Preview 悬停预览
// PUT /api/v1/planner/sessions/:id/preview
func (h *PlannerHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	if err := h.svc.Preview(c.Request.Context(), c.Param("id"), &req); err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, nil)
}

// ClearPreview 清除预览
// DELETE /api/v1/planner/sessions/:id/preview
func (h *PlannerHandler) ClearPreview(c *gin.Context) {
	if err := h.svc.ClearPreview(c.Request.Context(), c.Param("id")); err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetPlacements 周网格放置结果
// GET /api/v1/planner/sessions/:id/placements?include_preview=true
func (h *PlannerHandler) GetPlacements(c *gin.Context) {
	var req dto.PlacementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	resp, err := h.svc.GetPlacements(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, resp)
}

func handlePlannerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlannerSessionNotFound):
		response.NotFound(c, 21101, "规划会话不存在或已过期")
	case errors.Is(err, service.ErrPlannerCourseNotFound):
		response.NotFound(c, 21102, "课程不存在")
	case errors.Is(err, service.ErrPlannerSectionNotFound):
		response.BadRequest(c, 21103, "该课程不存在此班次")
	case errors.Is(err, service.ErrCatalogNotLoaded):
		response.ServiceUnavailable(c, 20101, "课程目录尚未加载")
	default:
		response.InternalError(c)
	}
}
