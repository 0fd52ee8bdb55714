package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"course-planner/internal/dto"
	"course-planner/internal/service"
	pkgerrors "course-planner/pkg/errors"
	"course-planner/pkg/response"
)

// CatalogHandler 课程目录模块 Handler
type CatalogHandler struct {
	svc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler 实例
func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Load 重新加载课程目录
// POST /api/v1/catalog/load
//
// 请求体可省略，此时加载配置中的默认学科；refresh=true 时先清除原始文件缓存
func (h *CatalogHandler) Load(c *gin.Context) {
	var req dto.LoadCatalogRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			response.BadRequest(c, 20001, "参数校验失败")
			return
		}
	}

	load := h.svc.Load
	if req.Refresh {
		load = h.svc.Reload
	}
	resp, err := load(c.Request.Context(), req.Subjects)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetCatalog 当前目录概况
// GET /api/v1/catalog
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	resp, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListCourses 课程列表
// GET /api/v1/catalog/courses?subject=CSCI&q=software
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	var req dto.ListCoursesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	list, err := h.svc.ListCourses(c.Request.Context(), &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.OK(c, list)
}

// GetCourse 课程详情（含班次分组）
// GET /api/v1/catalog/courses/:id
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	resp, err := h.svc.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.OK(c, resp)
}

func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCatalogNotLoaded):
		response.ServiceUnavailable(c, 20101, "课程目录尚未加载")
	case errors.Is(err, service.ErrCatalogCourseNotFound):
		response.NotFound(c, 20102, "课程不存在")
	case errors.Is(err, pkgerrors.ErrCatalogLoad):
		response.ErrorWithDetails(c, http.StatusBadGateway, 20103, "课程目录加载失败", err.Error())
	default:
		response.InternalError(c)
	}
}
