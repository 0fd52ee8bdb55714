package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"course-planner/internal/dto"
	"course-planner/internal/service"
	"course-planner/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 课表导出 HTTP 处理器
type ExportHandler struct {
	plannerSvc service.PlannerService
	exportSvc  service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(plannerSvc service.PlannerService, exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{plannerSvc: plannerSvc, exportSvc: exportSvc}
}

// Export 导出会话中已确认的课程
// GET /api/v1/planner/sessions/:id/export?format=xlsx|ics&start=2026-09-07
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}

	courses, err := h.plannerSvc.SelectedCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlePlannerError(c, err)
		return
	}

	var (
		data        []byte
		filename    string
		contentType string
	)
	switch req.Format {
	case "ics":
		start := service.NextMonday(time.Now())
		if req.Start != "" {
			start, _ = time.Parse("2006-01-02", req.Start)
		}
		data, filename, err = h.exportSvc.ExportICS(courses, start)
		contentType = contentTypeICS
	default:
		buf, name, gridErr := h.exportSvc.ExportGrid(courses)
		if gridErr == nil {
			data = buf.Bytes()
		}
		filename, err = name, gridErr
		contentType = contentTypeXLSX
	}
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoCourses):
		response.BadRequest(c, 22101, "尚未选择任何课程")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
