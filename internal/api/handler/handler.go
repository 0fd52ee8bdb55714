package handler

import "course-planner/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Catalog *CatalogHandler
	Planner *PlannerHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Catalog: NewCatalogHandler(svc.Catalog),
		Planner: NewPlannerHandler(svc.Planner),
		Export:  NewExportHandler(svc.Planner, svc.Export),
	}
}
