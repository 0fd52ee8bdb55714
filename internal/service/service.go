package service

import (
	"fmt"

	"go.uber.org/zap"

	"course-planner/config"
	"course-planner/internal/model"
	"course-planner/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog CatalogService
	Planner PlannerService
	Export  ExportService
}

// NewService 创建 Service 聚合
func NewService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) (*Service, error) {
	gridOpts, err := GridOptionsFromConfig(&cfg.Grid)
	if err != nil {
		return nil, err
	}
	grid := NewGridProjector(gridOpts)

	catalog := NewCatalogService(repo.Catalog, CatalogOptions{
		DefaultSubjects: cfg.Catalog.Subjects,
		DemoFallback:    cfg.Catalog.DemoFallback,
	}, logger.Named("catalog"))

	return &Service{
		Catalog: catalog,
		Planner: NewPlannerService(catalog, repo.PlanSelection, grid, 0, logger.Named("planner")),
		Export: NewExportService(grid, ExportOptions{
			Weeks:    cfg.Export.Weeks,
			Timezone: cfg.Export.Timezone,
		}, logger.Named("export")),
	}, nil
}

// GridOptionsFromConfig 将网格配置转为 GridOptions；days 为空时显示整周
func GridOptionsFromConfig(cfg *config.GridConfig) (GridOptions, error) {
	opts := DefaultGridOptions()

	if cfg.DayStart != "" {
		t, err := model.ParseTime(cfg.DayStart)
		if err != nil {
			return opts, fmt.Errorf("grid.day_start: %w", err)
		}
		opts.DayStart = t
	}
	if cfg.DayEnd != "" {
		t, err := model.ParseTime(cfg.DayEnd)
		if err != nil {
			return opts, fmt.Errorf("grid.day_end: %w", err)
		}
		opts.DayEnd = t
	}
	if cfg.PixelsPerHour > 0 {
		opts.PixelsPerHour = cfg.PixelsPerHour
	}
	if len(cfg.Days) > 0 {
		days := make([]model.Weekday, 0, len(cfg.Days))
		for _, raw := range cfg.Days {
			d, err := model.ParseWeekday(raw)
			if err != nil {
				return opts, fmt.Errorf("grid.days: %w", err)
			}
			days = append(days, d)
		}
		opts.Days = days
	}
	return opts, nil
}
