package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	PlanSelection PlanSelectionRepository
	Catalog       CatalogSource
}

// NewRepository 创建 Repository 聚合
// db 为 nil 时不启用选课持久化
func NewRepository(db *gorm.DB, catalog CatalogSource) *Repository {
	repo := &Repository{Catalog: catalog}
	if db != nil {
		repo.PlanSelection = NewPlanSelectionRepo(db)
	}
	return repo
}
