package repository

import (
	"context"

	"gorm.io/gorm"

	"course-planner/internal/model"
)

// PlanSelectionRepository 已确认选课集合的数据访问接口
type PlanSelectionRepository interface {
	// ListByPlan 按选课顺序返回某计划的已选课程
	ListByPlan(ctx context.Context, planKey string) ([]model.PlanSelection, error)
	// ReplaceByPlan 在事务中全量替换某计划的已选课程：先删除旧数据，再批量插入新数据
	ReplaceByPlan(ctx context.Context, planKey string, selections []model.PlanSelection) error
	// DeleteByPlan 清空某计划
	DeleteByPlan(ctx context.Context, planKey string) error
}

type planSelectionRepo struct {
	db *gorm.DB
}

// NewPlanSelectionRepo 创建 PlanSelectionRepository 实例
func NewPlanSelectionRepo(db *gorm.DB) PlanSelectionRepository {
	return &planSelectionRepo{db: db}
}

func (r *planSelectionRepo) ListByPlan(ctx context.Context, planKey string) ([]model.PlanSelection, error) {
	var selections []model.PlanSelection
	err := r.db.WithContext(ctx).
		Where("plan_key = ?", planKey).
		Order("position ASC").
		Find(&selections).Error
	return selections, err
}

func (r *planSelectionRepo) ReplaceByPlan(ctx context.Context, planKey string, selections []model.PlanSelection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 硬删除：选课集合整体替换，无需保留历史
		if err := tx.Where("plan_key = ?", planKey).Delete(&model.PlanSelection{}).Error; err != nil {
			return err
		}
		if len(selections) > 0 {
			if err := tx.Create(&selections).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *planSelectionRepo) DeleteByPlan(ctx context.Context, planKey string) error {
	return r.db.WithContext(ctx).
		Where("plan_key = ?", planKey).
		Delete(&model.PlanSelection{}).Error
}
