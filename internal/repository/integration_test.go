//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"course-planner/internal/model"
	"course-planner/internal/repository"
	"course-planner/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=planner password=planner_password dbname=course_planner_test sslmode=disable TimeZone=Asia/Hong_Kong"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用与生产一致的迁移脚本建表
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取底层 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

func uniquePlanKey(t *testing.T) string {
	t.Helper()
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		testDB.Where("plan_key = ?", key).Delete(&model.PlanSelection{})
	})
	return key
}

func selection(planKey, courseID string, position int, sections map[model.Category]string) model.PlanSelection {
	c := &model.Course{ID: courseID, SelectedSections: sections}
	return model.NewPlanSelection(planKey, position, c)
}

// ═══════════════════════════════════════════════════════════
// PlanSelectionRepository
// ═══════════════════════════════════════════════════════════

func TestPlanSelectionRepo_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPlanSelectionRepo(testDB)
	key := uniquePlanKey(t)

	err := repo.ReplaceByPlan(ctx, key, []model.PlanSelection{
		selection(key, "CSCI 3180", 1, map[model.Category]string{model.CategoryLecture: "-"}),
		selection(key, "CSCI 3100", 0, map[model.Category]string{model.CategoryTutorial: "T02"}),
	})
	if err != nil {
		t.Fatalf("写入选课失败: %v", err)
	}

	got, err := repo.ListByPlan(ctx, key)
	if err != nil {
		t.Fatalf("读取选课失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条记录, 实际 %d", len(got))
	}
	if got[0].CourseID != "CSCI 3100" || got[1].CourseID != "CSCI 3180" {
		t.Errorf("期望按 position 排序, 实际 %s, %s", got[0].CourseID, got[1].CourseID)
	}
	if sid := got[0].SectionChoices()[model.CategoryTutorial]; sid != "T02" {
		t.Errorf("期望班次选择 T02, 实际 %q", sid)
	}
}

func TestPlanSelectionRepo_ReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPlanSelectionRepo(testDB)
	key := uniquePlanKey(t)

	first := []model.PlanSelection{selection(key, "CSCI 3100", 0, nil), selection(key, "STAT 2005", 1, nil)}
	if err := repo.ReplaceByPlan(ctx, key, first); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}
	if err := repo.ReplaceByPlan(ctx, key, []model.PlanSelection{selection(key, "CSCI 3180", 0, nil)}); err != nil {
		t.Fatalf("替换写入失败: %v", err)
	}

	got, err := repo.ListByPlan(ctx, key)
	if err != nil {
		t.Fatalf("读取选课失败: %v", err)
	}
	if len(got) != 1 || got[0].CourseID != "CSCI 3180" {
		t.Errorf("期望只剩 CSCI 3180, 实际 %+v", got)
	}

	// 空集合等价于清空
	if err := repo.ReplaceByPlan(ctx, key, nil); err != nil {
		t.Fatalf("清空失败: %v", err)
	}
	got, _ = repo.ListByPlan(ctx, key)
	if len(got) != 0 {
		t.Errorf("期望清空后无记录, 实际 %d", len(got))
	}
}

func TestPlanSelectionRepo_DeleteByPlan_Isolated(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPlanSelectionRepo(testDB)
	keyA, keyB := uniquePlanKey(t), uniquePlanKey(t)+"-b"
	t.Cleanup(func() { testDB.Where("plan_key = ?", keyB).Delete(&model.PlanSelection{}) })

	repo.ReplaceByPlan(ctx, keyA, []model.PlanSelection{selection(keyA, "CSCI 3100", 0, nil)})
	repo.ReplaceByPlan(ctx, keyB, []model.PlanSelection{selection(keyB, "CSCI 3100", 0, nil)})

	if err := repo.DeleteByPlan(ctx, keyA); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if got, _ := repo.ListByPlan(ctx, keyA); len(got) != 0 {
		t.Errorf("期望 %s 已清空", keyA)
	}
	if got, _ := repo.ListByPlan(ctx, keyB); len(got) != 1 {
		t.Errorf("期望 %s 不受影响", keyB)
	}
}
