package service

import (
	"context"
	"testing"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type workflowFixture struct {
	svc       *WorkflowService
	schedules *repository.MemorySchedulesRepo
	records   *repository.MemoryRecordsRepo
	assets    *repository.MemoryAssetsRepo
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	schedules := repository.NewMemorySchedulesRepo()
	records := repository.NewMemoryRecordsRepo()
	assets := repository.NewMemoryAssetsRepo()
	svc := NewWorkflowService(schedules, records, assets, nil, zap.NewNop())
	return &workflowFixture{svc: svc, schedules: schedules, records: records, assets: assets}
}

func (f *workflowFixture) seedAsset(t *testing.T, department string) string {
	t.Helper()
	id, err := f.assets.CreateAsset(context.Background(), &domain.Asset{
		Name:       "CNC Lathe #1",
		Location:   "Hall A",
		Department: department,
		Status:     domain.AssetOperational,
	})
	require.NoError(t, err)
	return id
}

func deptAdmin(department string) domain.Actor {
	return domain.Actor{
		UserID: "admin-" + department, Name: "Admin " + department,
		Department: department, Role: domain.RoleManager,
		AccessLevel: domain.AccessDepartmentAdmin,
	}
}

func technician(department string) domain.Actor {
	return domain.Actor{
		UserID: "tech-" + department, Name: "Tech " + department,
		Department: department, Role: domain.RoleTechnician,
		AccessLevel: domain.AccessNormalUser,
	}
}

func TestCreateSchedule_ComputesInitialDueDate(t *testing.T) {
	f := newWorkflowFixture(t)
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(context.Background(), deptAdmin("Production"), &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, date(2024, 2, 15), sched.NextDueDate)
	require.Equal(t, "Production", sched.Department)
	require.Equal(t, "CNC Lathe #1", sched.AssetName)
	require.Nil(t, sched.LastCompletedDate)
}

func TestCreateSchedule_RejectsTechnician(t *testing.T) {
	f := newWorkflowFixture(t)
	assetID := f.seedAsset(t, "Production")

	_, err := f.svc.CreateSchedule(context.Background(), technician("Production"), &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityHigh,
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCreateSchedule_UnknownAsset(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.CreateSchedule(context.Background(), deptAdmin("Production"), &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   "no-such-asset",
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityHigh,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// 完整走一遍月度巡检生命周期：创建 → 提交完成记录推进到期日 →
// 时钟走过到期日变 overdue → 管理员审核 → 重复审核冲突。
func TestWorkflow_MonthlyLifecycle(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := deptAdmin("Production")
	tech := technician("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, admin, &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, date(2024, 2, 15), sched.NextDueDate)

	// 技师在 2/20 提交完成记录：计划推进，overdue 一并清除
	rec, err := f.svc.FileRecord(ctx, tech, &domain.Record{
		Kind:                domain.KindMaintenance,
		ScheduleID:          sched.ScheduleID,
		CompletedDate:       date(2024, 2, 20),
		ActualDurationHours: 1.5,
		Status:              domain.RecordCompleted,
		OverallCondition:    domain.ConditionGood,
	})
	require.NoError(t, err)
	require.Equal(t, tech.UserID, rec.TechnicianID)
	require.False(t, rec.AdminVerified)

	got, err := f.svc.GetSchedule(ctx, admin, sched.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, date(2024, 3, 20), got.NextDueDate)
	require.NotNil(t, got.LastCompletedDate)
	require.Equal(t, date(2024, 2, 20), *got.LastCompletedDate)

	// 3/25 再看：已过期
	require.Equal(t, domain.ScheduleOverdue, got.Status(date(2024, 3, 25)))
	// 3/10 看：仍然 active
	require.Equal(t, domain.ScheduleActive, got.Status(date(2024, 3, 10)))

	// 部门管理员审核
	verified, err := f.svc.VerifyRecord(ctx, admin, rec.RecordID, "looks good")
	require.NoError(t, err)
	require.True(t, verified.AdminVerified)
	require.Equal(t, admin.UserID, verified.AdminVerifiedBy)
	require.NotNil(t, verified.AdminVerifiedAt)

	// 重复审核 → 冲突，且首次署名不被改写
	_, err = f.svc.VerifyRecord(ctx, admin, rec.RecordID, "second pass")
	require.ErrorIs(t, err, domain.ErrConflict)

	again, err := f.svc.GetRecord(ctx, admin, rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, admin.UserID, again.AdminVerifiedBy)
	require.Equal(t, "looks good", again.AdminNotes)
}

// failed / in_progress 的记录不推进计划
func TestFileRecord_FailedDoesNotAdvance(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := deptAdmin("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, admin, &domain.Schedule{
		Kind:      domain.KindSafety,
		AssetID:   assetID,
		Title:     "Fire extinguisher check",
		Frequency: domain.FrequencyWeekly,
		StartDate: date(2024, 1, 1),
		Priority:  domain.PriorityCritical,
		RiskLevel: domain.RiskHigh,
	})
	require.NoError(t, err)
	require.Equal(t, date(2024, 1, 8), sched.NextDueDate)

	for _, status := range []domain.RecordStatus{domain.RecordFailed, domain.RecordInProgress} {
		_, err := f.svc.FileRecord(ctx, technician("Production"), &domain.Record{
			Kind:             domain.KindSafety,
			ScheduleID:       sched.ScheduleID,
			CompletedDate:    date(2024, 1, 10),
			Status:           status,
			OverallCondition: domain.ConditionPoor,
		})
		require.NoError(t, err)
	}

	got, err := f.svc.GetSchedule(ctx, admin, sched.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, date(2024, 1, 8), got.NextDueDate)
	require.Nil(t, got.LastCompletedDate)

	// partially_completed 推进
	_, err = f.svc.FileRecord(ctx, technician("Production"), &domain.Record{
		Kind:             domain.KindSafety,
		ScheduleID:       sched.ScheduleID,
		CompletedDate:    date(2024, 1, 10),
		Status:           domain.RecordPartiallyCompleted,
		OverallCondition: domain.ConditionFair,
	})
	require.NoError(t, err)

	got, err = f.svc.GetSchedule(ctx, admin, sched.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, date(2024, 1, 17), got.NextDueDate)
}

func TestFileRecord_MissingScheduleNeedsAssetContext(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	tech := technician("Production")

	// 没有资产上下文 → NotFound
	_, err := f.svc.FileRecord(ctx, tech, &domain.Record{
		Kind:             domain.KindMaintenance,
		ScheduleID:       "gone",
		CompletedDate:    date(2024, 2, 1),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	// 资产上下文齐全 → 按孤记录落库
	rec, err := f.svc.FileRecord(ctx, tech, &domain.Record{
		Kind:             domain.KindMaintenance,
		ScheduleID:       "gone",
		AssetID:          "asset-1",
		AssetName:        "CNC Lathe #1",
		Department:       "Production",
		CompletedDate:    date(2024, 2, 1),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.NoError(t, err)
	require.Equal(t, "gone", rec.ScheduleID)
}

func TestFileRecord_KindMismatch(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := deptAdmin("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, admin, &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	_, err = f.svc.FileRecord(ctx, technician("Production"), &domain.Record{
		Kind:             domain.KindSafety,
		ScheduleID:       sched.ScheduleID,
		CompletedDate:    date(2024, 2, 1),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileRecord_CrossDepartmentDenied(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, deptAdmin("Production"), &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	_, err = f.svc.FileRecord(ctx, technician("Facilities"), &domain.Record{
		Kind:             domain.KindMaintenance,
		ScheduleID:       sched.ScheduleID,
		CompletedDate:    date(2024, 2, 1),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRecord_NormalUserDenied(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	tech := technician("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, deptAdmin("Production"), &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	rec, err := f.svc.FileRecord(ctx, tech, &domain.Record{
		Kind:             domain.KindMaintenance,
		ScheduleID:       sched.ScheduleID,
		CompletedDate:    date(2024, 2, 1),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.NoError(t, err)

	// 提交人自己不能审核
	_, err = f.svc.VerifyRecord(ctx, tech, rec.RecordID, "self-approve")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// 其他部门的管理员也不能
	_, err = f.svc.VerifyRecord(ctx, deptAdmin("Facilities"), rec.RecordID, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateRecord_LockedAfterVerification(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := deptAdmin("Production")
	tech := technician("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, admin, &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	rec, err := f.svc.FileRecord(ctx, tech, &domain.Record{
		Kind:             domain.KindMaintenance,
		ScheduleID:       sched.ScheduleID,
		CompletedDate:    date(2024, 2, 1),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.NoError(t, err)

	// 未审核前创建者可以改
	rec.Notes = "replaced filter"
	updated, err := f.svc.UpdateRecord(ctx, tech, rec)
	require.NoError(t, err)
	require.Equal(t, "replaced filter", updated.Notes)

	// 别的普通用户不能改
	other := domain.Actor{
		UserID: "tech-2", Department: "Production",
		Role: domain.RoleTechnician, AccessLevel: domain.AccessNormalUser,
	}
	_, err = f.svc.UpdateRecord(ctx, other, rec)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.VerifyRecord(ctx, admin, rec.RecordID, "")
	require.NoError(t, err)

	// 审核后锁定
	_, err = f.svc.UpdateRecord(ctx, tech, rec)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestSetScheduleOverride_AndReactivate(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := deptAdmin("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, admin, &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetScheduleOverride(ctx, admin, sched.ScheduleID, domain.ScheduleInactive))
	got, err := f.svc.GetSchedule(ctx, admin, sched.ScheduleID)
	require.NoError(t, err)
	// 显式停用后即使过期也不报 overdue
	require.Equal(t, domain.ScheduleInactive, got.Status(date(2030, 1, 1)))

	// 恢复
	require.NoError(t, f.svc.SetScheduleOverride(ctx, admin, sched.ScheduleID, domain.ScheduleActive))
	got, err = f.svc.GetSchedule(ctx, admin, sched.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, domain.ScheduleOverdue, got.Status(date(2030, 1, 1)))

	require.ErrorIs(t, f.svc.SetScheduleOverride(ctx, admin, sched.ScheduleID, "bogus"), domain.ErrInvalidInput)
}

// 权限范围收窄：普通用户/部门管理员只能看到本部门计划，
// 指定别的部门直接得到空集而不是报错。
func TestListSchedules_ScopeContainment(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	prodAsset := f.seedAsset(t, "Production")
	facAsset := f.seedAsset(t, "Facilities")

	super := domain.Actor{
		UserID: "root", Role: domain.RoleAdmin, AccessLevel: domain.AccessSuperAdmin,
	}
	for _, tc := range []struct {
		asset string
		dept  string
	}{{prodAsset, "Production"}, {facAsset, "Facilities"}} {
		_, err := f.svc.CreateSchedule(ctx, super, &domain.Schedule{
			Kind:      domain.KindMaintenance,
			AssetID:   tc.asset,
			Title:     "Check " + tc.dept,
			Frequency: domain.FrequencyMonthly,
			StartDate: date(2024, 1, 1),
			Priority:  domain.PriorityLow,
		})
		require.NoError(t, err)
	}

	// super_admin 看到两个
	items, total, err := f.svc.ListSchedules(ctx, super, repository.ScheduleFilters{Kind: domain.KindMaintenance}, "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)

	// 部门用户只看到本部门
	items, total, err = f.svc.ListSchedules(ctx, technician("Production"), repository.ScheduleFilters{Kind: domain.KindMaintenance}, "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Production", items[0].Department)

	// 指定范围外的部门 → 空集
	items, total, err = f.svc.ListSchedules(ctx, technician("Production"),
		repository.ScheduleFilters{Kind: domain.KindMaintenance, Department: "Facilities"}, "", 1, 50)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)
}

// 推导状态过滤在分页之前生效：total 是过滤后的计数，
// 翻到第二页能拿到剩下的匹配项，不会被未匹配的行挤掉。
func TestListSchedules_StatusFilterPaginates(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.svc.now = func() time.Time { return date(2024, 6, 1) }

	seed := func(title string, due time.Time, override domain.ScheduleStatus) {
		_, err := f.schedules.CreateSchedule(ctx, &domain.Schedule{
			Kind:           domain.KindMaintenance,
			AssetID:        "asset-1",
			Department:     "Production",
			Title:          title,
			Frequency:      domain.FrequencyMonthly,
			StartDate:      date(2024, 1, 1),
			NextDueDate:    due,
			Priority:       domain.PriorityLow,
			StatusOverride: override,
		})
		require.NoError(t, err)
	}
	seed("overdue-1", date(2024, 5, 1), "")
	seed("overdue-2", date(2024, 5, 10), "")
	seed("overdue-3", date(2024, 5, 15), "")
	seed("paused", date(2024, 5, 20), domain.ScheduleInactive)
	seed("upcoming-1", date(2024, 7, 1), "")
	seed("upcoming-2", date(2024, 8, 1), "")

	admin := deptAdmin("Production")
	filters := repository.ScheduleFilters{Kind: domain.KindMaintenance}

	// 3 条 overdue，页大小 2：第一页 2 条，第二页 1 条
	items, total, err := f.svc.ListSchedules(ctx, admin, filters, domain.ScheduleOverdue, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 2)
	require.Equal(t, "overdue-1", items[0].Title)
	require.Equal(t, "overdue-2", items[1].Title)

	items, total, err = f.svc.ListSchedules(ctx, admin, filters, domain.ScheduleOverdue, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 1)
	require.Equal(t, "overdue-3", items[0].Title)

	// 显式停用的计划即使过期也只出现在 inactive 过滤里
	items, total, err = f.svc.ListSchedules(ctx, admin, filters, domain.ScheduleInactive, 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "paused", items[0].Title)

	items, total, err = f.svc.ListSchedules(ctx, admin, filters, domain.ScheduleActive, 1, 50)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)

	_, _, err = f.svc.ListSchedules(ctx, admin, filters, "bogus", 1, 50)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStats_EmptyScopeReturnsZeros(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	stats, err := f.svc.Stats(ctx, technician("Production"), domain.KindMaintenance, "")
	require.NoError(t, err)
	require.Zero(t, stats.Schedules.Total)
	require.Zero(t, stats.Records.Total)

	// 范围外部门同样零值，不报错
	stats, err = f.svc.Stats(ctx, technician("Production"), domain.KindMaintenance, "Facilities")
	require.NoError(t, err)
	require.Zero(t, stats.Schedules.Total)
}

func TestUpdateSchedule_RescheduleFromAnchor(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := deptAdmin("Production")
	assetID := f.seedAsset(t, "Production")

	sched, err := f.svc.CreateSchedule(ctx, admin, &domain.Schedule{
		Kind:      domain.KindMaintenance,
		AssetID:   assetID,
		Title:     "Monthly lubrication",
		Frequency: domain.FrequencyMonthly,
		StartDate: date(2024, 1, 15),
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	// 完成一次，锚点变为 lastCompletedDate
	_, err = f.svc.FileRecord(ctx, technician("Production"), &domain.Record{
		Kind:             domain.KindMaintenance,
		ScheduleID:       sched.ScheduleID,
		CompletedDate:    date(2024, 2, 20),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	require.NoError(t, err)

	// 改成周检：从 2/20 锚点重推
	sched.Frequency = domain.FrequencyWeekly
	sched.CustomFrequencyDays = 0
	updated, err := f.svc.UpdateSchedule(ctx, admin, sched)
	require.NoError(t, err)
	require.Equal(t, date(2024, 2, 27), updated.NextDueDate)
}
