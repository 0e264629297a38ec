package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"

	"go.uber.org/zap"
)

// WorkflowService 周期巡检工作流：计划创建/改期、记录提交、管理员审核、
// 状态推进。maintenance 与 safety 共用这一套编排，差异全部收敛在
// kind 字段与作业模板里。
//
// 所有校验失败都在任何写入之前返回（InvalidInput/Unauthorized/NotFound 不留半截变更）；
// 这里从不重试，是否重试由 HTTP 调用方决定。
type WorkflowService struct {
	schedules repository.SchedulesRepository
	records   repository.RecordsRepository
	assets    repository.AssetsRepository
	events    *EventClient // 可为 nil（未配置 webhook）
	logger    *zap.Logger

	now func() time.Time // 注入时钟，测试用
}

// NewWorkflowService 创建工作流服务
func NewWorkflowService(
	schedules repository.SchedulesRepository,
	records repository.RecordsRepository,
	assets repository.AssetsRepository,
	events *EventClient,
	logger *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		schedules: schedules,
		records:   records,
		assets:    assets,
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- 计划 ---

// CreateSchedule 创建计划。归属部门经由资产解析后冗余到计划上；
// 初始 next_due_date 从 startDate 推算，状态为 active。
// 需要部门管理写权限 + admin/manager 岗位。
func (s *WorkflowService) CreateSchedule(ctx context.Context, actor domain.Actor, sched *domain.Schedule) (*domain.Schedule, error) {
	if !domain.ValidKind(sched.Kind) {
		return nil, fmt.Errorf("%w: invalid kind %q", domain.ErrInvalidInput, sched.Kind)
	}
	if sched.Title == "" || sched.AssetID == "" {
		return nil, fmt.Errorf("%w: title and asset_id are required", domain.ErrInvalidInput)
	}
	if !domain.ValidPriority(sched.Priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", domain.ErrInvalidInput, sched.Priority)
	}
	if sched.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start_date is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateFrequency(sched.Frequency, sched.CustomFrequencyDays); err != nil {
		return nil, err
	}

	asset, err := s.assets.GetAsset(ctx, sched.AssetID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, asset.Department, domain.ActionWrite); err != nil {
		return nil, err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return nil, err
	}

	nextDue, err := domain.NextDueDate(sched.Frequency, sched.CustomFrequencyDays, sched.StartDate)
	if err != nil {
		return nil, err
	}

	sched.AssetName = asset.Name
	sched.Location = asset.Location
	sched.Department = asset.Department
	sched.NextDueDate = nextDue
	sched.LastCompletedDate = nil
	sched.StatusOverride = ""
	sched.CreatedBy = actor.UserID

	id, err := s.schedules.CreateSchedule(ctx, sched)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule created",
		zap.String("schedule_id", id),
		zap.String("kind", string(sched.Kind)),
		zap.String("department", sched.Department),
		zap.Time("next_due_date", nextDue),
	)
	return sched, nil
}

// GetSchedule 获取计划（按归属部门做读权限检查）
func (s *WorkflowService) GetSchedule(ctx context.Context, actor domain.Actor, scheduleID string) (*domain.Schedule, error) {
	sched, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, sched.Department, domain.ActionRead); err != nil {
		return nil, err
	}
	return sched, nil
}

// ListSchedules 查询计划列表。权限范围先套用，调用方的过滤只能在
// 范围内收窄：指定了范围之外的部门时直接返回空集。
// statusFilter 按推导状态过滤，在仓储层分页之前生效，
// total 是过滤后的计数，翻页不会漏掉后面的匹配项。
func (s *WorkflowService) ListSchedules(ctx context.Context, actor domain.Actor, filters repository.ScheduleFilters, statusFilter domain.ScheduleStatus, page, size int) ([]*domain.Schedule, int, error) {
	scopeDept, restricted := domain.ScopeFilter(actor)
	if restricted {
		if filters.Department != "" && filters.Department != scopeDept {
			return []*domain.Schedule{}, 0, nil
		}
		filters.Department = scopeDept
	}
	if statusFilter != "" {
		if !domain.ValidOverride(statusFilter) &&
			statusFilter != domain.ScheduleActive && statusFilter != domain.ScheduleOverdue {
			return nil, 0, fmt.Errorf("%w: invalid status filter %q", domain.ErrInvalidInput, statusFilter)
		}
		filters.Status = statusFilter
		filters.Now = s.now()
	}

	return s.schedules.ListSchedules(ctx, &filters, page, size)
}

// UpdateSchedule 更新计划的一般字段与周期。周期字段变更时由
// 当前锚点重新推导 next_due_date（显式改期走这里）。
func (s *WorkflowService) UpdateSchedule(ctx context.Context, actor domain.Actor, sched *domain.Schedule) (*domain.Schedule, error) {
	existing, err := s.schedules.GetSchedule(ctx, sched.ScheduleID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		return nil, err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return nil, err
	}
	if !domain.ValidPriority(sched.Priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", domain.ErrInvalidInput, sched.Priority)
	}
	if err := domain.ValidateFrequency(sched.Frequency, sched.CustomFrequencyDays); err != nil {
		return nil, err
	}
	if sched.StartDate.IsZero() {
		sched.StartDate = existing.StartDate
	}

	// 锚点不变：有完成记录取 lastCompletedDate，否则取（可能更新过的）startDate
	anchor := sched.StartDate
	if existing.LastCompletedDate != nil {
		anchor = *existing.LastCompletedDate
	}
	nextDue, err := domain.NextDueDate(sched.Frequency, sched.CustomFrequencyDays, anchor)
	if err != nil {
		return nil, err
	}

	existing.Title = sched.Title
	existing.Description = sched.Description
	existing.Frequency = sched.Frequency
	existing.CustomFrequencyDays = sched.CustomFrequencyDays
	existing.StartDate = sched.StartDate
	existing.NextDueDate = nextDue
	existing.Priority = sched.Priority
	existing.RiskLevel = sched.RiskLevel
	if sched.Template.Parts != nil || sched.Template.Categories != nil {
		existing.Template = sched.Template
	}

	if err := s.schedules.UpdateSchedule(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// SetScheduleOverride 显式停用/完结/恢复计划。
// "active"（或空）表示清除标记，恢复按到期日推导。
func (s *WorkflowService) SetScheduleOverride(ctx context.Context, actor domain.Actor, scheduleID string, override domain.ScheduleStatus) error {
	if override == domain.ScheduleActive {
		override = ""
	}
	if !domain.ValidOverride(override) {
		return fmt.Errorf("%w: invalid status override %q", domain.ErrInvalidInput, override)
	}
	existing, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		return err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return err
	}
	return s.schedules.SetOverride(ctx, scheduleID, override)
}

// DeleteSchedule 删除计划。记录不级联删除，保留悬挂的 schedule_id。
func (s *WorkflowService) DeleteSchedule(ctx context.Context, actor domain.Actor, scheduleID string) error {
	existing, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		return err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return err
	}
	return s.schedules.DeleteSchedule(ctx, scheduleID)
}

// --- 记录 ---

// FileRecord 提交一次作业记录。completed / partially_completed 推进计划：
// lastCompletedDate=completedDate，按完成日重推 next_due_date（overdue 随之清除）；
// failed / in_progress 不推进。提交是自助写入（本部门任何用户可提交自己的记录）。
//
// scheduleId 在创建时检查存在性：查不到时只有调用方给全了资产上下文
// 才允许按孤记录落库，否则 NotFound。
func (s *WorkflowService) FileRecord(ctx context.Context, actor domain.Actor, rec *domain.Record) (*domain.Record, error) {
	if !domain.ValidKind(rec.Kind) {
		return nil, fmt.Errorf("%w: invalid kind %q", domain.ErrInvalidInput, rec.Kind)
	}
	if !domain.ValidRecordStatus(rec.Status) {
		return nil, fmt.Errorf("%w: invalid record status %q", domain.ErrInvalidInput, rec.Status)
	}
	if !domain.ValidCondition(rec.OverallCondition) {
		return nil, fmt.Errorf("%w: invalid overall condition %q", domain.ErrInvalidInput, rec.OverallCondition)
	}
	if rec.ActualDurationHours < 0 || rec.ActualDurationHours > domain.MaxDurationHours {
		return nil, fmt.Errorf("%w: actual_duration_hours must be 0..%d", domain.ErrInvalidInput, domain.MaxDurationHours)
	}
	if rec.CompletedDate.IsZero() {
		return nil, fmt.Errorf("%w: completed_date is required", domain.ErrInvalidInput)
	}

	var sched *domain.Schedule
	if rec.ScheduleID != "" {
		found, err := s.schedules.GetSchedule(ctx, rec.ScheduleID)
		switch {
		case err == nil:
			if found.Kind != rec.Kind {
				return nil, fmt.Errorf("%w: record kind %q does not match schedule kind %q",
					domain.ErrInvalidInput, rec.Kind, found.Kind)
			}
			sched = found
			rec.AssetID = found.AssetID
			rec.AssetName = found.AssetName
			rec.Location = found.Location
			rec.Department = found.Department
		case isNotFound(err) && rec.AssetID != "" && rec.Department != "":
			// 计划已删除但资产上下文齐全：按孤记录落库
			s.logger.Warn("filing record against missing schedule",
				zap.String("schedule_id", rec.ScheduleID))
		default:
			return nil, err
		}
	} else if rec.AssetID == "" || rec.Department == "" {
		return nil, fmt.Errorf("%w: asset_id and department are required without schedule_id", domain.ErrInvalidInput)
	}

	if err := domain.Authorize(actor, rec.Department, domain.ActionSelfWrite); err != nil {
		return nil, err
	}

	rec.TechnicianID = actor.UserID
	rec.TechnicianName = actor.Name
	rec.AdminVerified = false
	rec.AdminVerifiedBy = ""
	rec.AdminVerifiedAt = nil
	rec.AdminNotes = ""

	id, err := s.records.CreateRecord(ctx, rec)
	if err != nil {
		return nil, err
	}

	if sched != nil && rec.Status.Advances() {
		nextDue, err := domain.NextDueDate(sched.Frequency, sched.CustomFrequencyDays, rec.CompletedDate)
		if err != nil {
			return nil, err
		}
		if err := s.schedules.AdvanceSchedule(ctx, sched.ScheduleID, rec.CompletedDate, nextDue); err != nil {
			return nil, err
		}
		s.logger.Info("schedule advanced",
			zap.String("schedule_id", sched.ScheduleID),
			zap.String("record_id", id),
			zap.Time("next_due_date", nextDue),
		)
	}

	if s.events != nil {
		s.events.Publish(ctx, EventRecordFiled, map[string]any{
			"record_id":   id,
			"schedule_id": rec.ScheduleID,
			"kind":        rec.Kind,
			"department":  rec.Department,
			"status":      rec.Status,
		})
	}
	return rec, nil
}

// GetRecord 获取记录
func (s *WorkflowService) GetRecord(ctx context.Context, actor domain.Actor, recordID string) (*domain.Record, error) {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, rec.Department, domain.ActionRead); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords 查询记录列表（权限范围先于调用方过滤）
func (s *WorkflowService) ListRecords(ctx context.Context, actor domain.Actor, filters repository.RecordFilters, page, size int) ([]*domain.Record, int, error) {
	scopeDept, restricted := domain.ScopeFilter(actor)
	if restricted {
		if filters.Department != "" && filters.Department != scopeDept {
			return []*domain.Record{}, 0, nil
		}
		filters.Department = scopeDept
	}
	return s.records.ListRecords(ctx, &filters, page, size)
}

// UpdateRecord 更新记录的非审核字段。只允许记录创建者或部门/平台管理员，
// 且仅在未审核前；审核后记录锁定。
func (s *WorkflowService) UpdateRecord(ctx context.Context, actor domain.Actor, rec *domain.Record) (*domain.Record, error) {
	existing, err := s.records.GetRecord(ctx, rec.RecordID)
	if err != nil {
		return nil, err
	}
	if existing.AdminVerified {
		return nil, fmt.Errorf("record is verified and locked: %w", domain.ErrConflict)
	}
	action := domain.ActionWrite
	if actor.UserID == existing.TechnicianID {
		action = domain.ActionSelfWrite
	}
	if err := domain.Authorize(actor, existing.Department, action); err != nil {
		return nil, err
	}
	if !domain.ValidRecordStatus(rec.Status) {
		return nil, fmt.Errorf("%w: invalid record status %q", domain.ErrInvalidInput, rec.Status)
	}
	if !domain.ValidCondition(rec.OverallCondition) {
		return nil, fmt.Errorf("%w: invalid overall condition %q", domain.ErrInvalidInput, rec.OverallCondition)
	}
	if rec.ActualDurationHours < 0 || rec.ActualDurationHours > domain.MaxDurationHours {
		return nil, fmt.Errorf("%w: actual_duration_hours must be 0..%d", domain.ErrInvalidInput, domain.MaxDurationHours)
	}

	existing.CompletedDate = rec.CompletedDate
	existing.StartTime = rec.StartTime
	existing.EndTime = rec.EndTime
	existing.ActualDurationHours = rec.ActualDurationHours
	existing.Status = rec.Status
	existing.OverallCondition = rec.OverallCondition
	existing.Notes = rec.Notes
	existing.Results = rec.Results

	if err := s.records.UpdateRecord(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// VerifyRecord 管理员审核，单向 false→true。
// 需要记录归属部门的 super_admin / department_admin；重复审核返回 Conflict，
// 首次审核的署名与时间不被改写。
func (s *WorkflowService) VerifyRecord(ctx context.Context, actor domain.Actor, recordID, notes string) (*domain.Record, error) {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, rec.Department, domain.ActionWrite); err != nil {
		return nil, err
	}
	if rec.AdminVerified {
		return nil, fmt.Errorf("record already verified: %w", domain.ErrConflict)
	}

	at := s.now()
	if err := s.records.VerifyRecord(ctx, recordID, actor.UserID, at, notes); err != nil {
		return nil, err
	}

	rec.AdminVerified = true
	rec.AdminVerifiedBy = actor.UserID
	rec.AdminVerifiedAt = &at
	rec.AdminNotes = notes

	s.logger.Info("record verified",
		zap.String("record_id", recordID),
		zap.String("verified_by", actor.UserID),
	)
	if s.events != nil {
		s.events.Publish(ctx, EventRecordVerified, map[string]any{
			"record_id":   recordID,
			"kind":        rec.Kind,
			"department":  rec.Department,
			"verified_by": actor.UserID,
		})
	}
	return rec, nil
}

// DeleteRecord 删除记录（管理性写入）
func (s *WorkflowService) DeleteRecord(ctx context.Context, actor domain.Actor, recordID string) error {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if err := domain.Authorize(actor, rec.Department, domain.ActionWrite); err != nil {
		return err
	}
	return s.records.DeleteRecord(ctx, recordID)
}

// --- 统计 ---

// WorkflowStats 计划+记录的聚合统计
type WorkflowStats struct {
	Schedules *repository.ScheduleStats `json:"schedules"`
	Records   *repository.RecordStats   `json:"records"`
}

// Stats 范围内统计。空范围返回零值而不是错误。
func (s *WorkflowService) Stats(ctx context.Context, actor domain.Actor, kind domain.ScheduleKind, department string) (*WorkflowStats, error) {
	if !domain.ValidKind(kind) {
		return nil, fmt.Errorf("%w: invalid kind %q", domain.ErrInvalidInput, kind)
	}
	scopeDept, restricted := domain.ScopeFilter(actor)
	if restricted {
		if department != "" && department != scopeDept {
			return &WorkflowStats{
				Schedules: &repository.ScheduleStats{
					ByStatus: map[string]int{}, ByPriority: map[string]int{}, ByFrequency: map[string]int{},
				},
				Records: &repository.RecordStats{
					ByStatus: map[string]int{}, ByCondition: map[string]int{},
				},
			}, nil
		}
		department = scopeDept
	}

	schedStats, err := s.schedules.ScheduleStats(ctx, kind, department, s.now())
	if err != nil {
		return nil, err
	}
	recStats, err := s.records.RecordStats(ctx, kind, department)
	if err != nil {
		return nil, err
	}
	return &WorkflowStats{Schedules: schedStats, Records: recStats}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
