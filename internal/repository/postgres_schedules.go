package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresSchedulesRepository 计划 Repository 实现（强类型版本）
type PostgresSchedulesRepository struct {
	db *sql.DB
}

// NewPostgresSchedulesRepo 创建计划 Repository
func NewPostgresSchedulesRepo(db *sql.DB) *PostgresSchedulesRepository {
	return &PostgresSchedulesRepository{db: db}
}

// 确保实现了接口
var _ SchedulesRepository = (*PostgresSchedulesRepository)(nil)

const scheduleColumns = `
	schedule_id::text,
	kind,
	asset_id::text,
	asset_name,
	location,
	department,
	title,
	description,
	frequency,
	custom_frequency_days,
	start_date,
	next_due_date,
	last_completed_date,
	priority,
	risk_level,
	status_override,
	template,
	created_by,
	created_at,
	updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (*domain.Schedule, error) {
	var s domain.Schedule
	var description, riskLevel, override, createdBy sql.NullString
	var lastCompleted sql.NullTime
	var template []byte

	err := row.Scan(
		&s.ScheduleID,
		&s.Kind,
		&s.AssetID,
		&s.AssetName,
		&s.Location,
		&s.Department,
		&s.Title,
		&description,
		&s.Frequency,
		&s.CustomFrequencyDays,
		&s.StartDate,
		&s.NextDueDate,
		&lastCompleted,
		&s.Priority,
		&riskLevel,
		&override,
		&template,
		&createdBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Description = description.String
	s.RiskLevel = domain.RiskLevel(riskLevel.String)
	s.StatusOverride = domain.ScheduleStatus(override.String)
	s.CreatedBy = createdBy.String
	if lastCompleted.Valid {
		t := lastCompleted.Time
		s.LastCompletedDate = &t
	}
	if err := fromJSONB(template, &s.Template); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	return &s, nil
}

// CreateSchedule 创建计划
func (r *PostgresSchedulesRepository) CreateSchedule(ctx context.Context, s *domain.Schedule) (string, error) {
	if s.ScheduleID == "" {
		s.ScheduleID = uuid.NewString()
	}
	template, err := toJSONB(s.Template)
	if err != nil {
		return "", fmt.Errorf("failed to encode template: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (
			schedule_id, kind, asset_id, asset_name, location, department,
			title, description, frequency, custom_frequency_days,
			start_date, next_due_date, last_completed_date,
			priority, risk_level, status_override, template, created_by,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW(),NOW())`,
		s.ScheduleID, s.Kind, s.AssetID, s.AssetName, s.Location, s.Department,
		s.Title, nullIfEmpty(s.Description), s.Frequency, s.CustomFrequencyDays,
		s.StartDate, s.NextDueDate, s.LastCompletedDate,
		s.Priority, nullIfEmpty(string(s.RiskLevel)), nullIfEmpty(string(s.StatusOverride)),
		template, nullIfEmpty(s.CreatedBy),
	)
	if err != nil {
		return "", storeErr("failed to create schedule", err)
	}
	return s.ScheduleID, nil
}

// GetSchedule 获取计划
func (r *PostgresSchedulesRepository) GetSchedule(ctx context.Context, scheduleID string) (*domain.Schedule, error) {
	if scheduleID == "" {
		return nil, domain.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE schedule_id = $1`, scheduleID)
	s, err := scanSchedule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get schedule", err)
	}
	return s, nil
}

// ListSchedules 批量查询计划（支持过滤和分页）
func (r *PostgresSchedulesRepository) ListSchedules(ctx context.Context, filters *ScheduleFilters, page, size int) ([]*domain.Schedule, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1

	if filters != nil {
		if filters.Kind != "" {
			where = append(where, fmt.Sprintf("kind = $%d", argN))
			args = append(args, filters.Kind)
			argN++
		}
		if filters.Department != "" {
			where = append(where, fmt.Sprintf("department = $%d", argN))
			args = append(args, filters.Department)
			argN++
		}
		if filters.AssetID != "" {
			where = append(where, fmt.Sprintf("asset_id = $%d", argN))
			args = append(args, filters.AssetID)
			argN++
		}
		if filters.Frequency != "" {
			where = append(where, fmt.Sprintf("frequency = $%d", argN))
			args = append(args, filters.Frequency)
			argN++
		}
		if filters.Priority != "" {
			where = append(where, fmt.Sprintf("priority = $%d", argN))
			args = append(args, filters.Priority)
			argN++
		}
		if filters.DueBefore != nil {
			where = append(where, fmt.Sprintf("next_due_date <= $%d", argN))
			args = append(args, *filters.DueBefore)
			argN++
		}
		if filters.DueAfter != nil {
			where = append(where, fmt.Sprintf("next_due_date >= $%d", argN))
			args = append(args, *filters.DueAfter)
			argN++
		}
		if filters.Status != "" {
			// 与 ScheduleStats 同一套推导规则，在 SQL 里过滤以保证分页正确
			where = append(where, fmt.Sprintf(`(CASE
				WHEN status_override IS NOT NULL AND status_override <> '' THEN status_override
				WHEN next_due_date < $%d THEN 'overdue'
				ELSE 'active'
			END) = $%d`, argN, argN+1))
			args = append(args, filters.Now, string(filters.Status))
			argN += 2
		}
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedules WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, storeErr("failed to count schedules", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE %s
		ORDER BY next_due_date ASC LIMIT $%d OFFSET $%d`,
		scheduleColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list schedules", err)
	}
	defer rows.Close()

	items := []*domain.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan schedule", err)
		}
		items = append(items, s)
	}
	return items, total, storeErr("failed to list schedules", rows.Err())
}

// UpdateSchedule 更新计划的一般字段。
// 刻意不更新 last_completed_date（只有 AdvanceSchedule 会写）。
func (r *PostgresSchedulesRepository) UpdateSchedule(ctx context.Context, s *domain.Schedule) error {
	template, err := toJSONB(s.Template)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET
			title = $2,
			description = $3,
			frequency = $4,
			custom_frequency_days = $5,
			start_date = $6,
			next_due_date = $7,
			priority = $8,
			risk_level = $9,
			template = $10,
			updated_at = NOW()
		WHERE schedule_id = $1`,
		s.ScheduleID, s.Title, nullIfEmpty(s.Description),
		s.Frequency, s.CustomFrequencyDays, s.StartDate, s.NextDueDate,
		s.Priority, nullIfEmpty(string(s.RiskLevel)), template,
	)
	if err != nil {
		return storeErr("failed to update schedule", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// AdvanceSchedule 提交完成记录后推进计划（单行条件更新，只写周期字段）
func (r *PostgresSchedulesRepository) AdvanceSchedule(ctx context.Context, scheduleID string, lastCompleted, nextDue time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET
			last_completed_date = $2,
			next_due_date = $3,
			status_override = NULL,
			updated_at = NOW()
		WHERE schedule_id = $1`,
		scheduleID, lastCompleted, nextDue,
	)
	if err != nil {
		return storeErr("failed to advance schedule", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// SetOverride 设置/清除显式状态标记
func (r *PostgresSchedulesRepository) SetOverride(ctx context.Context, scheduleID string, override domain.ScheduleStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET status_override = $2, updated_at = NOW()
		WHERE schedule_id = $1`,
		scheduleID, nullIfEmpty(string(override)),
	)
	if err != nil {
		return storeErr("failed to set schedule override", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// DeleteSchedule 删除计划（记录保留，允许悬挂引用）
func (r *PostgresSchedulesRepository) DeleteSchedule(ctx context.Context, scheduleID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM schedules WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return storeErr("failed to delete schedule", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// ScheduleStats 统计。状态在 SQL 里按当前时间推导，
// 与 domain.DeriveStatus 同一套规则（显式标记优先，其余按到期日）。
func (r *PostgresSchedulesRepository) ScheduleStats(ctx context.Context, kind domain.ScheduleKind, department string, now time.Time) (*ScheduleStats, error) {
	where := []string{"kind = $1"}
	args := []any{kind, now}
	argN := 3
	if department != "" {
		where = append(where, fmt.Sprintf("department = $%d", argN))
		args = append(args, department)
	}
	whereClause := strings.Join(where, " AND ")

	query := `
		SELECT
			CASE
				WHEN status_override IS NOT NULL AND status_override <> '' THEN status_override
				WHEN next_due_date < $2 THEN 'overdue'
				ELSE 'active'
			END AS derived_status,
			priority,
			frequency,
			COUNT(*)
		FROM schedules
		WHERE ` + whereClause + `
		GROUP BY 1, 2, 3`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to aggregate schedules", err)
	}
	defer rows.Close()

	stats := &ScheduleStats{
		ByStatus:    map[string]int{},
		ByPriority:  map[string]int{},
		ByFrequency: map[string]int{},
	}
	for rows.Next() {
		var status, priority, frequency string
		var count int
		if err := rows.Scan(&status, &priority, &frequency, &count); err != nil {
			return nil, storeErr("failed to scan schedule stats", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
		stats.ByFrequency[frequency] += count
	}
	return stats, storeErr("failed to aggregate schedules", rows.Err())
}

// nullIfEmpty 空字符串写 NULL
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requireRow 影响行数为 0 时返回给定错误
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("failed to read affected rows", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// storeErr 存储层错误的统一归类：完整性约束冲突归 Conflict，
// 其余驱动/连接错误归 Unavailable（HTTP 层据此回 503）。
// sql.ErrNoRows 不在这里处理，调用方先区分 NotFound 语义。
func storeErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		// 23xxx: integrity constraint violation（唯一键、外键、CHECK）
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrUnavailable, err)
}
