package repository

import (
	"context"
	"time"

	"cmms-data/internal/domain"
)

// 本文件集中声明瘦 CRUD 资源的 Repository 接口；
// 计划/记录（核心工作流）的接口在 schedules_repo.go / records_repo.go。

// --- Departments ---

type DepartmentsRepository interface {
	CreateDepartment(ctx context.Context, d *domain.Department) (string, error)
	GetDepartment(ctx context.Context, departmentID string) (*domain.Department, error)
	ListDepartments(ctx context.Context, activeOnly bool, page, size int) ([]*domain.Department, int, error)
	UpdateDepartment(ctx context.Context, d *domain.Department) error
	DeleteDepartment(ctx context.Context, departmentID string) error
}

// --- Employees ---

type EmployeeFilters struct {
	Department string
	Role       domain.Role
	ShiftType  domain.ShiftType
	ActiveOnly bool
}

type EmployeesRepository interface {
	CreateEmployee(ctx context.Context, e *domain.Employee) (string, error)
	GetEmployee(ctx context.Context, employeeID string) (*domain.Employee, error)
	ListEmployees(ctx context.Context, filters *EmployeeFilters, page, size int) ([]*domain.Employee, int, error)
	UpdateEmployee(ctx context.Context, e *domain.Employee) error
	DeleteEmployee(ctx context.Context, employeeID string) error
}

// --- Assets ---

type AssetFilters struct {
	Department string
	Category   string
	Location   string
	Status     domain.AssetStatus
}

type AssetsRepository interface {
	CreateAsset(ctx context.Context, a *domain.Asset) (string, error)
	GetAsset(ctx context.Context, assetID string) (*domain.Asset, error)
	ListAssets(ctx context.Context, filters *AssetFilters, page, size int) ([]*domain.Asset, int, error)
	UpdateAsset(ctx context.Context, a *domain.Asset) error
	DeleteAsset(ctx context.Context, assetID string) error
	// AssetStats 按状态计数
	AssetStats(ctx context.Context, department string) (map[string]int, error)
}

// --- Tickets ---

type TicketFilters struct {
	Department string
	AssetID    string
	Status     domain.TicketStatus
	Priority   domain.Priority
	ReporterID string
	AssigneeID string
}

// TicketStats 工单统计
type TicketStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}

type TicketsRepository interface {
	CreateTicket(ctx context.Context, t *domain.Ticket) (string, error)
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, filters *TicketFilters, page, size int) ([]*domain.Ticket, int, error)
	UpdateTicket(ctx context.Context, t *domain.Ticket) error
	DeleteTicket(ctx context.Context, ticketID string) error
	Stats(ctx context.Context, department string) (*TicketStats, error)
}

// --- Notices ---

type NoticesRepository interface {
	CreateNotice(ctx context.Context, n *domain.Notice) (string, error)
	GetNotice(ctx context.Context, noticeID string) (*domain.Notice, error)
	// ListNotices department="" 只看全员公告；includeGlobal 时部门列表额外带上全员公告
	ListNotices(ctx context.Context, department string, includeGlobal, publishedOnly bool, page, size int) ([]*domain.Notice, int, error)
	UpdateNotice(ctx context.Context, n *domain.Notice) error
	// PublishNotice 单向发布；已发布返回 domain.ErrConflict
	PublishNotice(ctx context.Context, noticeID string, at time.Time) error
	DeleteNotice(ctx context.Context, noticeID string) error
}

// --- Parts / stock ---

type PartFilters struct {
	Department string
	Category   string
	LowStock   bool // quantity <= min_quantity
}

type PartsRepository interface {
	CreatePart(ctx context.Context, p *domain.Part) (string, error)
	GetPart(ctx context.Context, partID string) (*domain.Part, error)
	ListParts(ctx context.Context, filters *PartFilters, page, size int) ([]*domain.Part, int, error)
	UpdatePart(ctx context.Context, p *domain.Part) error
	// AdjustQuantity 原子调整库存（delta 可为负）；调整后为负返回 domain.ErrConflict
	AdjustQuantity(ctx context.Context, partID string, delta int) (int, error)
	DeletePart(ctx context.Context, partID string) error
}

// --- Chat ---

type ChatRepository interface {
	CreateMessage(ctx context.Context, m *domain.ChatMessage) (string, error)
	// ListMessages 按会话倒序分页
	ListMessages(ctx context.Context, conversation string, page, size int) ([]*domain.ChatMessage, int, error)
}

// --- Shift details ---

type ShiftFilters struct {
	Department string
	EmployeeID string
	ShiftType  domain.ShiftType
}

type ShiftsRepository interface {
	CreateShift(ctx context.Context, s *domain.ShiftDetail) (string, error)
	GetShift(ctx context.Context, shiftID string) (*domain.ShiftDetail, error)
	ListShifts(ctx context.Context, filters *ShiftFilters, page, size int) ([]*domain.ShiftDetail, int, error)
	UpdateShift(ctx context.Context, s *domain.ShiftDetail) error
	DeleteShift(ctx context.Context, shiftID string) error
}
