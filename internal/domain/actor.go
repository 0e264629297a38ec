package domain

// Role 岗位角色（与权限层级 AccessLevel 正交）
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleTechnician Role = "technician"
	RoleInspector  Role = "inspector"
	RoleViewer     Role = "viewer"
)

// AccessLevel 权限层级（粗粒度授权，独立于岗位角色）
type AccessLevel string

const (
	AccessSuperAdmin      AccessLevel = "super_admin"
	AccessDepartmentAdmin AccessLevel = "department_admin"
	AccessNormalUser      AccessLevel = "normal_user"
)

// Actor 请求操作者身份，由 HTTP 边界从请求头解析后显式传入每个调用
// （不使用任何进程级全局上下文）
type Actor struct {
	UserID      string
	Name        string
	Email       string
	Department  string
	Role        Role
	AccessLevel AccessLevel
}

// ValidRole 校验角色枚举
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSupervisor, RoleTechnician, RoleInspector, RoleViewer:
		return true
	}
	return false
}

// ValidAccessLevel 校验权限层级枚举
func ValidAccessLevel(l AccessLevel) bool {
	switch l {
	case AccessSuperAdmin, AccessDepartmentAdmin, AccessNormalUser:
		return true
	}
	return false
}

// Managerial 是否管理岗（admin/manager），用于角色门槛叠加检查
func (a Actor) Managerial() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}
